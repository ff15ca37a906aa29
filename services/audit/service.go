package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/upb/ip-registry/models"
	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned when events are emitted before Start or after Stop
	ErrNotStarted = errors.New("audit service not started")

	// ErrBufferFull is returned when the queue cannot take another event
	ErrBufferFull = errors.New("audit event buffer full")
)

// Sink persists a single audit entry.
// repositories.AuditRepository satisfies it directly.
type Sink interface {
	Insert(ctx context.Context, log *models.AuditLog) error
}

// Config holds configuration for the Service
type Config struct {
	BufferSize  int           // Size of the event buffer channel
	WorkerCount int           // Number of concurrent workers
	SinkTimeout time.Duration // Bound on each sink call
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
		SinkTimeout: 5 * time.Second,
	}
}

// Service writes audit entries to a Sink from a pool of background workers.
// Emitting never blocks the caller and sink failures are only logged.
type Service struct {
	sink        Sink
	logger      *zap.Logger
	events      chan *models.AuditLog
	workerCount int
	bufferSize  int
	sinkTimeout time.Duration
	wg          sync.WaitGroup
	mu          sync.RWMutex
	started     bool
	stopped     bool
}

// NewService creates a new audit Service
func NewService(sink Sink, logger *zap.Logger, config Config) *Service {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	if config.SinkTimeout <= 0 {
		config.SinkTimeout = DefaultConfig().SinkTimeout
	}

	return &Service{
		sink:        sink,
		logger:      logger,
		events:      make(chan *models.AuditLog, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		sinkTimeout: config.SinkTimeout,
	}
}

// Start starts the background workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop stops accepting events and waits for the queue to drain
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.stopped = true
	close(s.events)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.events)))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Emit queues an entry without blocking. A full queue drops the entry.
func (s *Service) Emit(log *models.AuditLog) error {
	// The read lock keeps Stop from closing the channel mid-send.
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return ErrNotStarted
	}

	select {
	case s.events <- log:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(log.Action)),
			zap.Int64("user_id", log.UserID))
		return ErrBufferFull
	}
}

func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for log := range s.events {
		if err := s.write(log); err != nil {
			s.logger.Error("failed to write audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(log.Action)),
				zap.Int64("user_id", log.UserID))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

func (s *Service) write(log *models.AuditLog) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.sinkTimeout)
	defer cancel()

	if err := s.sink.Insert(ctx, log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// GetStats returns statistics about the audit service
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.events),
		WorkerCount:   s.workerCount,
		Started:       s.started && !s.stopped,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// Convenience methods for the auth events

// LogLogin records a successful login
func (s *Service) LogLogin(user *models.User, sessionID, ip string) error {
	return s.Emit(models.NewAuditLog(models.AuditActionLogin, user.ID, user.Email).
		WithSession(sessionID).
		WithIPAddress(ip))
}

// LogLogout records a logout
func (s *Service) LogLogout(userID int64, email, sessionID, ip string) error {
	return s.Emit(models.NewAuditLog(models.AuditActionLogout, userID, email).
		WithSession(sessionID).
		WithIPAddress(ip))
}

// LogFailedLogin records rejected credentials for email
func (s *Service) LogFailedLogin(email, ip string) error {
	return s.Emit(models.NewAuditLog(models.AuditActionFailedLogin, 0, models.AnonymousEmail).
		WithMetadata(map[string]string{"email": email}).
		WithIPAddress(ip))
}
