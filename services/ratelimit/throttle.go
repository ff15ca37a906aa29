package ratelimit

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Counter stores failure counts that expire after a window
type Counter interface {
	// Count returns the current count for key, zero when absent
	Count(ctx context.Context, key string) (int, error)

	// Increment adds one to key and starts the window on the first failure
	Increment(ctx context.Context, key string, window time.Duration) (int, error)

	// Reset clears key
	Reset(ctx context.Context, key string) error
}

// LoginThrottle limits failed logins per email and caller address.
// Counter failures are logged and never block a login.
type LoginThrottle struct {
	counter     Counter
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

// NewLoginThrottle creates a throttle allowing maxAttempts failures per window
func NewLoginThrottle(counter Counter, maxAttempts int, window time.Duration, logger *zap.Logger) *LoginThrottle {
	return &LoginThrottle{
		counter:     counter,
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger,
	}
}

// Key builds the throttle key for a login attempt
func Key(email, ip string) string {
	return strings.ToLower(strings.TrimSpace(email)) + "|" + ip
}

// Blocked reports whether key has reached the failure limit
func (t *LoginThrottle) Blocked(ctx context.Context, key string) bool {
	if t.maxAttempts <= 0 {
		return false
	}

	count, err := t.counter.Count(ctx, key)
	if err != nil {
		t.logger.Warn("login throttle lookup failed", zap.Error(err))
		return false
	}
	return count >= t.maxAttempts
}

// Fail records a failed attempt for key
func (t *LoginThrottle) Fail(ctx context.Context, key string) {
	count, err := t.counter.Increment(ctx, key, t.window)
	if err != nil {
		t.logger.Warn("login throttle increment failed", zap.Error(err))
		return
	}
	if count == t.maxAttempts {
		t.logger.Info("login throttle engaged",
			zap.Int("attempts", count),
			zap.Duration("window", t.window))
	}
}

// Reset clears the failures recorded for key
func (t *LoginThrottle) Reset(ctx context.Context, key string) {
	if err := t.counter.Reset(ctx, key); err != nil {
		t.logger.Warn("login throttle reset failed", zap.Error(err))
	}
}
