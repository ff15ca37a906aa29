// Package auditlog serves audit trail queries and records the auth events
// posted to the internal intake.
package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/repositories"
	"github.com/upb/ip-registry/services"
	"go.uber.org/zap"
)

// Filter holds the optional filters of the full audit query
type Filter struct {
	UserID *int64
	Action *models.AuditAction
	From   *time.Time
	To     *time.Time
}

// Service implements audit log queries and intake
type Service struct {
	logs   repositories.AuditRepository
	ips    repositories.IPAddressRepository
	logger *zap.Logger
}

// NewService creates a new audit log Service
func NewService(logs repositories.AuditRepository, ips repositories.IPAddressRepository, logger *zap.Logger) *Service {
	return &Service{
		logs:   logs,
		ips:    ips,
		logger: logger,
	}
}

// SessionLogs returns entries recorded under the caller's session
func (s *Service) SessionLogs(ctx context.Context, actor models.UserContext, page int) ([]*models.AuditLog, models.Pagination, error) {
	sessionID := actor.SessionID
	return s.query(ctx, repositories.AuditFilter{SessionID: &sessionID}, page)
}

// UserLogs returns entries recorded for the caller
func (s *Service) UserLogs(ctx context.Context, actor models.UserContext, page int) ([]*models.AuditLog, models.Pagination, error) {
	userID := actor.ID
	return s.query(ctx, repositories.AuditFilter{UserID: &userID}, page)
}

// IPLogs returns every change recorded for an address, deleted entries included
func (s *Service) IPLogs(ctx context.Context, address string, page int) ([]*models.AuditLog, models.Pagination, error) {
	filter, err := s.ipFilter(ctx, address)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return s.query(ctx, filter, page)
}

// IPSessionLogs returns the changes to an address made in the caller's session
func (s *Service) IPSessionLogs(ctx context.Context, actor models.UserContext, address string, page int) ([]*models.AuditLog, models.Pagination, error) {
	filter, err := s.ipFilter(ctx, address)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	sessionID := actor.SessionID
	filter.SessionID = &sessionID
	return s.query(ctx, filter, page)
}

// AllLogs returns every entry matching filter. Callers must be super admins.
func (s *Service) AllLogs(ctx context.Context, actor models.UserContext, filter Filter, page int) ([]*models.AuditLog, models.Pagination, error) {
	if !actor.IsSuperAdmin {
		return nil, models.Pagination{}, services.ErrSuperAdminRequired
	}
	return s.query(ctx, repositories.AuditFilter{
		UserID: filter.UserID,
		Action: filter.Action,
		From:   filter.From,
		To:     filter.To,
	}, page)
}

// Record stores an auth event posted by the auth service
func (s *Service) Record(ctx context.Context, event models.AuditEvent) error {
	entry, err := EntryFromEvent(event)
	if err != nil {
		return err
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		return services.WrapInternal("Failed to record audit log", err)
	}
	s.logger.Debug("audit event recorded",
		zap.String("action", string(entry.Action)),
		zap.Int64("user_id", entry.UserID),
	)
	return nil
}

// EntryFromEvent maps an intake event to its stored form. Only LOGIN, LOGOUT
// and FAILED_LOGIN are accepted.
func EntryFromEvent(event models.AuditEvent) (*models.AuditLog, error) {
	switch event.Action {
	case models.AuditActionLogin, models.AuditActionLogout:
		email := event.UserEmail
		if email == "" {
			email = models.UnknownEmail
		}
		return models.NewAuditLog(event.Action, event.UserID, email).
			WithSession(event.SessionID).
			WithIPAddress(event.IPAddress), nil

	case models.AuditActionFailedLogin:
		attempted := models.UnknownEmail
		if len(event.Metadata) > 0 {
			var meta struct {
				Email string `json:"email"`
			}
			if err := json.Unmarshal(event.Metadata, &meta); err == nil && meta.Email != "" {
				attempted = meta.Email
			}
		}
		return models.NewAuditLog(event.Action, 0, models.AnonymousEmail).
			WithIPAddress(event.IPAddress).
			WithMetadata(map[string]string{"email": attempted}), nil
	}

	return nil, services.ErrUnknownAuditAction.Wrap(nil).
		WithDetail("action", string(event.Action))
}

// UnknownActionMessage is the intake response for an unsupported action
func UnknownActionMessage(action string) string {
	return fmt.Sprintf("Unknown action: %s", action)
}

func (s *Service) ipFilter(ctx context.Context, address string) (repositories.AuditFilter, error) {
	ip, err := s.ips.GetByAddressWithTrashed(ctx, address)
	if errors.Is(err, repositories.ErrNotFound) {
		return repositories.AuditFilter{}, services.ErrIPAddressNotFound
	}
	if err != nil {
		return repositories.AuditFilter{}, services.WrapInternal("Failed to retrieve audit logs", err)
	}

	entityType := models.EntityTypeIPAddress
	entityID := ip.ID
	return repositories.AuditFilter{EntityType: &entityType, EntityID: &entityID}, nil
}

func (s *Service) query(ctx context.Context, filter repositories.AuditFilter, page int) ([]*models.AuditLog, models.Pagination, error) {
	page = models.NormalizePage(page)
	perPage := models.DefaultPageSize

	logs, total, err := s.logs.List(ctx, filter, perPage, models.Offset(page, perPage))
	if err != nil {
		return nil, models.Pagination{}, services.WrapInternal("Failed to retrieve audit logs", err)
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}

	if err := s.attachEntityIPs(ctx, logs); err != nil {
		return nil, models.Pagination{}, services.WrapInternal("Failed to retrieve audit logs", err)
	}
	return logs, models.NewPagination(page, perPage, total), nil
}

// attachEntityIPs resolves the address of every ip_address entry,
// soft-deleted entries included.
func (s *Service) attachEntityIPs(ctx context.Context, logs []*models.AuditLog) error {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, entry := range logs {
		if !isIPEntry(entry) {
			continue
		}
		if _, ok := seen[*entry.EntityID]; ok {
			continue
		}
		seen[*entry.EntityID] = struct{}{}
		ids = append(ids, *entry.EntityID)
	}
	if len(ids) == 0 {
		return nil
	}

	addresses, err := s.ips.AddressesByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, entry := range logs {
		if !isIPEntry(entry) {
			continue
		}
		if address, ok := addresses[*entry.EntityID]; ok {
			address := address
			entry.EntityIP = &address
		}
	}
	return nil
}

func isIPEntry(entry *models.AuditLog) bool {
	return entry.EntityType != nil && *entry.EntityType == models.EntityTypeIPAddress && entry.EntityID != nil
}
