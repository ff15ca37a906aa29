// Package ipaddress manages the IP address registry and records an audit
// entry for every change.
package ipaddress

import (
	"context"
	"errors"
	"time"

	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/repositories"
	"github.com/upb/ip-registry/services"
	"go.uber.org/zap"
)

// Emitter queues audit entries without blocking the request
type Emitter interface {
	Emit(log *models.AuditLog) error
}

// CreateInput is a new registry entry
type CreateInput struct {
	IPAddress string  `json:"ip_address" validate:"required,ip"`
	Label     string  `json:"label" validate:"required,max=255"`
	Comment   *string `json:"comment"`
}

// UpdateInput replaces the editable fields of an entry
type UpdateInput struct {
	Label   string  `json:"label" validate:"required,max=255"`
	Comment *string `json:"comment"`
}

// Service implements the registry operations
type Service struct {
	repo    repositories.IPAddressRepository
	emitter Emitter
	now     func() time.Time
	logger  *zap.Logger
}

// NewService creates a new registry Service
func NewService(repo repositories.IPAddressRepository, emitter Emitter, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		emitter: emitter,
		now:     time.Now,
		logger:  logger,
	}
}

// List returns one page of live entries, newest first
func (s *Service) List(ctx context.Context, page int) ([]*models.IPAddress, models.Pagination, error) {
	page = models.NormalizePage(page)
	perPage := models.DefaultPageSize

	ips, total, err := s.repo.List(ctx, perPage, models.Offset(page, perPage))
	if err != nil {
		return nil, models.Pagination{}, services.WrapInternal("Failed to retrieve IP addresses", err)
	}
	if ips == nil {
		ips = []*models.IPAddress{}
	}
	return ips, models.NewPagination(page, perPage, total), nil
}

// Create registers a new address owned by the caller
func (s *Service) Create(ctx context.Context, actor models.UserContext, input CreateInput) (*models.IPAddress, error) {
	ip, ok := models.NewIPAddress(input.IPAddress, input.Label, input.Comment, actor.Email)
	if !ok {
		return nil, services.ErrValidationFailed.Wrap(nil).
			WithDetail("ip_address", "The ip_address must be a valid IP address.")
	}

	exists, err := s.repo.ExistsLive(ctx, ip.IPAddress)
	if err != nil {
		return nil, services.WrapInternal("Failed to create IP address", err)
	}
	if exists {
		return nil, services.ErrIPAddressExists
	}

	now := s.now()
	ip.CreatedAt, ip.UpdatedAt = now, now
	if err := s.repo.Create(ctx, ip); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, services.ErrIPAddressExists
		}
		return nil, services.WrapInternal("Failed to create IP address", err)
	}

	s.logger.Info("ip address created",
		zap.Int64("id", ip.ID),
		zap.String("ip_address", ip.IPAddress),
		zap.String("created_by", ip.CreatedBy),
	)

	s.emit(auditEntry(models.AuditActionCreate, actor, ip.ID).
		WithNewValues(ip.AuditValues()))
	return ip, nil
}

// Update changes label and comment. Only the owner or a super admin may edit.
func (s *Service) Update(ctx context.Context, actor models.UserContext, id int64, input UpdateInput) (*models.IPAddress, error) {
	ip, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ip.CanBeModifiedBy(actor.Email, actor.IsSuperAdmin) {
		return nil, services.ErrNotResourceOwner
	}

	oldValues := map[string]interface{}{
		"label":   ip.Label,
		"comment": ip.Comment,
	}
	newValues := map[string]interface{}{}
	changes := map[string][2]interface{}{}

	if ip.Label != input.Label {
		newValues["label"] = input.Label
		changes["label"] = [2]interface{}{ip.Label, input.Label}
	}
	if !sameComment(ip.Comment, input.Comment) {
		newValues["comment"] = input.Comment
		changes["comment"] = [2]interface{}{ip.Comment, input.Comment}
	}

	ip.Label = input.Label
	ip.Comment = input.Comment
	ip.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, ip); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrIPAddressNotFound
		}
		return nil, services.WrapInternal("Failed to update IP address", err)
	}

	if len(changes) > 0 {
		s.emit(auditEntry(models.AuditActionUpdate, actor, ip.ID).
			WithOldValues(oldValues).
			WithNewValues(newValues).
			WithMetadata(map[string]interface{}{"changes": changes}))
	}
	return ip, nil
}

// Delete soft deletes an entry. Only a super admin may delete.
func (s *Service) Delete(ctx context.Context, actor models.UserContext, id int64) error {
	ip, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsSuperAdmin {
		return services.ErrDeleteRequiresAdmin
	}

	if err := s.repo.SoftDelete(ctx, ip.ID, s.now()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrIPAddressNotFound
		}
		return services.WrapInternal("Failed to delete IP address", err)
	}

	s.logger.Info("ip address deleted", zap.Int64("id", ip.ID), zap.String("deleted_by", actor.Email))

	s.emit(auditEntry(models.AuditActionDelete, actor, ip.ID).
		WithOldValues(ip.AuditValues()))
	return nil
}

func (s *Service) find(ctx context.Context, id int64) (*models.IPAddress, error) {
	ip, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, services.ErrIPAddressNotFound
	}
	if err != nil {
		return nil, services.WrapInternal("Failed to load IP address", err)
	}
	return ip, nil
}

func (s *Service) emit(entry *models.AuditLog) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(entry); err != nil {
		s.logger.Warn("failed to queue audit log",
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
	}
}

func auditEntry(action models.AuditAction, actor models.UserContext, ipID int64) *models.AuditLog {
	return models.NewAuditLog(action, actor.ID, actor.Email).
		WithSession(actor.SessionID).
		WithEntity(models.EntityTypeIPAddress, ipID).
		WithIPAddress(actor.IPAddress)
}

func sameComment(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
