package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/upb/ip-registry/middleware"
	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/services/auditlog"
	"github.com/upb/ip-registry/utils"
	"go.uber.org/zap"
)

const auditLogsRetrieved = "Audit logs retrieved successfully"

// AuditLogService defines the audit trail queries
type AuditLogService interface {
	SessionLogs(ctx context.Context, actor models.UserContext, page int) ([]*models.AuditLog, models.Pagination, error)
	UserLogs(ctx context.Context, actor models.UserContext, page int) ([]*models.AuditLog, models.Pagination, error)
	IPLogs(ctx context.Context, address string, page int) ([]*models.AuditLog, models.Pagination, error)
	IPSessionLogs(ctx context.Context, actor models.UserContext, address string, page int) ([]*models.AuditLog, models.Pagination, error)
	AllLogs(ctx context.Context, actor models.UserContext, filter auditlog.Filter, page int) ([]*models.AuditLog, models.Pagination, error)
}

// AuditLogHandler handles the audit log query endpoints
type AuditLogHandler struct {
	service AuditLogService
	logger  *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(service AuditLogService, logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSessionLogs handles GET /api/audit-logs/session
func (h *AuditLogHandler) HandleSessionLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	logs, page, err := h.service.SessionLogs(r.Context(), actor, pageParam(r))
	h.respond(w, logs, page, err)
}

// HandleUserLogs handles GET /api/audit-logs/user
func (h *AuditLogHandler) HandleUserLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	logs, page, err := h.service.UserLogs(r.Context(), actor, pageParam(r))
	h.respond(w, logs, page, err)
}

// HandleIPLogs handles GET /api/audit-logs/ip-address/{ip}
func (h *AuditLogHandler) HandleIPLogs(w http.ResponseWriter, r *http.Request) {
	logs, page, err := h.service.IPLogs(r.Context(), chi.URLParam(r, "ip"), pageParam(r))
	h.respond(w, logs, page, err)
}

// HandleIPSessionLogs handles GET /api/audit-logs/ip-address/{ip}/session
func (h *AuditLogHandler) HandleIPSessionLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	logs, page, err := h.service.IPSessionLogs(r.Context(), actor, chi.URLParam(r, "ip"), pageParam(r))
	h.respond(w, logs, page, err)
}

// HandleAllLogs handles GET /api/audit-logs/all
// Query: user_id, action, from_date, to_date (all optional)
func (h *AuditLogHandler) HandleAllLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	filter, err := parseAuditFilter(r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	logs, page, err := h.service.AllLogs(r.Context(), actor, filter, pageParam(r))
	h.respond(w, logs, page, err)
}

func (h *AuditLogHandler) respond(w http.ResponseWriter, logs []*models.AuditLog, page models.Pagination, err error) {
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WritePage(w, auditLogsRetrieved, logs, page)
}

func (h *AuditLogHandler) actor(w http.ResponseWriter, r *http.Request) (models.UserContext, bool) {
	actor, ok := middleware.GetUserContext(r.Context())
	if !ok {
		h.logger.Error("user context missing", zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
		_ = utils.WriteFailure(w, http.StatusUnauthorized, "Unauthorized", nil)
	}
	return actor, ok
}

// dateLayouts are the accepted from_date/to_date formats
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseAuditFilter(r *http.Request) (auditlog.Filter, error) {
	q := r.URL.Query()
	var filter auditlog.Filter

	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, utils.NewFieldError("user_id", "The user_id must be an integer.")
		}
		filter.UserID = &id
	}
	if raw := q.Get("action"); raw != "" {
		action := models.AuditAction(raw)
		filter.Action = &action
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"from_date", &filter.From},
		{"to_date", &filter.To},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, ok := parseDate(raw)
		if !ok {
			return filter, utils.NewFieldError(p.name, "The "+p.name+" is not a valid date.")
		}
		*p.dst = &t
	}
	return filter, nil
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
