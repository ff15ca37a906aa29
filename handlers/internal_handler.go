package handlers

import (
	"context"
	"net/http"

	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/services"
	"github.com/upb/ip-registry/services/auditlog"
	"github.com/upb/ip-registry/utils"
	"go.uber.org/zap"
)

// AuditRecorder stores auth events posted by the auth service
type AuditRecorder interface {
	Record(ctx context.Context, event models.AuditEvent) error
}

// InternalHandler handles service-to-service endpoints that the gateway does not route
type InternalHandler struct {
	recorder AuditRecorder
	logger   *zap.Logger
}

// NewInternalHandler creates a new InternalHandler
func NewInternalHandler(recorder AuditRecorder, logger *zap.Logger) *InternalHandler {
	return &InternalHandler{
		recorder: recorder,
		logger:   logger,
	}
}

// HandleAuditLog handles POST /api/internal/audit-log
func (h *InternalHandler) HandleAuditLog(w http.ResponseWriter, r *http.Request) {
	var event models.AuditEvent
	if err := utils.DecodeJSON(r, &event); err != nil {
		h.logger.Warn("undecodable audit event", zap.Error(err))
		_ = utils.WriteMessage(w, http.StatusBadRequest, auditlog.UnknownActionMessage(""))
		return
	}

	if err := h.recorder.Record(r.Context(), event); err != nil {
		if services.GetErrorCode(err) == services.CodeUnknownAuditAction {
			_ = utils.WriteMessage(w, http.StatusBadRequest, auditlog.UnknownActionMessage(string(event.Action)))
			return
		}
		h.logger.Error("failed to record audit event",
			zap.String("action", string(event.Action)),
			zap.Error(err))
		_ = utils.WriteMessage(w, http.StatusInternalServerError, "Failed to record audit log")
		return
	}

	_ = utils.WriteMessage(w, http.StatusOK, "Audit log recorded successfully")
}
