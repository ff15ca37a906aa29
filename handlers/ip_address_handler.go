package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/upb/ip-registry/middleware"
	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/services"
	"github.com/upb/ip-registry/services/ipaddress"
	"github.com/upb/ip-registry/utils"
	"go.uber.org/zap"
)

// IPAddressService defines the registry operations
type IPAddressService interface {
	List(ctx context.Context, page int) ([]*models.IPAddress, models.Pagination, error)
	Create(ctx context.Context, actor models.UserContext, input ipaddress.CreateInput) (*models.IPAddress, error)
	Update(ctx context.Context, actor models.UserContext, id int64, input ipaddress.UpdateInput) (*models.IPAddress, error)
	Delete(ctx context.Context, actor models.UserContext, id int64) error
}

// IPAddressHandler handles the IP address registry endpoints
type IPAddressHandler struct {
	service IPAddressService
	logger  *zap.Logger
}

// NewIPAddressHandler creates a new IPAddressHandler
func NewIPAddressHandler(service IPAddressService, logger *zap.Logger) *IPAddressHandler {
	return &IPAddressHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /api/ip-addresses
func (h *IPAddressHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ips, page, err := h.service.List(r.Context(), pageParam(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WritePage(w, "IP addresses retrieved successfully", ips, page)
}

// HandleCreate handles POST /api/ip-addresses
func (h *IPAddressHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var input ipaddress.CreateInput
	if err := decodeAndValidate(r, &input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	ip, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, "IP address created successfully", ip)
}

// HandleUpdate handles PUT /api/ip-addresses/{id}
func (h *IPAddressHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.id(w, r)
	if !ok {
		return
	}

	var input ipaddress.UpdateInput
	if err := decodeAndValidate(r, &input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	ip, err := h.service.Update(r.Context(), actor, id, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, "IP address updated successfully", ip)
}

// HandleDelete handles DELETE /api/ip-addresses/{id}
func (h *IPAddressHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.id(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, "IP address deleted successfully", nil)
}

func (h *IPAddressHandler) actor(w http.ResponseWriter, r *http.Request) (models.UserContext, bool) {
	actor, ok := middleware.GetUserContext(r.Context())
	if !ok {
		h.logger.Error("user context missing", zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
		_ = utils.WriteFailure(w, http.StatusUnauthorized, "Unauthorized", nil)
	}
	return actor, ok
}

// id parses the {id} route parameter; a non-numeric id is reported as not found
func (h *IPAddressHandler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		HandleServiceError(w, services.ErrIPAddressNotFound, h.logger)
		return 0, false
	}
	return id, true
}

// pageParam reads ?page=N, defaulting to 1
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
