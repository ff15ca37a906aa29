package handlers

import (
	"context"
	"net/http"

	"github.com/upb/ip-registry/services"
	"github.com/upb/ip-registry/services/auth"
	"github.com/upb/ip-registry/utils"
	"go.uber.org/zap"
)

// SessionIDHeader carries the session id on refresh
const SessionIDHeader = "X-Session-ID"

// LoginRequest is the login body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the refresh body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthService defines the auth protocol operations
type AuthService interface {
	Login(ctx context.Context, input auth.LoginInput) (*auth.LoginResult, error)
	Logout(ctx context.Context, token, ip string) error
	Refresh(ctx context.Context, input auth.RefreshInput) (*auth.RefreshResult, error)
	Validate(ctx context.Context, token string) (*auth.ValidateResult, error)
}

// AuthHandler handles the auth service endpoints
type AuthHandler struct {
	service AuthService
	logger  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// HandleLogin handles POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.service.Login(r.Context(), auth.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: utils.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, "Login successful", result)
}

// HandleLogout handles POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	err := h.service.Logout(r.Context(), utils.BearerToken(r), utils.ClientIP(r))
	if err != nil {
		if services.IsUnauthorizedError(err) {
			_ = utils.WriteFailure(w, http.StatusUnauthorized, services.GetErrorMessage(err), nil)
			return
		}
		h.logger.Error("logout failed", zap.Error(err))
		_ = utils.WriteFailure(w, http.StatusInternalServerError, "Logout failed", nil)
		return
	}

	_ = utils.WriteOK(w, "Successfully logged out", nil)
}

// HandleRefresh handles POST /api/auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeAndValidate(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.service.Refresh(r.Context(), auth.RefreshInput{
		RefreshToken: req.RefreshToken,
		SessionID:    r.Header.Get(SessionIDHeader),
	})
	if err != nil {
		if services.IsUnauthorizedError(err) {
			h.logger.Debug("refresh rejected", zap.String("error_code", string(services.GetErrorCode(err))))
			_ = utils.WriteFailure(w, http.StatusUnauthorized, "Token refresh failed", map[string]string{
				"error": services.GetErrorMessage(err),
			})
			return
		}
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, "Token refreshed successfully", result)
}

// HandleValidate handles GET /api/auth/validate
func (h *AuthHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Validate(r.Context(), utils.BearerToken(r))
	if err != nil {
		if services.IsUnauthorizedError(err) {
			_ = utils.WriteFailure(w, http.StatusUnauthorized, services.GetErrorMessage(err), map[string]bool{
				"valid": false,
			})
			return
		}
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, "", result)
}
