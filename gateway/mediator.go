package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/upb/ip-registry/internal/observability"
	"github.com/upb/ip-registry/middleware"
	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/utils"
	"go.uber.org/zap"
)

// Headers exchanged with clients
const (
	RefreshTokenHeader   = "X-Refresh-Token"
	SessionIDHeader      = "X-Session-ID"
	NewAccessTokenHeader = "X-New-Access-Token"
)

// Authenticator is the auth service as seen by the gateway
type Authenticator interface {
	Validate(ctx context.Context, creds Credentials) (models.UserContext, error)
	Refresh(ctx context.Context, creds Credentials) (string, error)
}

// Mediator authenticates requests before they are proxied.
// A request whose access token is rejected is refreshed at most once.
type Mediator struct {
	auth   Authenticator
	secret []byte
	logger *zap.Logger
}

// NewMediator creates a Mediator. A non-empty contextSecret signs the
// forwarded identity header.
func NewMediator(auth Authenticator, contextSecret string, logger *zap.Logger) *Mediator {
	m := &Mediator{
		auth:   auth,
		logger: logger,
	}
	if contextSecret != "" {
		m.secret = []byte(contextSecret)
	}
	return m
}

// Authenticate is the middleware guarding protected gateway routes
func (m *Mediator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := observability.FromContext(ctx, m.logger)

		creds := Credentials{
			AccessToken:  utils.BearerToken(r),
			RefreshToken: r.Header.Get(RefreshTokenHeader),
			SessionID:    r.Header.Get(SessionIDHeader),
		}
		if creds.AccessToken == "" {
			_ = utils.WriteUnauthorized(w, "Token not provided")
			return
		}

		user, err := m.auth.Validate(ctx, creds)
		if err == nil {
			m.forward(w, r, next, user)
			return
		}
		if !rejected(err) {
			m.unavailable(w, logger, err)
			return
		}
		if !canRefresh(err, creds) {
			logger.Warn("access token rejected", zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid token")
			return
		}

		newToken, err := m.auth.Refresh(ctx, creds)
		if err != nil {
			if !rejected(err) {
				m.unavailable(w, logger, err)
				return
			}
			logger.Warn("refresh token rejected", zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid token")
			return
		}

		creds.AccessToken = newToken
		user, err = m.auth.Validate(ctx, creds)
		if err != nil {
			if !rejected(err) {
				m.unavailable(w, logger, err)
				return
			}
			logger.Warn("refreshed access token rejected", zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid token")
			return
		}

		logger.Debug("access token refreshed", zap.Int64("user_id", user.ID))
		r.Header.Set("Authorization", "Bearer "+newToken)
		w.Header().Set(NewAccessTokenHeader, newToken)
		m.forward(w, r, next, user)
	})
}

// forward attaches the identity header and hands the request on
func (m *Mediator) forward(w http.ResponseWriter, r *http.Request, next http.Handler, user models.UserContext) {
	r.Header.Del(middleware.UserContextHeader)
	r.Header.Del(middleware.UserContextSignatureHeader)

	value, err := json.Marshal(user)
	if err != nil {
		m.unavailable(w, observability.FromContext(r.Context(), m.logger), err)
		return
	}
	r.Header.Set(middleware.UserContextHeader, string(value))

	if m.secret != nil {
		sig, err := middleware.SignUserContext(m.secret, string(value))
		if err != nil {
			m.unavailable(w, observability.FromContext(r.Context(), m.logger), err)
			return
		}
		r.Header.Set(middleware.UserContextSignatureHeader, sig)
	}

	next.ServeHTTP(w, r.WithContext(middleware.WithUserContext(r.Context(), user)))
}

func (m *Mediator) unavailable(w http.ResponseWriter, logger *zap.Logger, err error) {
	logger.Error("auth service call failed", zap.Error(err))
	_ = utils.WriteServiceUnavailable(w, "Unable to validate authentication")
}

// rejected reports whether the auth service answered and said no
func rejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// canRefresh reports whether a failed validate may be retried with the refresh token
func canRefresh(err error, creds Credentials) bool {
	if creds.RefreshToken == "" {
		return false
	}
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.IsUnauthorized()
}
