package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/utils"
	"go.uber.org/zap"
)

// IdentityMiddleware trusts the identity the gateway forwards in X-User-Context.
// With a secret configured, the header must carry a valid signature.
type IdentityMiddleware struct {
	secret []byte
	logger *zap.Logger
}

// NewIdentityMiddleware creates a new IdentityMiddleware. An empty secret
// disables signature checks.
func NewIdentityMiddleware(secret string, logger *zap.Logger) *IdentityMiddleware {
	m := &IdentityMiddleware{logger: logger}
	if secret != "" {
		m.secret = []byte(secret)
	}
	return m
}

// RequireUserContext rejects requests without a decodable identity header
func (m *IdentityMiddleware) RequireUserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		raw := r.Header.Get(UserContextHeader)
		if raw == "" {
			m.logger.Warn("missing user context", zap.String("request_id", requestID))
			_ = utils.WriteFailure(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}

		if m.secret != nil {
			if err := VerifyUserContext(m.secret, raw, r.Header.Get(UserContextSignatureHeader)); err != nil {
				m.logger.Warn("user context signature rejected",
					zap.String("request_id", requestID),
					zap.Error(err))
				_ = utils.WriteFailure(w, http.StatusUnauthorized, "Unauthorized", nil)
				return
			}
		}

		var user models.UserContext
		if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == 0 {
			m.logger.Warn("invalid user context",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteFailure(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		user.IPAddress = utils.ClientIP(r)

		m.logger.Debug("user context accepted",
			zap.String("request_id", requestID),
			zap.Int64("user_id", user.ID))

		next.ServeHTTP(w, r.WithContext(WithUserContext(ctx, user)))
	})
}

// RequireSuperAdmin allows only super admins through; run after RequireUserContext
func (m *IdentityMiddleware) RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user, ok := GetUserContext(ctx)
		if !ok {
			_ = utils.WriteFailure(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		if !user.IsSuperAdmin {
			m.logger.Warn("super admin required",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.Int64("user_id", user.ID))
			_ = utils.WriteFailure(w, http.StatusForbidden, "Access denied. Super admin privileges required.", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
