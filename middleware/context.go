package middleware

import (
	"context"

	"github.com/upb/ip-registry/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// UserContextKey is the context key for the verified caller identity
	UserContextKey contextKey = "user_context"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetUserContext retrieves the caller identity from context
func GetUserContext(ctx context.Context) (models.UserContext, bool) {
	if val := ctx.Value(UserContextKey); val != nil {
		if user, ok := val.(models.UserContext); ok {
			return user, true
		}
	}
	return models.UserContext{}, false
}

// WithUserContext adds the caller identity to the context
func WithUserContext(ctx context.Context, user models.UserContext) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}
