package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/ip-registry/models"
)

const validateBody = `{
	"success": true,
	"data": {
		"valid": true,
		"user": {"id": 2, "name": "John Doe", "email": "john@ad-group.com.au", "is_super_admin": false},
		"session_id": "sess-1"
	}
}`

func TestAuthClient_Validate(t *testing.T) {
	t.Run("live token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, validatePath, r.URL.Path)
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "Bearer a.b.c", r.Header.Get("Authorization"))
			assert.Equal(t, "sess-1", r.Header.Get("X-Session-ID"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(validateBody))
		}))
		defer server.Close()

		client := NewAuthClient(server.URL+"/", time.Second)
		user, err := client.Validate(context.Background(), Credentials{AccessToken: "a.b.c", SessionID: "sess-1"})

		require.NoError(t, err)
		assert.Equal(t, models.UserContext{ID: 2, Email: "john@ad-group.com.au", SessionID: "sess-1"}, user)
	})

	tests := []struct {
		name         string
		status       int
		body         string
		wantKind     error
		unauthorized bool
	}{
		{"expired token", http.StatusUnauthorized, `{"success":false,"message":"Token expired","errors":{"valid":false}}`, ErrRejected, true},
		{"wrong token type", http.StatusForbidden, `{"success":false,"message":"nope"}`, ErrRejected, false},
		{"auth service failure", http.StatusInternalServerError, `{"success":false,"message":"boom"}`, ErrUnavailable, false},
		{"not an envelope", http.StatusOK, `<html></html>`, ErrUnavailable, false},
		{"envelope without data", http.StatusOK, `{"success":true}`, ErrUnavailable, false},
		{"invalid identity", http.StatusOK, `{"success":true,"data":{"valid":false}}`, ErrRejected, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewAuthClient(server.URL, time.Second).Validate(context.Background(), Credentials{AccessToken: "a.b.c"})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			var authErr *AuthError
			require.True(t, errors.As(err, &authErr))
			assert.Equal(t, tt.unauthorized, authErr.IsUnauthorized())
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := NewAuthClient(url, time.Second).Validate(context.Background(), Credentials{AccessToken: "a.b.c"})
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("slow auth service", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		_, err := NewAuthClient(server.URL, 50*time.Millisecond).Validate(context.Background(), Credentials{AccessToken: "a.b.c"})
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestAuthClient_Refresh(t *testing.T) {
	t.Run("new access token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, refreshPath, r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer old.t.k", r.Header.Get("Authorization"))
			assert.Equal(t, "sess-1", r.Header.Get("X-Session-ID"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "r.t.k", body["refresh_token"])

			_, _ = w.Write([]byte(`{"success":true,"message":"Token refreshed successfully","data":{"access_token":"n.e.w","token_type":"Bearer","expires_in":3600}}`))
		}))
		defer server.Close()

		token, err := NewAuthClient(server.URL, time.Second).Refresh(context.Background(),
			Credentials{AccessToken: "old.t.k", RefreshToken: "r.t.k", SessionID: "sess-1"})

		require.NoError(t, err)
		assert.Equal(t, "n.e.w", token)
	})

	t.Run("grant rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Token refresh failed","errors":{"error":"Invalid or expired refresh token"}}`))
		}))
		defer server.Close()

		_, err := NewAuthClient(server.URL, time.Second).Refresh(context.Background(), Credentials{RefreshToken: "r.t.k"})
		assert.ErrorIs(t, err, ErrRejected)
	})

	t.Run("missing access token in response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
		}))
		defer server.Close()

		_, err := NewAuthClient(server.URL, time.Second).Refresh(context.Background(), Credentials{RefreshToken: "r.t.k"})
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestAuthError_Error(t *testing.T) {
	err := &AuthError{Op: "validate", StatusCode: 503, Kind: ErrUnavailable}
	assert.Equal(t, "validate: auth service unavailable (status 503)", err.Error())

	wrapped := &AuthError{Op: "refresh", Kind: ErrUnavailable, Err: errors.New("dial tcp: refused")}
	assert.Equal(t, "refresh: auth service unavailable: dial tcp: refused", wrapped.Error())
}
