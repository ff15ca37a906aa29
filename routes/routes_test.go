package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/ip-registry/app"
	"github.com/upb/ip-registry/config"
	"github.com/upb/ip-registry/middleware"
	"go.uber.org/zap/zaptest"
)

func testConfig(authURL, appURL string) *config.Config {
	return &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{ShutdownTimeout: time.Second},
		Services: config.ServicesConfig{
			AuthServiceURL:  authURL,
			AppServiceURL:   appURL,
			UpstreamTimeout: time.Second,
			ProxyTimeout:    time.Second,
		},
	}
}

func TestSetupAuthRoutes(t *testing.T) {
	deps := &app.Dependencies{Config: testConfig("http://auth", "http://app"), Logger: zaptest.NewLogger(t)}
	ts := httptest.NewServer(SetupAuthRoutes(deps))
	defer ts.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	})

	t.Run("login body is validated before the service is called", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/auth/me")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, false, body["success"])
	})
}

func TestSetupAppRoutes(t *testing.T) {
	deps := &app.Dependencies{Config: testConfig("http://auth", "http://app"), Logger: zaptest.NewLogger(t)}
	ts := httptest.NewServer(SetupAppRoutes(deps))
	defer ts.Close()

	userContext := `{"id":3,"email":"jane@ad-group.com.au","is_super_admin":false,"session_id":"sess-3"}`

	testCases := []struct {
		name           string
		method         string
		path           string
		identity       string
		body           string
		expectedStatus int
	}{
		{"ready without stores", http.MethodGet, "/readyz", "", "", http.StatusOK},
		{"list requires identity", http.MethodGet, "/api/ip-addresses", "", "", http.StatusUnauthorized},
		{"update requires identity", http.MethodPut, "/api/ip-addresses/1", "", `{}`, http.StatusUnauthorized},
		{"session logs require identity", http.MethodGet, "/api/audit-logs/session", "", "", http.StatusUnauthorized},
		{"all logs require super admin", http.MethodGet, "/api/audit-logs/all", userContext, "", http.StatusForbidden},
		{"create body is validated", http.MethodPost, "/api/ip-addresses", userContext, `{"ip_address":"nope"}`, http.StatusUnprocessableEntity},
		{"delete with a bad id", http.MethodDelete, "/api/ip-addresses/x", userContext, "", http.StatusNotFound},
		{"internal intake needs no identity", http.MethodPost, "/api/internal/audit-log", "", `{`, http.StatusBadRequest},
		{"not found", http.MethodGet, "/api/nonexistent", "", "", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, ts.URL+tc.path, strings.NewReader(tc.body))
			require.NoError(t, err)
			if tc.identity != "" {
				req.Header.Set(middleware.UserContextHeader, tc.identity)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "endpoint: %s %s", tc.method, tc.path)
		})
	}
}

func TestSetupGatewayRoutes(t *testing.T) {
	var (
		mu            sync.Mutex
		upstreamPaths []string
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		upstreamPaths = append(upstreamPaths, r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer upstream.Close()

	deps, err := app.NewGatewayDependencies(testConfig(upstream.URL, upstream.URL), zaptest.NewLogger(t))
	require.NoError(t, err)
	ts := httptest.NewServer(SetupGatewayRoutes(deps))
	defer ts.Close()

	testCases := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"login is public", http.MethodPost, "/api/auth/login", http.StatusOK},
		{"refresh is public", http.MethodPost, "/api/auth/refresh", http.StatusOK},
		{"logout needs a token", http.MethodPost, "/api/auth/logout", http.StatusUnauthorized},
		{"registry needs a token", http.MethodGet, "/api/ip-addresses", http.StatusUnauthorized},
		{"registry item needs a token", http.MethodDelete, "/api/ip-addresses/3", http.StatusUnauthorized},
		{"audit logs need a token", http.MethodGet, "/api/audit-logs/all", http.StatusUnauthorized},
		{"internal intake is not routed", http.MethodPost, "/api/internal/audit-log", http.StatusNotFound},
		{"health", http.MethodGet, "/healthz", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, ts.URL+tc.path, strings.NewReader(`{}`))
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "endpoint: %s %s", tc.method, tc.path)
		})
	}

	mu.Lock()
	assert.Equal(t, []string{"/api/auth/login", "/api/auth/refresh"}, upstreamPaths)
	mu.Unlock()

	t.Run("CORS preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/ip-addresses", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "GET")
		req.Header.Set("Access-Control-Request-Headers", "Authorization, X-Refresh-Token")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, strings.ToLower(resp.Header.Get("Access-Control-Allow-Headers")), "x-refresh-token")
	})
}
