package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/ip-registry/models"
)

// Auth service routes called by the gateway
const (
	validatePath = "/api/auth/validate"
	refreshPath  = "/api/auth/refresh"
)

// maxAuthResponseBytes bounds the validate/refresh bodies read by the gateway
const maxAuthResponseBytes = 64 << 10

var (
	// ErrRejected means the auth service answered with a 4xx status
	ErrRejected = errors.New("auth service rejected the credentials")

	// ErrUnavailable means the auth service could not be reached or answered 5xx
	ErrUnavailable = errors.New("auth service unavailable")
)

// AuthError describes a failed validate or refresh call
type AuthError struct {
	Op         string
	StatusCode int
	Kind       error
	Err        error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is
func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsUnauthorized reports whether the auth service answered 401
func (e *AuthError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// Credentials are the caller's tokens as presented to the gateway
type Credentials struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// AuthClient calls the auth service validate and refresh endpoints
type AuthClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAuthClient creates a client for the auth service at baseURL.
// timeout bounds each call; zero means 10s.
func NewAuthClient(baseURL string, timeout time.Duration) *AuthClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &AuthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type validateData struct {
	Valid     bool               `json:"valid"`
	User      models.UserSummary `json:"user"`
	SessionID string             `json:"session_id"`
}

type refreshData struct {
	AccessToken string `json:"access_token"`
}

// Validate resolves the identity behind an access token
func (c *AuthClient) Validate(ctx context.Context, creds Credentials) (models.UserContext, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+validatePath, nil)
	if err != nil {
		return models.UserContext{}, &AuthError{Op: "validate", Kind: ErrUnavailable, Err: err}
	}
	c.setHeaders(req, creds)

	var data validateData
	if err := c.do(req, "validate", &data); err != nil {
		return models.UserContext{}, err
	}
	if !data.Valid || data.User.ID == 0 {
		return models.UserContext{}, &AuthError{Op: "validate", StatusCode: http.StatusUnauthorized, Kind: ErrRejected}
	}

	return models.UserContext{
		ID:           data.User.ID,
		Email:        data.User.Email,
		IsSuperAdmin: data.User.IsSuperAdmin,
		SessionID:    data.SessionID,
	}, nil
}

// Refresh redeems the refresh token and returns a new access token
func (c *AuthClient) Refresh(ctx context.Context, creds Credentials) (string, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": creds.RefreshToken})
	if err != nil {
		return "", &AuthError{Op: "refresh", Kind: ErrUnavailable, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		return "", &AuthError{Op: "refresh", Kind: ErrUnavailable, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req, creds)

	var data refreshData
	if err := c.do(req, "refresh", &data); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", &AuthError{Op: "refresh", Kind: ErrUnavailable, Err: errors.New("response carried no access token")}
	}
	return data.AccessToken, nil
}

func (c *AuthClient) setHeaders(req *http.Request, creds Credentials) {
	req.Header.Set("Accept", "application/json")
	if creds.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}
	if creds.SessionID != "" {
		req.Header.Set("X-Session-ID", creds.SessionID)
	}
}

// do sends req and decodes the data member of a 2xx envelope into out
func (c *AuthClient) do(req *http.Request, op string, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AuthError{Op: op, Kind: ErrUnavailable, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthResponseBytes))
	if err != nil {
		return &AuthError{Op: op, StatusCode: resp.StatusCode, Kind: ErrUnavailable, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return &AuthError{Op: op, StatusCode: resp.StatusCode, Kind: ErrUnavailable}
	case resp.StatusCode >= 400:
		return &AuthError{Op: op, StatusCode: resp.StatusCode, Kind: ErrRejected}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &AuthError{Op: op, StatusCode: resp.StatusCode, Kind: ErrUnavailable}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &AuthError{Op: op, StatusCode: resp.StatusCode, Kind: ErrUnavailable, Err: err}
	}
	if len(env.Data) == 0 {
		return &AuthError{Op: op, StatusCode: resp.StatusCode, Kind: ErrUnavailable, Err: errors.New("response carried no data")}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &AuthError{Op: op, StatusCode: resp.StatusCode, Kind: ErrUnavailable, Err: err}
	}
	return nil
}
