package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/ip-registry/models"
)

// IntakePath is the app service route that accepts audit events
const IntakePath = "/api/internal/audit-log"

// HTTPSink posts audit entries to the app service intake
type HTTPSink struct {
	url        string
	httpClient *http.Client
}

// NewHTTPSink creates a sink posting to {baseURL}/api/internal/audit-log
func NewHTTPSink(baseURL string, timeout time.Duration) *HTTPSink {
	return &HTTPSink{
		url: strings.TrimRight(baseURL, "/") + IntakePath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Insert posts log and fails on transport errors or a non-2xx status
func (h *HTTPSink) Insert(ctx context.Context, log *models.AuditLog) error {
	body, err := json.Marshal(log.Event())
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("audit intake request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("audit intake returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
