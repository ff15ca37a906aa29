package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/services"
	"go.uber.org/zap"
)

// MockAuditRecorder mocks the audit intake
type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(ctx context.Context, event models.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestInternalHandler_HandleAuditLog(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		recordErr  error
		expectCall bool
		wantStatus int
		wantBody   string
	}{
		{
			name:       "login recorded",
			body:       `{"action":"LOGIN","user_id":2,"user_email":"john@ad-group.com.au","session_id":"sess-1","ip_address":"203.0.113.9"}`,
			expectCall: true,
			wantStatus: http.StatusOK,
			wantBody:   `{"message":"Audit log recorded successfully"}`,
		},
		{
			name:       "unknown action",
			body:       `{"action":"CREATE","user_id":2}`,
			recordErr:  services.ErrUnknownAuditAction,
			expectCall: true,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"message":"Unknown action: CREATE"}`,
		},
		{
			name:       "storage failure",
			body:       `{"action":"LOGOUT","user_id":2}`,
			recordErr:  services.WrapInternal("Failed to record audit log", assert.AnError),
			expectCall: true,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"message":"Failed to record audit log"}`,
		},
		{
			name:       "malformed body",
			body:       `{"action":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"message":"Unknown action: "}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := new(MockAuditRecorder)
			if tt.expectCall {
				recorder.On("Record", mock.Anything, mock.AnythingOfType("models.AuditEvent")).Return(tt.recordErr)
			}
			h := NewInternalHandler(recorder, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/api/internal/audit-log", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.HandleAuditLog(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			recorder.AssertExpectations(t)
		})
	}
}
