package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "resource not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Empty(t, domainErr.Code)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeNotFound,
				Message: "user not found",
				Err:     errors.New("db error"),
			},
			wantMsg: "not_found: user not found (db error)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "invalid input",
			},
			wantMsg: "validation: invalid input",
		},
		{
			name:    "coded error",
			err:     ErrAlreadyLoggedIn,
			wantMsg: "forbidden/AlreadyLoggedIn: User already logged in on another device",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeInternal, "internal error", baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(domainErr))
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "same code",
			err:    ErrGrantNotFound.Wrap(errors.New("sql: no rows")),
			target: ErrGrantNotFound,
			want:   true,
		},
		{
			name:   "same type different code",
			err:    ErrSessionNotFound,
			target: ErrGrantNotFound,
			want:   false,
		},
		{
			name:   "coded error matches generic type target",
			err:    ErrSessionNotFound,
			target: ErrUnauthorized,
			want:   true,
		},
		{
			name:   "different error type",
			err:    NewDomainError(ErrorTypeValidation, "validation", nil),
			target: ErrNotFound,
			want:   false,
		},
		{
			name:   "wrapped with fmt",
			err:    fmt.Errorf("login: %w", ErrInvalidCredentials),
			target: ErrInvalidCredentials,
			want:   true,
		},
		{
			name:   "not a domain error",
			err:    ErrNotFound,
			target: errors.New("regular error"),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)

	err.WithDetail("field", "email").WithDetail("value", "invalid-email")

	assert.Equal(t, "email", err.Details["field"])
	assert.Equal(t, "invalid-email", err.Details["value"])
}

func TestDomainError_WrapLeavesSentinelUntouched(t *testing.T) {
	cause := errors.New("boom")
	wrapped := ErrValidationFailed.Wrap(cause).WithDetail("email", []string{"required"})

	assert.Equal(t, cause, wrapped.Err)
	assert.Equal(t, CodeValidationFailed, wrapped.Code)
	assert.Contains(t, wrapped.Details, "email")

	assert.Nil(t, ErrValidationFailed.Err)
	assert.NotContains(t, ErrValidationFailed.Details, "email")
}

func TestErrorTypeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found", ErrIPAddressNotFound, IsNotFoundError, true},
		{"wrapped not found", fmt.Errorf("wrapped: %w", ErrIPAddressNotFound), IsNotFoundError, true},
		{"validation", ErrValidationFailed, IsValidationError, true},
		{"unknown audit action is validation", ErrUnknownAuditAction, IsValidationError, true},
		{"unauthorized", ErrTokenExpired, IsUnauthorizedError, true},
		{"forbidden", ErrAlreadyLoggedIn, IsForbiddenError, true},
		{"conflict", ErrIPAddressExists, IsConflictError, true},
		{"rate limit", ErrTooManyAttempts, IsRateLimitError, true},
		{"unavailable", ErrServiceUnavailable, IsUnavailableError, true},
		{"internal", WrapInternal("db", errors.New("down")), IsInternalError, true},
		{"forbidden is not unauthorized", ErrNotResourceOwner, IsUnauthorizedError, false},
		{"regular error", errors.New("regular"), IsNotFoundError, false},
		{"nil error", nil, IsNotFoundError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestGetErrorAccessors(t *testing.T) {
	err := fmt.Errorf("refresh: %w", ErrGrantNotFound.Wrap(errors.New("no rows")).WithDetail("reason", "revoked"))

	assert.Equal(t, ErrorTypeUnauthorized, GetErrorType(err))
	assert.Equal(t, CodeGrantNotFound, GetErrorCode(err))
	assert.Equal(t, "Invalid or expired refresh token", GetErrorMessage(err))
	require.NotNil(t, GetErrorDetails(err))
	assert.Equal(t, "revoked", GetErrorDetails(err)["reason"])

	regular := errors.New("regular error")
	assert.Empty(t, GetErrorType(regular))
	assert.Empty(t, GetErrorCode(regular))
	assert.Empty(t, GetErrorMessage(regular))
	assert.Nil(t, GetErrorDetails(regular))
}

func TestWrapInternal(t *testing.T) {
	baseErr := errors.New("database connection failed")
	wrapped := WrapInternal("failed to connect", baseErr)

	assert.True(t, IsInternalError(wrapped))
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}

func TestTaxonomyCodesAreDistinct(t *testing.T) {
	coded := []*DomainError{
		ErrMalformedToken, ErrInvalidSignature, ErrInvalidPayload, ErrTokenExpired,
		ErrWrongTokenType, ErrTokenMissing, ErrInvalidCredentials, ErrAlreadyLoggedIn,
		ErrGrantNotFound, ErrSessionNotFound, ErrPrincipalNotFound, ErrServiceUnavailable,
		ErrValidationFailed, ErrTooManyAttempts, ErrIPAddressNotFound, ErrIPAddressExists,
		ErrNotResourceOwner, ErrSuperAdminRequired, ErrUnknownAuditAction,
	}

	seen := make(map[ErrorCode]bool)
	for _, e := range coded {
		require.NotEmpty(t, e.Code, e.Message)
		assert.False(t, seen[e.Code], "duplicate code %s", e.Code)
		seen[e.Code] = true
		assert.NotEmpty(t, e.Message)
	}
}
