package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeUnavailable  ErrorType = "unavailable"
)

// ErrorCode identifies the precise failure within a type
type ErrorCode string

const (
	CodeMalformedToken     ErrorCode = "MalformedToken"
	CodeInvalidSignature   ErrorCode = "InvalidSignature"
	CodeInvalidPayload     ErrorCode = "InvalidPayload"
	CodeTokenExpired       ErrorCode = "TokenExpired"
	CodeWrongTokenType     ErrorCode = "WrongTokenType"
	CodeTokenMissing       ErrorCode = "TokenMissing"
	CodeInvalidCredentials ErrorCode = "InvalidCredentials"
	CodeAlreadyLoggedIn    ErrorCode = "AlreadyLoggedIn"
	CodeGrantNotFound      ErrorCode = "GrantNotFound"
	CodeSessionNotFound    ErrorCode = "SessionNotFound"
	CodePrincipalNotFound  ErrorCode = "PrincipalNotFound"
	CodeServiceUnavailable ErrorCode = "ServiceUnavailable"
	CodeValidationFailed   ErrorCode = "ValidationFailed"
	CodeTooManyAttempts    ErrorCode = "TooManyAttempts"

	CodeIPAddressNotFound  ErrorCode = "IPAddressNotFound"
	CodeIPAddressExists    ErrorCode = "IPAddressExists"
	CodeNotResourceOwner   ErrorCode = "NotResourceOwner"
	CodeSuperAdminRequired ErrorCode = "SuperAdminRequired"
	CodeUnknownAuditAction ErrorCode = "UnknownAuditAction"
)

// DomainError represents a structured error with additional context.
// Message is safe to return to clients.
type DomainError struct {
	Type    ErrorType
	Code    ErrorCode
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	kind := string(e.Type)
	if e.Code != "" {
		kind = fmt.Sprintf("%s/%s", e.Type, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", kind, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code when the target carries one, otherwise on Type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Wrap returns a copy of e carrying err as its cause.
// Sentinels stay untouched so they remain usable as errors.Is targets.
func (e *DomainError) Wrap(err error) *DomainError {
	clone := *e
	clone.Err = err
	clone.Details = make(map[string]interface{}, len(e.Details))
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	return &clone
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// NewCodedError creates a domain error with a specific code
func NewCodedError(errType ErrorType, code ErrorCode, message string) *DomainError {
	e := NewDomainError(errType, message, nil)
	e.Code = code
	return e
}

// Domain error variables

var (
	// Token errors
	ErrMalformedToken   = NewCodedError(ErrorTypeUnauthorized, CodeMalformedToken, "Invalid token format")
	ErrInvalidSignature = NewCodedError(ErrorTypeUnauthorized, CodeInvalidSignature, "Invalid signature")
	ErrInvalidPayload   = NewCodedError(ErrorTypeUnauthorized, CodeInvalidPayload, "Invalid payload")
	ErrTokenExpired     = NewCodedError(ErrorTypeUnauthorized, CodeTokenExpired, "Token expired")
	ErrWrongTokenType   = NewCodedError(ErrorTypeUnauthorized, CodeWrongTokenType, "Invalid token type")
	ErrTokenMissing     = NewCodedError(ErrorTypeUnauthorized, CodeTokenMissing, "Token not provided")

	// Auth protocol errors
	ErrInvalidCredentials = NewCodedError(ErrorTypeUnauthorized, CodeInvalidCredentials, "Invalid credentials")
	ErrAlreadyLoggedIn    = NewCodedError(ErrorTypeForbidden, CodeAlreadyLoggedIn, "User already logged in on another device")
	ErrGrantNotFound      = NewCodedError(ErrorTypeUnauthorized, CodeGrantNotFound, "Invalid or expired refresh token")
	ErrSessionNotFound    = NewCodedError(ErrorTypeUnauthorized, CodeSessionNotFound, "Session not found or expired")
	ErrPrincipalNotFound  = NewCodedError(ErrorTypeUnauthorized, CodePrincipalNotFound, "User not found")
	ErrTooManyAttempts    = NewCodedError(ErrorTypeRateLimit, CodeTooManyAttempts, "Too many login attempts. Please try again later.")

	// Infrastructure errors
	ErrServiceUnavailable = NewCodedError(ErrorTypeUnavailable, CodeServiceUnavailable, "Service unavailable")
	ErrValidationFailed   = NewCodedError(ErrorTypeValidation, CodeValidationFailed, "Validation failed")

	// IP registry errors
	ErrIPAddressNotFound   = NewCodedError(ErrorTypeNotFound, CodeIPAddressNotFound, "IP address not found")
	ErrIPAddressExists     = NewCodedError(ErrorTypeConflict, CodeIPAddressExists, "IP address already exists")
	ErrNotResourceOwner    = NewCodedError(ErrorTypeForbidden, CodeNotResourceOwner, "You do not have permission to modify this IP address")
	ErrDeleteRequiresAdmin = NewCodedError(ErrorTypeForbidden, CodeSuperAdminRequired, "Only super admin can delete IP addresses")
	ErrSuperAdminRequired  = NewCodedError(ErrorTypeForbidden, CodeSuperAdminRequired, "Access denied. Super admin privileges required.")

	// Audit intake errors
	ErrUnknownAuditAction = NewCodedError(ErrorTypeValidation, CodeUnknownAuditAction, "Unknown action")

	// Generic errors
	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "Unauthorized", nil)
	ErrForbidden    = NewDomainError(ErrorTypeForbidden, "Access forbidden", nil)
	ErrNotFound     = NewDomainError(ErrorTypeNotFound, "Resource not found", nil)
	ErrInternal     = NewDomainError(ErrorTypeInternal, "Internal server error", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return GetErrorType(err) == ErrorTypeForbidden
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return GetErrorType(err) == ErrorTypeRateLimit
}

// IsUnavailableError checks if an error is an upstream unavailability error
func IsUnavailableError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnavailable
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorCode returns the ErrorCode of a domain error, or empty string
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// GetErrorMessage returns the client-facing message of a domain error
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
