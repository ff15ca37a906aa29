package models

import (
	"encoding/json"
	"time"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionLogin       AuditAction = "LOGIN"
	AuditActionLogout      AuditAction = "LOGOUT"
	AuditActionFailedLogin AuditAction = "FAILED_LOGIN"
	AuditActionCreate      AuditAction = "CREATE"
	AuditActionUpdate      AuditAction = "UPDATE"
	AuditActionDelete      AuditAction = "DELETE"
)

// Defaults used when an audit event carries no user
const (
	AnonymousEmail = "anonymous"
	UnknownEmail   = "unknown"
)

// AuditLog represents an append-only audit trail entry
type AuditLog struct {
	ID         int64           `json:"id" db:"id"`
	UserID     int64           `json:"user_id" db:"user_id"`
	UserEmail  string          `json:"user_email" db:"user_email"`
	SessionID  *string         `json:"session_id" db:"session_id"`
	Action     AuditAction     `json:"action" db:"action"`
	EntityType *string         `json:"entity_type" db:"entity_type"`
	EntityID   *int64          `json:"entity_id" db:"entity_id"`
	EntityIP   *string         `json:"entity_ip" db:"-"`
	OldValues  json.RawMessage `json:"old_values" db:"old_values"`
	NewValues  json.RawMessage `json:"new_values" db:"new_values"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	IPAddress  *string         `json:"ip_address" db:"ip_address"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(action AuditAction, userID int64, userEmail string) *AuditLog {
	return &AuditLog{
		UserID:    userID,
		UserEmail: userEmail,
		Action:    action,
		CreatedAt: time.Now(),
	}
}

// IsKnownAction reports whether action is one of the recorded audit actions
func IsKnownAction(action AuditAction) bool {
	switch action {
	case AuditActionLogin, AuditActionLogout, AuditActionFailedLogin,
		AuditActionCreate, AuditActionUpdate, AuditActionDelete:
		return true
	}
	return false
}

// WithSession sets the session ID
func (a *AuditLog) WithSession(sessionID string) *AuditLog {
	if sessionID != "" {
		a.SessionID = &sessionID
	}
	return a
}

// WithEntity sets the audited entity
func (a *AuditLog) WithEntity(entityType string, entityID int64) *AuditLog {
	a.EntityType = &entityType
	a.EntityID = &entityID
	return a
}

// WithIPAddress sets the caller address
func (a *AuditLog) WithIPAddress(ip string) *AuditLog {
	if ip != "" {
		a.IPAddress = &ip
	}
	return a
}

// WithOldValues sets the values before the change
func (a *AuditLog) WithOldValues(values interface{}) *AuditLog {
	a.OldValues = marshalOrNil(values)
	return a
}

// WithNewValues sets the values after the change
func (a *AuditLog) WithNewValues(values interface{}) *AuditLog {
	a.NewValues = marshalOrNil(values)
	return a
}

// WithMetadata sets free-form metadata
func (a *AuditLog) WithMetadata(metadata interface{}) *AuditLog {
	a.Metadata = marshalOrNil(metadata)
	return a
}

func marshalOrNil(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// AuditEvent is the wire form the auth service posts to the internal audit intake
type AuditEvent struct {
	Action    AuditAction     `json:"action" validate:"required"`
	UserID    int64           `json:"user_id"`
	UserEmail string          `json:"user_email,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	IPAddress string          `json:"ip_address,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Event converts the entry into its intake wire form
func (a *AuditLog) Event() AuditEvent {
	event := AuditEvent{
		Action:    a.Action,
		UserID:    a.UserID,
		UserEmail: a.UserEmail,
		Metadata:  a.Metadata,
	}
	if a.SessionID != nil {
		event.SessionID = *a.SessionID
	}
	if a.IPAddress != nil {
		event.IPAddress = *a.IPAddress
	}
	return event
}
