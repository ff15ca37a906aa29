package tokens

import "time"

// Type discriminates access tokens from refresh tokens
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Default lifetimes
const (
	AccessTTL  = 3600 * time.Second
	RefreshTTL = 604800 * time.Second
)

// Claims is the payload carried by both token kinds. Access tokens carry
// Email, IsSuperAdmin and SessionID; refresh tokens carry AccessJTI.
type Claims struct {
	Subject      int64  `json:"sub"`
	Email        string `json:"email,omitempty"`
	IsSuperAdmin bool   `json:"is_super_admin,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	AccessJTI    string `json:"access_jti,omitempty"`
	Type         Type   `json:"type"`
	JTI          string `json:"jti"`
	IssuedAt     int64  `json:"iat"`
	ExpiresAt    int64  `json:"exp"`
}

// AccessClaims builds the claims of an access token
func AccessClaims(userID int64, email string, isSuperAdmin bool, sessionID string) Claims {
	return Claims{
		Subject:      userID,
		Email:        email,
		IsSuperAdmin: isSuperAdmin,
		SessionID:    sessionID,
		Type:         TypeAccess,
	}
}

// RefreshClaims builds the claims of a refresh token paired with accessJTI.
// The session id is carried so a refresh can recover it without the
// X-Session-ID header.
func RefreshClaims(userID int64, accessJTI, sessionID string) Claims {
	return Claims{
		Subject:   userID,
		AccessJTI: accessJTI,
		SessionID: sessionID,
		Type:      TypeRefresh,
	}
}

// IsAccess reports whether the claims belong to an access token
func (c *Claims) IsAccess() bool {
	return c.Type == TypeAccess
}

// IsRefresh reports whether the claims belong to a refresh token
func (c *Claims) IsRefresh() bool {
	return c.Type == TypeRefresh
}

// Expiry returns the expiry as a time
func (c *Claims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}
