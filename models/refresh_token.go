package models

import "time"

// RefreshToken is the server-side grant that lets a refresh token be exchanged
// for a new access token
type RefreshToken struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	TokenJTI       string    `json:"token_jti" db:"token_jti"`
	AccessTokenJTI string    `json:"access_token_jti" db:"access_token_jti"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	Revoked        bool      `json:"revoked" db:"revoked"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the RefreshToken model
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// NewRefreshToken creates an unrevoked grant paired with an access token
func NewRefreshToken(userID int64, tokenJTI, accessTokenJTI string, expiresAt time.Time) *RefreshToken {
	now := time.Now()
	return &RefreshToken{
		UserID:         userID,
		TokenJTI:       tokenJTI,
		AccessTokenJTI: accessTokenJTI,
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsValid reports whether the grant is unrevoked and unexpired at now
func (r *RefreshToken) IsValid(now time.Time) bool {
	return !r.Revoked && r.ExpiresAt.After(now)
}
