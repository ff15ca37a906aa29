package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/mileusna/useragent"
)

// UnknownDevice is stored when the client sends no User-Agent
const UnknownDevice = "Unknown device"

// ActiveSession is the server-side record of the single live access token of a user
type ActiveSession struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	TokenJTI   string    `json:"token_jti" db:"token_jti"`
	DeviceInfo string    `json:"device_info" db:"device_info"`
	IPAddress  string    `json:"ip_address" db:"ip_address"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the ActiveSession model
func (ActiveSession) TableName() string {
	return "active_sessions"
}

// NewActiveSession creates a session for the given access token
func NewActiveSession(userID int64, tokenJTI, deviceInfo, ipAddress string, expiresAt time.Time) *ActiveSession {
	now := time.Now()
	return &ActiveSession{
		UserID:     userID,
		TokenJTI:   tokenJTI,
		DeviceInfo: deviceInfo,
		IPAddress:  ipAddress,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsActive reports whether the session has not yet expired at now
func (s *ActiveSession) IsActive(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// DeviceDescriptor turns a raw User-Agent header into a short description
// such as "Chrome 120.0.0.0 (Windows 10, Desktop)".
func DeviceDescriptor(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return UnknownDevice
	}

	ua := useragent.Parse(userAgent)
	if ua.Name == "" {
		return truncate(userAgent, 255)
	}

	browser := ua.Name
	if ua.Version != "" {
		browser = fmt.Sprintf("%s %s", ua.Name, ua.Version)
	}

	var details []string
	if ua.OS != "" {
		os := ua.OS
		if ua.OSVersion != "" {
			os = fmt.Sprintf("%s %s", ua.OS, ua.OSVersion)
		}
		details = append(details, os)
	}
	switch {
	case ua.Bot:
		details = append(details, "Bot")
	case ua.Tablet:
		details = append(details, "Tablet")
	case ua.Mobile:
		details = append(details, "Mobile")
	case ua.Desktop:
		details = append(details, "Desktop")
	}

	if len(details) == 0 {
		return truncate(browser, 255)
	}
	return truncate(fmt.Sprintf("%s (%s)", browser, strings.Join(details, ", ")), 255)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
