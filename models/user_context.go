package models

// UserContext is the verified identity the gateway forwards in X-User-Context.
// IPAddress is the caller address seen by the downstream service and is not
// part of the header.
type UserContext struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	IsSuperAdmin bool   `json:"is_super_admin"`
	SessionID    string `json:"session_id"`
	IPAddress    string `json:"-"`
}
