package models

import (
	"net/netip"
	"time"
)

// IP versions stored in ip_addresses.ip_version
const (
	IPVersion4 = "IPv4"
	IPVersion6 = "IPv6"
)

// EntityTypeIPAddress is the audit entity type for IP address rows
const EntityTypeIPAddress = "ip_address"

// IPAddress is an entry in the IP address registry
type IPAddress struct {
	ID        int64      `json:"id" db:"id"`
	IPAddress string     `json:"ip_address" db:"ip_address"`
	IPVersion string     `json:"ip_version" db:"ip_version"`
	Label     string     `json:"label" db:"label"`
	Comment   *string    `json:"comment" db:"comment"`
	CreatedBy string     `json:"created_by" db:"created_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// TableName returns the table name for the IPAddress model
func (IPAddress) TableName() string {
	return "ip_addresses"
}

// NewIPAddress creates a registry entry. It returns false when address is not
// a valid IPv4 or IPv6 literal.
func NewIPAddress(address, label string, comment *string, createdBy string) (*IPAddress, bool) {
	version, ok := DetectIPVersion(address)
	if !ok {
		return nil, false
	}
	now := time.Now()
	return &IPAddress{
		IPAddress: address,
		IPVersion: version,
		Label:     label,
		Comment:   comment,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}, true
}

// DetectIPVersion classifies address as IPv4 or IPv6.
// IPv4-mapped IPv6 literals such as ::ffff:10.0.0.1 are reported as IPv6.
func DetectIPVersion(address string) (string, bool) {
	addr, err := netip.ParseAddr(address)
	if err != nil || addr.Zone() != "" {
		return "", false
	}
	if addr.Is4() {
		return IPVersion4, true
	}
	return IPVersion6, true
}

// CanBeModifiedBy reports whether the caller may edit this entry
func (ip *IPAddress) CanBeModifiedBy(email string, isSuperAdmin bool) bool {
	return isSuperAdmin || ip.CreatedBy == email
}

// IsDeleted reports whether the entry was soft deleted
func (ip *IPAddress) IsDeleted() bool {
	return ip.DeletedAt != nil
}

// AuditValues returns the fields recorded in audit old/new values
func (ip *IPAddress) AuditValues() map[string]interface{} {
	return map[string]interface{}{
		"ip_address": ip.IPAddress,
		"label":      ip.Label,
		"comment":    ip.Comment,
	}
}
