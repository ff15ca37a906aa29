package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// User tests
func TestNewUser(t *testing.T) {
	user, err := NewUser("John Doe", "john@ad-group.com.au", "password123", false)
	require.NoError(t, err)

	assert.Equal(t, "John Doe", user.Name)
	assert.Equal(t, "john@ad-group.com.au", user.Email)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.False(t, user.IsSuperAdmin)
	assert.False(t, user.CreatedAt.IsZero())
	assert.Equal(t, user.CreatedAt, user.UpdatedAt)
}

func TestUser_PasswordMatches(t *testing.T) {
	user, err := NewUser("Admin", "admin@ad-group.com.au", "admin123", true)
	require.NoError(t, err)

	assert.True(t, user.PasswordMatches("admin123"))
	assert.False(t, user.PasswordMatches("admin1234"))
	assert.False(t, user.PasswordMatches(""))
}

func TestUser_JSONHidesPassword(t *testing.T) {
	user := User{ID: 1, Name: "Jane", Email: "jane@ad-group.com.au", PasswordHash: "$2a$10$secret"}

	data, err := json.Marshal(user)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, string(data), "password")
}

func TestUser_Summary(t *testing.T) {
	user := User{ID: 7, Name: "Jane", Email: "jane@ad-group.com.au", IsSuperAdmin: true}

	assert.Equal(t, UserSummary{ID: 7, Name: "Jane", Email: "jane@ad-group.com.au", IsSuperAdmin: true}, user.Summary())
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "users", User{}.TableName())
	assert.Equal(t, "active_sessions", ActiveSession{}.TableName())
	assert.Equal(t, "refresh_tokens", RefreshToken{}.TableName())
	assert.Equal(t, "ip_addresses", IPAddress{}.TableName())
	assert.Equal(t, "audit_logs", AuditLog{}.TableName())
}

// Session tests
func TestActiveSession_IsActive(t *testing.T) {
	now := time.Now()

	live := NewActiveSession(1, "jti", "Chrome", "10.0.0.1", now.Add(time.Minute))
	expired := NewActiveSession(1, "jti", "Chrome", "10.0.0.1", now.Add(-time.Second))

	assert.True(t, live.IsActive(now))
	assert.False(t, expired.IsActive(now))
}

func TestDeviceDescriptor(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		contains  []string
	}{
		{
			name:      "empty user agent",
			userAgent: "",
			contains:  []string{UnknownDevice},
		},
		{
			name:      "desktop chrome",
			userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			contains:  []string{"Chrome", "Windows", "Desktop"},
		},
		{
			name:      "mobile safari",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			contains:  []string{"Safari", "iOS", "Mobile"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeviceDescriptor(tt.userAgent)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			assert.LessOrEqual(t, len(got), 255)
		})
	}
}

// RefreshToken tests
func TestRefreshToken_IsValid(t *testing.T) {
	now := time.Now()

	grant := NewRefreshToken(1, "refresh-jti", "access-jti", now.Add(time.Hour))
	assert.True(t, grant.IsValid(now))

	grant.Revoked = true
	assert.False(t, grant.IsValid(now))

	expired := NewRefreshToken(1, "refresh-jti", "access-jti", now.Add(-time.Hour))
	assert.False(t, expired.IsValid(now))
}

// IPAddress tests
func TestDetectIPVersion(t *testing.T) {
	tests := []struct {
		address string
		version string
		ok      bool
	}{
		{"192.168.1.1", IPVersion4, true},
		{"10.0.0.1", IPVersion4, true},
		{"2001:db8:85a3::8a2e:370:7334", IPVersion6, true},
		{"::1", IPVersion6, true},
		{"::ffff:10.0.0.1", IPVersion6, true},
		{"fe80::1%eth0", "", false},
		{"256.1.1.1", "", false},
		{"not-an-ip", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			version, ok := DetectIPVersion(tt.address)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.version, version)
		})
	}
}

func TestNewIPAddress(t *testing.T) {
	comment := "edge router"
	ip, ok := NewIPAddress("192.168.1.1", "Main Router", &comment, "john@ad-group.com.au")
	require.True(t, ok)

	assert.Equal(t, IPVersion4, ip.IPVersion)
	assert.Equal(t, "Main Router", ip.Label)
	assert.Equal(t, "john@ad-group.com.au", ip.CreatedBy)
	assert.False(t, ip.IsDeleted())

	_, ok = NewIPAddress("300.0.0.1", "Broken", nil, "john@ad-group.com.au")
	assert.False(t, ok)
}

func TestIPAddress_CanBeModifiedBy(t *testing.T) {
	ip := IPAddress{CreatedBy: "john@ad-group.com.au"}

	assert.True(t, ip.CanBeModifiedBy("john@ad-group.com.au", false))
	assert.True(t, ip.CanBeModifiedBy("admin@ad-group.com.au", true))
	assert.False(t, ip.CanBeModifiedBy("jane@ad-group.com.au", false))
}

// AuditLog tests
func TestNewAuditLog(t *testing.T) {
	log := NewAuditLog(AuditActionLogin, 3, "john@ad-group.com.au")

	assert.Equal(t, AuditActionLogin, log.Action)
	assert.Equal(t, int64(3), log.UserID)
	assert.Equal(t, "john@ad-group.com.au", log.UserEmail)
	assert.Nil(t, log.SessionID)
	assert.False(t, log.CreatedAt.IsZero())
}

func TestAuditLog_BuilderMethods(t *testing.T) {
	log := NewAuditLog(AuditActionUpdate, 3, "john@ad-group.com.au").
		WithSession("session-1").
		WithEntity(EntityTypeIPAddress, 42).
		WithIPAddress("10.0.0.9").
		WithOldValues(map[string]string{"label": "old"}).
		WithNewValues(map[string]string{"label": "new"}).
		WithMetadata(map[string]interface{}{"changes": map[string][]string{"label": {"old", "new"}}})

	assert.Equal(t, "session-1", *log.SessionID)
	assert.Equal(t, EntityTypeIPAddress, *log.EntityType)
	assert.Equal(t, int64(42), *log.EntityID)
	assert.Equal(t, "10.0.0.9", *log.IPAddress)
	assert.JSONEq(t, `{"label":"old"}`, string(log.OldValues))
	assert.JSONEq(t, `{"label":"new"}`, string(log.NewValues))
	assert.JSONEq(t, `{"changes":{"label":["old","new"]}}`, string(log.Metadata))
}

func TestAuditLog_EmptyBuilderValuesStayNull(t *testing.T) {
	log := NewAuditLog(AuditActionFailedLogin, 0, AnonymousEmail).
		WithSession("").
		WithIPAddress("").
		WithOldValues(nil)

	assert.Nil(t, log.SessionID)
	assert.Nil(t, log.IPAddress)
	assert.Nil(t, log.OldValues)
}

func TestIsKnownAction(t *testing.T) {
	for _, action := range []AuditAction{
		AuditActionLogin, AuditActionLogout, AuditActionFailedLogin,
		AuditActionCreate, AuditActionUpdate, AuditActionDelete,
	} {
		assert.True(t, IsKnownAction(action), string(action))
	}
	assert.False(t, IsKnownAction("PASSWORD_RESET"))
	assert.False(t, IsKnownAction("login"))
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		total    int
		wantLast int
	}{
		{"empty", 1, 0, 1},
		{"exact page", 1, 20, 1},
		{"one over", 2, 21, 2},
		{"many", 3, 95, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, DefaultPageSize, tt.total)
			assert.Equal(t, tt.wantLast, p.LastPage)
			assert.Equal(t, tt.page, p.CurrentPage)
			assert.Equal(t, DefaultPageSize, p.PerPage)
			assert.Equal(t, tt.total, p.Total)
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(0, 20))
	assert.Equal(t, 0, Offset(1, 20))
	assert.Equal(t, 40, Offset(3, 20))
}

func TestAuditLog_Event(t *testing.T) {
	entry := NewAuditLog(AuditActionLogin, 2, "john@ad-group.com.au").
		WithSession("sess-1").
		WithIPAddress("10.0.0.1")

	event := entry.Event()
	assert.Equal(t, AuditActionLogin, event.Action)
	assert.Equal(t, int64(2), event.UserID)
	assert.Equal(t, "sess-1", event.SessionID)
	assert.Equal(t, "10.0.0.1", event.IPAddress)
	assert.Nil(t, event.Metadata)
}
