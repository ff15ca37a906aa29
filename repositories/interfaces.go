package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/upb/ip-registry/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert violates a unique constraint
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context carrying the transaction.
	// Repositories called with it run their statements inside the transaction.
	Context() context.Context
}

// UserRepository handles principal lookups
type UserRepository interface {
	// Create inserts a user; an existing email is left untouched
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// LockByID retrieves a user and holds a row lock until the transaction ends
	LockByID(ctx context.Context, id int64) (*models.User, error)
}

// SessionRepository tracks the one live access token session of each user
type SessionRepository interface {
	// Create inserts a session; returns ErrDuplicate if the user already has a row
	Create(ctx context.Context, session *models.ActiveSession) error

	// FindActive returns the user's session if it expires after now
	FindActive(ctx context.Context, userID int64, now time.Time) (*models.ActiveSession, error)

	// FindByJTI returns the session for the access token regardless of expiry
	FindByJTI(ctx context.Context, userID int64, jti string) (*models.ActiveSession, error)

	// Replace updates the session in place with a new access token
	Replace(ctx context.Context, session *models.ActiveSession, newJTI string, newExpiry time.Time) error

	// DeleteByJTI removes the session for the access token
	DeleteByJTI(ctx context.Context, userID int64, jti string) (int64, error)

	// DeleteExpired removes the user's sessions that expired at or before now
	DeleteExpired(ctx context.Context, userID int64, now time.Time) (int64, error)
}

// RefreshTokenRepository tracks refresh grants
type RefreshTokenRepository interface {
	// Create inserts a grant
	Create(ctx context.Context, grant *models.RefreshToken) error

	// FindValid returns the unrevoked grant with the given jti if it expires after now
	FindValid(ctx context.Context, jti string, now time.Time) (*models.RefreshToken, error)

	// LinkNewAccessJTI pairs the grant with a newly minted access token
	LinkNewAccessJTI(ctx context.Context, grant *models.RefreshToken, newAccessJTI string) error

	// RevokeAllForAccessJTI revokes every grant paired with the access token
	RevokeAllForAccessJTI(ctx context.Context, userID int64, accessJTI string) (int64, error)
}

// IPAddressRepository handles the IP address registry
type IPAddressRepository interface {
	// List returns live entries newest first and the total live count
	List(ctx context.Context, limit, offset int) ([]*models.IPAddress, int, error)

	// GetByID retrieves a live entry
	GetByID(ctx context.Context, id int64) (*models.IPAddress, error)

	// GetByAddressWithTrashed retrieves an entry by address including soft-deleted ones
	GetByAddressWithTrashed(ctx context.Context, address string) (*models.IPAddress, error)

	// ExistsLive reports whether a live entry holds the address
	ExistsLive(ctx context.Context, address string) (bool, error)

	// AddressesByIDs maps ids to addresses, including soft-deleted entries
	AddressesByIDs(ctx context.Context, ids []int64) (map[int64]string, error)

	// Create inserts an entry; returns ErrDuplicate if a live entry holds the address
	Create(ctx context.Context, ip *models.IPAddress) error

	// Update stores label and comment changes
	Update(ctx context.Context, ip *models.IPAddress) error

	// SoftDelete marks the entry deleted at the given time
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

// AuditFilter narrows an audit log query. Nil fields are ignored.
type AuditFilter struct {
	UserID     *int64
	SessionID  *string
	Action     *models.AuditAction
	EntityType *string
	EntityID   *int64
	From       *time.Time
	To         *time.Time
}

// AuditRepository handles audit log data operations.
// Audit logs are append-only: there is no update or delete.
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// List returns entries matching filter newest first and the total match count
	List(ctx context.Context, filter AuditFilter, limit, offset int) ([]*models.AuditLog, int, error)
}

// Repositories aggregates the repositories of both databases.
// The auth service fills the auth fields, the app service the app fields.
type Repositories struct {
	Users         UserRepository
	Sessions      SessionRepository
	RefreshTokens RefreshTokenRepository
	IPAddresses   IPAddressRepository
	AuditLogs     AuditRepository
}
