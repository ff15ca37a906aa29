package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/repositories"
	"go.uber.org/zap"
)

const sessionColumns = `id, user_id, token_jti, device_info, ip_address, expires_at, created_at, updated_at`

// SessionRepository implements the repositories.SessionRepository interface
type SessionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB, logger *zap.Logger) repositories.SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a session. The UNIQUE(user_id) constraint turns a lost
// login race into repositories.ErrDuplicate.
func (r *SessionRepository) Create(ctx context.Context, session *models.ActiveSession) error {
	query := `
		INSERT INTO active_sessions (user_id, token_jti, device_info, ip_address, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		session.UserID,
		session.TokenJTI,
		session.DeviceInfo,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	).Scan(&session.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrDuplicate
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	r.logger.Debug("session created", zap.Int64("id", session.ID), zap.Int64("user_id", session.UserID))
	return nil
}

// FindActive returns the user's session if it expires after now
func (r *SessionRepository) FindActive(ctx context.Context, userID int64, now time.Time) (*models.ActiveSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM active_sessions
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY expires_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, userID, now)
}

// FindByJTI returns the session for the access token regardless of expiry
func (r *SessionRepository) FindByJTI(ctx context.Context, userID int64, jti string) (*models.ActiveSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM active_sessions
		WHERE user_id = $1 AND token_jti = $2
	`
	return r.getOne(ctx, query, userID, jti)
}

// Replace updates the session in place with a new access token
func (r *SessionRepository) Replace(ctx context.Context, session *models.ActiveSession, newJTI string, newExpiry time.Time) error {
	query := `
		UPDATE active_sessions
		SET token_jti = $2,
		    expires_at = $3,
		    updated_at = $4
		WHERE id = $1
	`

	now := time.Now()
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, session.ID, newJTI, newExpiry, now)
	if err != nil {
		return fmt.Errorf("failed to replace session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repositories.ErrNotFound
	}

	session.TokenJTI = newJTI
	session.ExpiresAt = newExpiry
	session.UpdatedAt = now

	r.logger.Debug("session replaced", zap.Int64("id", session.ID))
	return nil
}

// DeleteByJTI removes the session for the access token
func (r *SessionRepository) DeleteByJTI(ctx context.Context, userID int64, jti string) (int64, error) {
	query := `DELETE FROM active_sessions WHERE user_id = $1 AND token_jti = $2`
	return r.delete(ctx, query, userID, jti)
}

// DeleteExpired removes the user's sessions that expired at or before now
func (r *SessionRepository) DeleteExpired(ctx context.Context, userID int64, now time.Time) (int64, error) {
	query := `DELETE FROM active_sessions WHERE user_id = $1 AND expires_at <= $2`
	return r.delete(ctx, query, userID, now)
}

func (r *SessionRepository) delete(ctx context.Context, query string, args ...interface{}) (int64, error) {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

func (r *SessionRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.ActiveSession, error) {
	executor := GetExecutor(ctx, r.db)
	s := &models.ActiveSession{}

	err := executor.QueryRowContext(ctx, query, args...).Scan(
		&s.ID,
		&s.UserID,
		&s.TokenJTI,
		&s.DeviceInfo,
		&s.IPAddress,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return s, nil
}
