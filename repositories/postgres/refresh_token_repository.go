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

// RefreshTokenRepository implements the repositories.RefreshTokenRepository interface
type RefreshTokenRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(db *DB, logger *zap.Logger) repositories.RefreshTokenRepository {
	return &RefreshTokenRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a grant
func (r *RefreshTokenRepository) Create(ctx context.Context, grant *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token_jti, access_token_jti, expires_at, revoked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		grant.UserID,
		grant.TokenJTI,
		grant.AccessTokenJTI,
		grant.ExpiresAt,
		grant.Revoked,
		grant.CreatedAt,
		grant.UpdatedAt,
	).Scan(&grant.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrDuplicate
		}
		return fmt.Errorf("failed to create refresh token: %w", err)
	}

	r.logger.Debug("refresh token created", zap.Int64("id", grant.ID), zap.Int64("user_id", grant.UserID))
	return nil
}

// FindValid returns the unrevoked grant with the given jti if it expires after now
func (r *RefreshTokenRepository) FindValid(ctx context.Context, jti string, now time.Time) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_jti, access_token_jti, expires_at, revoked, created_at, updated_at
		FROM refresh_tokens
		WHERE token_jti = $1 AND revoked = FALSE AND expires_at > $2
	`

	executor := GetExecutor(ctx, r.db)
	grant := &models.RefreshToken{}

	err := executor.QueryRowContext(ctx, query, jti, now).Scan(
		&grant.ID,
		&grant.UserID,
		&grant.TokenJTI,
		&grant.AccessTokenJTI,
		&grant.ExpiresAt,
		&grant.Revoked,
		&grant.CreatedAt,
		&grant.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return grant, nil
}

// LinkNewAccessJTI pairs the grant with a newly minted access token
func (r *RefreshTokenRepository) LinkNewAccessJTI(ctx context.Context, grant *models.RefreshToken, newAccessJTI string) error {
	query := `
		UPDATE refresh_tokens
		SET access_token_jti = $2,
		    updated_at = $3
		WHERE id = $1
	`

	now := time.Now()
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, grant.ID, newAccessJTI, now)
	if err != nil {
		return fmt.Errorf("failed to link access token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repositories.ErrNotFound
	}

	grant.AccessTokenJTI = newAccessJTI
	grant.UpdatedAt = now
	return nil
}

// RevokeAllForAccessJTI revokes every grant paired with the access token
func (r *RefreshTokenRepository) RevokeAllForAccessJTI(ctx context.Context, userID int64, accessJTI string) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE,
		    updated_at = $3
		WHERE user_id = $1 AND access_token_jti = $2 AND revoked = FALSE
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, userID, accessJTI, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Debug("refresh tokens revoked", zap.Int64("user_id", userID), zap.Int64("count", rowsAffected))
	return rowsAffected, nil
}
