package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/repositories"
	"go.uber.org/zap"
)

var refreshRowColumns = []string{"id", "user_id", "token_jti", "access_token_jti", "expires_at", "revoked", "created_at", "updated_at"}

func TestRefreshTokenRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	expires := time.Now().Add(7 * 24 * time.Hour)

	mock.ExpectQuery("INSERT INTO refresh_tokens").
		WithArgs(int64(2), "refresh-1", "access-1", expires, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	grant := models.NewRefreshToken(2, "refresh-1", "access-1", expires)
	require.NoError(t, NewRefreshTokenRepository(db, zap.NewNop()).Create(context.Background(), grant))
	assert.Equal(t, int64(5), grant.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_FindValid(t *testing.T) {
	now := time.Now()

	t.Run("valid grant", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT (.+) FROM refresh_tokens WHERE token_jti = \\$1 AND revoked = FALSE AND expires_at > \\$2").
			WithArgs("refresh-1", now).
			WillReturnRows(sqlmock.NewRows(refreshRowColumns).
				AddRow(5, 2, "refresh-1", "access-1", now.Add(time.Hour), false, now, now))

		grant, err := NewRefreshTokenRepository(db, zap.NewNop()).FindValid(context.Background(), "refresh-1", now)
		require.NoError(t, err)
		assert.Equal(t, "access-1", grant.AccessTokenJTI)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("revoked or expired grant is not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT (.+) FROM refresh_tokens").
			WillReturnRows(sqlmock.NewRows(refreshRowColumns))

		grant, err := NewRefreshTokenRepository(db, zap.NewNop()).FindValid(context.Background(), "refresh-1", now)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		assert.Nil(t, grant)
	})
}

func TestRefreshTokenRepository_LinkNewAccessJTI(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs(int64(5), "access-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	grant := &models.RefreshToken{ID: 5, AccessTokenJTI: "access-1"}
	require.NoError(t, NewRefreshTokenRepository(db, zap.NewNop()).LinkNewAccessJTI(context.Background(), grant, "access-2"))
	assert.Equal(t, "access-2", grant.AccessTokenJTI)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_RevokeAllForAccessJTI(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("UPDATE refresh_tokens\\s+SET revoked = TRUE").
		WithArgs(int64(2), "access-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewRefreshTokenRepository(db, zap.NewNop()).RevokeAllForAccessJTI(context.Background(), 2, "access-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
