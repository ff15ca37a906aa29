package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/repositories"
	"go.uber.org/zap"
)

var userRowColumns = []string{"id", "name", "email", "password", "is_super_admin", "created_at", "updated_at"}

func TestUserRepository_GetByEmail(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		want    *models.User
		wantErr error
	}{
		{
			name: "found",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM users WHERE email = \\$1").
					WithArgs("john@ad-group.com.au").
					WillReturnRows(sqlmock.NewRows(userRowColumns).
						AddRow(2, "John Doe", "john@ad-group.com.au", "hash", false, now, now))
			},
			want: &models.User{ID: 2, Name: "John Doe", Email: "john@ad-group.com.au", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now},
		},
		{
			name: "not found",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM users WHERE email = \\$1").
					WithArgs("john@ad-group.com.au").
					WillReturnRows(sqlmock.NewRows(userRowColumns))
			},
			wantErr: repositories.ErrNotFound,
		},
		{
			name: "database error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM users WHERE email = \\$1").
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: errors.New("failed to get user"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setup(mock)
			repo := NewUserRepository(db, zap.NewNop())

			user, err := repo.GetByEmail(context.Background(), "john@ad-group.com.au")
			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, repositories.ErrNotFound) {
					assert.ErrorIs(t, err, repositories.ErrNotFound)
				} else {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, user)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_LockByID(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "Admin", "admin@ad-group.com.au", "hash", true, now, now))

	user, err := NewUserRepository(db, zap.NewNop()).LockByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, user.IsSuperAdmin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	now := time.Now()

	t.Run("inserts new user", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("INSERT INTO users (.+) ON CONFLICT \\(email\\) DO NOTHING").
			WithArgs("Jane", "jane@ad-group.com.au", "hash", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

		user := &models.User{Name: "Jane", Email: "jane@ad-group.com.au", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now}
		require.NoError(t, NewUserRepository(db, zap.NewNop()).Create(context.Background(), user))
		assert.Equal(t, int64(3), user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing email loads stored id", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("INSERT INTO users").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery("SELECT (.+) FROM users WHERE email = \\$1").
			WithArgs("jane@ad-group.com.au").
			WillReturnRows(sqlmock.NewRows(userRowColumns).
				AddRow(9, "Jane", "jane@ad-group.com.au", "old-hash", false, now, now))

		user := &models.User{Name: "Jane", Email: "jane@ad-group.com.au", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now}
		require.NoError(t, NewUserRepository(db, zap.NewNop()).Create(context.Background(), user))
		assert.Equal(t, int64(9), user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
