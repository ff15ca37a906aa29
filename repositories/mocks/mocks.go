// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/repositories"
)

// TransactionManager is a mock implementation of repositories.TransactionManager
type TransactionManager struct {
	mock.Mock
}

func (m *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx.Context(), tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Transaction is a mock implementation of repositories.Transaction.
// Context returns Ctx, or context.Background when unset.
type Transaction struct {
	mock.Mock
	Ctx context.Context
}

func (m *Transaction) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *Transaction) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *Transaction) Context() context.Context {
	if m.Ctx != nil {
		return m.Ctx
	}
	return context.Background()
}

// ExpectTransaction makes txMgr hand out a transaction whose Commit and Rollback succeed
func ExpectTransaction(txMgr *TransactionManager) *Transaction {
	tx := &Transaction{}
	tx.On("Commit").Return(nil).Maybe()
	tx.On("Rollback").Return(nil).Maybe()
	txMgr.On("Begin", mock.Anything).Return(tx, nil)
	return tx
}

// UserRepository is a mock implementation of repositories.UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) LockByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// SessionRepository is a mock implementation of repositories.SessionRepository
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, session *models.ActiveSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *SessionRepository) FindActive(ctx context.Context, userID int64, now time.Time) (*models.ActiveSession, error) {
	args := m.Called(ctx, userID, now)
	if session := args.Get(0); session != nil {
		return session.(*models.ActiveSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) FindByJTI(ctx context.Context, userID int64, jti string) (*models.ActiveSession, error) {
	args := m.Called(ctx, userID, jti)
	if session := args.Get(0); session != nil {
		return session.(*models.ActiveSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Replace(ctx context.Context, session *models.ActiveSession, newJTI string, newExpiry time.Time) error {
	args := m.Called(ctx, session, newJTI, newExpiry)
	return args.Error(0)
}

func (m *SessionRepository) DeleteByJTI(ctx context.Context, userID int64, jti string) (int64, error) {
	args := m.Called(ctx, userID, jti)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SessionRepository) DeleteExpired(ctx context.Context, userID int64, now time.Time) (int64, error) {
	args := m.Called(ctx, userID, now)
	return args.Get(0).(int64), args.Error(1)
}

// RefreshTokenRepository is a mock implementation of repositories.RefreshTokenRepository
type RefreshTokenRepository struct {
	mock.Mock
}

func (m *RefreshTokenRepository) Create(ctx context.Context, grant *models.RefreshToken) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *RefreshTokenRepository) FindValid(ctx context.Context, jti string, now time.Time) (*models.RefreshToken, error) {
	args := m.Called(ctx, jti, now)
	if grant := args.Get(0); grant != nil {
		return grant.(*models.RefreshToken), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RefreshTokenRepository) LinkNewAccessJTI(ctx context.Context, grant *models.RefreshToken, newAccessJTI string) error {
	args := m.Called(ctx, grant, newAccessJTI)
	return args.Error(0)
}

func (m *RefreshTokenRepository) RevokeAllForAccessJTI(ctx context.Context, userID int64, accessJTI string) (int64, error) {
	args := m.Called(ctx, userID, accessJTI)
	return args.Get(0).(int64), args.Error(1)
}

// IPAddressRepository is a mock implementation of repositories.IPAddressRepository
type IPAddressRepository struct {
	mock.Mock
}

func (m *IPAddressRepository) List(ctx context.Context, limit, offset int) ([]*models.IPAddress, int, error) {
	args := m.Called(ctx, limit, offset)
	if ips := args.Get(0); ips != nil {
		return ips.([]*models.IPAddress), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func (m *IPAddressRepository) GetByID(ctx context.Context, id int64) (*models.IPAddress, error) {
	args := m.Called(ctx, id)
	if ip := args.Get(0); ip != nil {
		return ip.(*models.IPAddress), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *IPAddressRepository) GetByAddressWithTrashed(ctx context.Context, address string) (*models.IPAddress, error) {
	args := m.Called(ctx, address)
	if ip := args.Get(0); ip != nil {
		return ip.(*models.IPAddress), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *IPAddressRepository) ExistsLive(ctx context.Context, address string) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}

func (m *IPAddressRepository) AddressesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	args := m.Called(ctx, ids)
	if addresses := args.Get(0); addresses != nil {
		return addresses.(map[int64]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *IPAddressRepository) Create(ctx context.Context, ip *models.IPAddress) error {
	args := m.Called(ctx, ip)
	return args.Error(0)
}

func (m *IPAddressRepository) Update(ctx context.Context, ip *models.IPAddress) error {
	args := m.Called(ctx, ip)
	return args.Error(0)
}

func (m *IPAddressRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// AuditRepository is a mock implementation of repositories.AuditRepository
type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepository) List(ctx context.Context, filter repositories.AuditFilter, limit, offset int) ([]*models.AuditLog, int, error) {
	args := m.Called(ctx, filter, limit, offset)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}
