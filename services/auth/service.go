// Package auth implements the login, logout, refresh and validate protocol
// on top of the token codec and the session and refresh-grant stores.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/repositories"
	"github.com/upb/ip-registry/services"
	"github.com/upb/ip-registry/services/ratelimit"
	"github.com/upb/ip-registry/tokens"
	"go.uber.org/zap"
)

// TokenType is returned with every issued access token
const TokenType = "Bearer"

// Auditor records auth events; implementations must not block
type Auditor interface {
	LogLogin(user *models.User, sessionID, ip string) error
	LogLogout(userID int64, email, sessionID, ip string) error
	LogFailedLogin(email, ip string) error
}

// Throttle limits repeated failed logins
type Throttle interface {
	Blocked(ctx context.Context, key string) bool
	Fail(ctx context.Context, key string)
	Reset(ctx context.Context, key string)
}

// Config holds token lifetimes
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// LoginInput is a login attempt
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult is returned by a successful login
type LoginResult struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	TokenType    string             `json:"token_type"`
	ExpiresIn    int                `json:"expires_in"`
	SessionID    string             `json:"session_id"`
	User         models.UserSummary `json:"user"`
}

// RefreshInput is a refresh attempt. SessionID comes from X-Session-ID and
// falls back to the session id carried by the refresh token.
type RefreshInput struct {
	RefreshToken string
	SessionID    string
}

// RefreshResult carries the newly minted access token
type RefreshResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ValidateResult describes the principal behind a live access token
type ValidateResult struct {
	Valid     bool               `json:"valid"`
	User      models.UserSummary `json:"user"`
	SessionID string             `json:"session_id"`
}

// Service implements the auth protocol
type Service struct {
	codec    *tokens.Codec
	users    repositories.UserRepository
	sessions repositories.SessionRepository
	grants   repositories.RefreshTokenRepository
	txMgr    repositories.TransactionManager
	auditor  Auditor
	throttle Throttle
	config   Config
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a new auth Service. throttle may be nil.
func NewService(
	codec *tokens.Codec,
	repos *repositories.Repositories,
	txMgr repositories.TransactionManager,
	auditor Auditor,
	throttle Throttle,
	config Config,
	logger *zap.Logger,
) *Service {
	if config.AccessTTL <= 0 {
		config.AccessTTL = tokens.AccessTTL
	}
	if config.RefreshTTL <= 0 {
		config.RefreshTTL = tokens.RefreshTTL
	}

	return &Service{
		codec:    codec,
		users:    repos.Users,
		sessions: repos.Sessions,
		grants:   repos.RefreshTokens,
		txMgr:    txMgr,
		auditor:  auditor,
		throttle: throttle,
		config:   config,
		now:      time.Now,
		logger:   logger,
	}
}

// Login checks credentials and opens the principal's only session
func (s *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	throttleKey := ratelimit.Key(input.Email, input.IPAddress)
	if s.throttle != nil && s.throttle.Blocked(ctx, throttleKey) {
		s.logger.Warn("login throttled", zap.String("ip", input.IPAddress))
		return nil, services.ErrTooManyAttempts
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, services.WrapInternal("Login failed", err)
	}
	if user == nil || !user.PasswordMatches(input.Password) {
		if s.throttle != nil {
			s.throttle.Fail(ctx, throttleKey)
		}
		s.emit(s.auditor.LogFailedLogin(input.Email, input.IPAddress))
		return nil, services.ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	access, err := s.codec.Mint(tokens.AccessClaims(user.ID, user.Email, user.IsSuperAdmin, sessionID), s.config.AccessTTL)
	if err != nil {
		return nil, services.WrapInternal("Login failed", err)
	}
	refresh, err := s.codec.Mint(tokens.RefreshClaims(user.ID, access.JTI, sessionID), s.config.RefreshTTL)
	if err != nil {
		return nil, services.WrapInternal("Login failed", err)
	}

	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		// Concurrent logins for the same user serialise on this lock.
		if _, err := s.users.LockByID(ctx, user.ID); err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		now := s.now()
		existing, err := s.sessions.FindActive(ctx, user.ID, now)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("find active session: %w", err)
		}
		if existing != nil {
			return services.ErrAlreadyLoggedIn
		}

		if _, err := s.sessions.DeleteExpired(ctx, user.ID, now); err != nil {
			return fmt.Errorf("delete expired sessions: %w", err)
		}

		session := models.NewActiveSession(user.ID, access.JTI, models.DeviceDescriptor(input.UserAgent), input.IPAddress, access.ExpiresAt)
		if err := s.sessions.Create(ctx, session); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return services.ErrAlreadyLoggedIn
			}
			return fmt.Errorf("create session: %w", err)
		}

		grant := models.NewRefreshToken(user.ID, refresh.JTI, access.JTI, refresh.ExpiresAt)
		if err := s.grants.Create(ctx, grant); err != nil {
			return fmt.Errorf("create refresh token: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, services.ErrAlreadyLoggedIn) {
			s.logger.Info("login rejected, session already active", zap.Int64("user_id", user.ID))
			return nil, err
		}
		return nil, services.WrapInternal("Login failed", err)
	}

	if s.throttle != nil {
		s.throttle.Reset(ctx, throttleKey)
	}
	s.emit(s.auditor.LogLogin(user, sessionID, input.IPAddress))

	s.logger.Debug("user logged in", zap.Int64("user_id", user.ID), zap.String("session_id", sessionID))

	return &LoginResult{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		TokenType:    TokenType,
		ExpiresIn:    int(s.config.AccessTTL.Seconds()),
		SessionID:    sessionID,
		User:         user.Summary(),
	}, nil
}

// Logout ends the session of the bearer token and revokes its refresh grants.
// Missing rows are not an error.
func (s *Service) Logout(ctx context.Context, token, ip string) error {
	if token == "" {
		return services.ErrTokenMissing
	}

	claims, err := s.verify(token)
	if err != nil {
		return err
	}

	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		if _, err := s.sessions.DeleteByJTI(ctx, claims.Subject, claims.JTI); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if _, err := s.grants.RevokeAllForAccessJTI(ctx, claims.Subject, claims.JTI); err != nil {
			return fmt.Errorf("revoke refresh tokens: %w", err)
		}
		return nil
	})
	if err != nil {
		return services.WrapInternal("Logout failed", err)
	}

	email := claims.Email
	if user, err := s.users.GetByID(ctx, claims.Subject); err == nil {
		email = user.Email
	}
	s.emit(s.auditor.LogLogout(claims.Subject, email, claims.SessionID, ip))

	s.logger.Debug("user logged out", zap.Int64("user_id", claims.Subject))
	return nil
}

// Refresh mints a new access token for the session paired with a valid
// refresh grant. The refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, input RefreshInput) (*RefreshResult, error) {
	claims, err := s.verify(input.RefreshToken)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefresh() {
		return nil, services.ErrWrongTokenType
	}

	grant, err := s.grants.FindValid(ctx, claims.JTI, s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrGrantNotFound
		}
		return nil, services.WrapInternal("Token refresh failed", err)
	}

	user, err := s.users.GetByID(ctx, grant.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrPrincipalNotFound
		}
		return nil, services.WrapInternal("Token refresh failed", err)
	}

	session, err := s.sessions.FindByJTI(ctx, user.ID, grant.AccessTokenJTI)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrSessionNotFound
		}
		return nil, services.WrapInternal("Token refresh failed", err)
	}

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = claims.SessionID
	}

	access, err := s.codec.Mint(tokens.AccessClaims(user.ID, user.Email, user.IsSuperAdmin, sessionID), s.config.AccessTTL)
	if err != nil {
		return nil, services.WrapInternal("Token refresh failed", err)
	}

	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		if err := s.sessions.Replace(ctx, session, access.JTI, access.ExpiresAt); err != nil {
			return err
		}
		return s.grants.LinkNewAccessJTI(ctx, grant, access.JTI)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrSessionNotFound
		}
		return nil, services.WrapInternal("Token refresh failed", err)
	}

	s.logger.Debug("access token refreshed", zap.Int64("user_id", user.ID))

	return &RefreshResult{
		AccessToken: access.Token,
		TokenType:   TokenType,
		ExpiresIn:   int(s.config.AccessTTL.Seconds()),
	}, nil
}

// Validate checks that an access token belongs to a live session.
// A token whose session was logged out fails even before its own expiry.
func (s *Service) Validate(ctx context.Context, token string) (*ValidateResult, error) {
	if token == "" {
		return nil, services.ErrTokenMissing
	}

	claims, err := s.verify(token)
	if err != nil {
		return nil, err
	}
	if !claims.IsAccess() {
		return nil, services.ErrWrongTokenType
	}

	session, err := s.sessions.FindByJTI(ctx, claims.Subject, claims.JTI)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, services.WrapInternal("Token validation failed", err)
	}
	if session == nil || !session.IsActive(s.now()) {
		return nil, services.ErrSessionNotFound
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrPrincipalNotFound
		}
		return nil, services.WrapInternal("Token validation failed", err)
	}

	return &ValidateResult{
		Valid:     true,
		User:      user.Summary(),
		SessionID: claims.SessionID,
	}, nil
}

// verify runs the codec and translates its errors into domain errors
func (s *Service) verify(token string) (*tokens.Claims, error) {
	claims, err := s.codec.Verify(token)
	if err == nil {
		return claims, nil
	}

	switch {
	case errors.Is(err, tokens.ErrMalformedToken):
		return nil, services.ErrMalformedToken
	case errors.Is(err, tokens.ErrInvalidSignature):
		return nil, services.ErrInvalidSignature
	case errors.Is(err, tokens.ErrTokenExpired):
		return nil, services.ErrTokenExpired
	case errors.Is(err, tokens.ErrInvalidPayload):
		return nil, services.ErrInvalidPayload.Wrap(err)
	default:
		return nil, services.WrapInternal("Token verification failed", err)
	}
}

// emit logs audit enqueue failures; audit never fails the operation
func (s *Service) emit(err error) {
	if err != nil {
		s.logger.Warn("audit event not queued", zap.Error(err))
	}
}
