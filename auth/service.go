// Package auth authenticates accounts stored in the triple store and issues
// the JWTs the HTTP API is protected with.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"skmf.evalgo.org/common"
	"skmf.evalgo.org/db"
	"skmf.evalgo.org/resource"
)

// Audit actions
const (
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionRegister       = "register"
	ActionChangePassword = "change_password"
)

// LoginResult is returned by a successful Login.
type LoginResult struct {
	User      *resource.User
	Token     string
	Claims    *Claims
	ExpiresAt time.Time
}

// Service provides authentication on top of the SPARQL user accounts.
type Service struct {
	config  *Config
	users   UserStore
	tokens  *TokenService
	revoked RevocationStore
	audit   AuditLogger
	logger  *common.ContextLogger

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService creates a new auth service. audit may be nil.
func NewService(config *Config, users UserStore, revoked RevocationStore, audit AuditLogger) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if revoked == nil {
		revoked = NewMemoryRevocationStore()
	}
	return &Service{
		config:  config,
		users:   users,
		tokens:  NewTokenService(config.JWTSecret, config.JWTExpiration, config.Issuer),
		revoked: revoked,
		audit:   audit,
		logger:  common.ServiceLogger("auth"),
	}
}

// Tokens returns the token service used to sign and verify tokens.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// compareDummy burns the same bcrypt work as a real comparison so that an
// unknown username cannot be told apart from a wrong password by timing.
func (s *Service) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("skmf-dummy-password"), BcryptCost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}

// Login checks username and password and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if ValidateUsername(username) != nil {
		s.compareDummy(password)
		s.record(ctx, ActionLogin, username, false, "invalid username")
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUser(ctx, username)
	if err != nil {
		s.record(ctx, ActionLogin, username, false, "user lookup failed")
		return nil, fmt.Errorf("failed to load user %s: %w", username, err)
	}
	if user == nil {
		s.compareDummy(password)
		s.record(ctx, ActionLogin, username, false, "user not found")
		return nil, ErrInvalidCredentials
	}

	if err := ValidatePassword(password, user.Hash()); err != nil {
		s.record(ctx, ActionLogin, username, false, "invalid password")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive() {
		s.record(ctx, ActionLogin, username, false, "account disabled")
		return nil, ErrAccountDisabled
	}

	token, claims, err := s.tokens.GenerateToken(username)
	if err != nil {
		return nil, err
	}
	user.Authenticated = true

	s.record(ctx, ActionLogin, username, true, "")
	return &LoginResult{
		User:      user,
		Token:     token,
		Claims:    claims,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the token the claims were read from.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return ErrInvalidToken
	}

	until := time.Now().Add(s.tokens.Expiration())
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	if err := s.revoked.Revoke(ctx, claims.ID, until); err != nil {
		s.record(ctx, ActionLogout, claims.Username, false, err.Error())
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.record(ctx, ActionLogout, claims.Username, true, "")
	return nil
}

// IsRevoked reports whether the token id has been logged out.
func (s *Service) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revoked.IsRevoked(ctx, jti)
}

// Authenticate validates a raw token and rejects revoked ones.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRevocationCheck, err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// Register creates a new active account.
func (s *Service) Register(ctx context.Context, username, password, name string) (*resource.User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := CheckPasswordStrength(password, s.config.PasswordMinLength, s.config.PasswordRequireStrong); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, username, hash, name)
	if err != nil {
		s.record(ctx, ActionRegister, username, false, err.Error())
		if errors.Is(err, resource.ErrResourceExists) {
			return nil, fmt.Errorf("%w: %w", ErrUserExists, err)
		}
		return nil, err
	}

	s.record(ctx, ActionRegister, username, true, "")
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, username, current, next string) error {
	user, err := s.users.GetUser(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		s.compareDummy(current)
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(current, user.Hash()); err != nil {
		s.record(ctx, ActionChangePassword, username, false, "invalid password")
		return ErrInvalidCredentials
	}
	if err := CheckPasswordStrength(next, s.config.PasswordMinLength, s.config.PasswordRequireStrong); err != nil {
		return err
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := user.SetHash(ctx, hash); err != nil {
		s.record(ctx, ActionChangePassword, username, false, err.Error())
		return err
	}

	s.record(ctx, ActionChangePassword, username, true, "")
	return nil
}

func (s *Service) record(ctx context.Context, action, username string, success bool, message string) {
	log := s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"action":   action,
		"username": username,
		"success":  success,
	})
	if success {
		log.Info("auth event")
	} else {
		log.WithField("reason", message).Warn("auth event failed")
	}

	if s.audit == nil || !s.config.AuditEnabled {
		return
	}

	entry := &db.AuditEntry{
		Action:    action,
		Username:  username,
		Success:   success,
		Message:   message,
		RequestID: common.RequestID(ctx),
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		s.logger.WithError(err).Error("failed to write audit entry")
	}
}
