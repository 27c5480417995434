package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/perks/perks/internal/auth"
	"github.com/perks/perks/internal/metrics"
	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/internal/repository"
)

// AuthService handles logins, password resets and bearer-token resolution.
type AuthService struct {
	users    UserStore
	tokens   *auth.TokenManager
	cache    AuthCache
	resetTTL time.Duration
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewAuthService creates a new AuthService. cache may be nil.
func NewAuthService(users UserStore, tokens *auth.TokenManager, cache AuthCache, resetTTL time.Duration, recorder metrics.Recorder) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		cache:    cache,
		resetTTL: resetTTL,
		metrics:  recorder,
		now:      time.Now,
	}
}

// LoginResult is an issued bearer token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}

// Login verifies credentials and issues a bearer token.
// Unknown users and users without a password get the same answer as a wrong password.
func (s *AuthService) Login(ctx context.Context, utorid, password string) (*LoginResult, error) {
	if utorid == "" || password == "" {
		return nil, invalid("", "utorid and password are required")
	}

	user, err := s.users.GetUserByUTORid(ctx, utorid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.VerifyDummy(password)
			s.metrics.IncLogin("failed")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		auth.VerifyDummy(password)
		s.metrics.IncLogin("failed")
		return nil, ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(password, *user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.metrics.IncLogin("failed")
		return nil, ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	token, expiresAt, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.IncLogin("succeeded")
	return &LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

// ResetResult is a freshly issued reset token.
type ResetResult struct {
	ResetToken string
	ExpiresAt  time.Time
}

// RequestReset issues a password reset token, replacing any previous one.
func (s *AuthService) RequestReset(ctx context.Context, utorid string) (*ResetResult, error) {
	if utorid == "" {
		return nil, invalid("utorid", "is required")
	}

	user, err := s.users.GetUserByUTORid(ctx, utorid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	now := s.now()
	token := auth.NewResetToken(now)
	expiresAt := now.Add(s.resetTTL).UTC()
	if err := s.users.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	return &ResetResult{ResetToken: token, ExpiresAt: expiresAt}, nil
}

// CompleteReset sets a new password using a reset or activation token.
func (s *AuthService) CompleteReset(ctx context.Context, token, utorid, password string) error {
	if utorid == "" {
		return invalid("utorid", "is required")
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if !auth.IsResetTokenFormat(token) {
		return ErrResetTokenNotFound
	}

	user, err := s.users.GetUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrResetTokenNotFound
		}
		return fmt.Errorf("failed to get user by reset token: %w", err)
	}

	if user.UTORid != utorid {
		return ErrResetTokenMismatch
	}
	if user.ResetTokenExpired(s.now()) {
		return ErrResetTokenExpired
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}

	return nil
}

// Authenticate resolves a bearer token to the caller's current auth context.
// Role and flags come from storage, not from the token claims.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.AuthContext, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if s.cache != nil {
		cached, err := s.cache.GetAuthContext(ctx, userID)
		if err != nil {
			slog.Warn("auth_cache_get_failed", "user_id", userID, "error", err)
		}
		if cached != nil {
			s.metrics.IncAuthCacheHit()
			return cached, nil
		}
		s.metrics.IncAuthCacheMiss()
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	authCtx := model.AuthContextFromUser(user)
	if s.cache != nil {
		if err := s.cache.SetAuthContext(ctx, authCtx); err != nil {
			slog.Warn("auth_cache_set_failed", "user_id", userID, "error", err)
		}
	}

	return authCtx, nil
}
