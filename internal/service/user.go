package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/perks/perks/internal/auth"
	"github.com/perks/perks/internal/metrics"
	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/internal/repository"
)

// UserService handles user registration, profiles and administration.
type UserService struct {
	users         UserStore
	promotions    PromotionStore
	cache         AuthCache
	activationTTL time.Duration
	metrics       metrics.Recorder
	now           func() time.Time
}

// NewUserService creates a new UserService. cache may be nil.
func NewUserService(users UserStore, promotions PromotionStore, cache AuthCache, activationTTL time.Duration, recorder metrics.Recorder) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		users:         users,
		promotions:    promotions,
		cache:         cache,
		activationTTL: activationTTL,
		metrics:       recorder,
		now:           time.Now,
	}
}

// RegisterInput defines input for registering a user.
type RegisterInput struct {
	UTORid string
	Name   string
	Email  string
}

// Register creates an unactivated regular user with an activation token.
// The token is consumed through the password reset flow.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	utorid, err := normalizeUTORid(input.UTORid)
	if err != nil {
		return nil, err
	}
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	now := s.now()
	token := auth.NewResetToken(now)
	expiresAt := now.Add(s.activationTTL).UTC()

	user := &model.User{
		UTORid:         utorid,
		Name:           name,
		Email:          email,
		Role:           model.RoleRegular,
		ResetToken:     &token,
		ResetExpiresAt: &expiresAt,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUTORidExists):
			return nil, ErrUTORidExists
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// ListUsersInput defines filters for listing users.
type ListUsersInput struct {
	Name      string
	Role      *model.Role
	Verified  *bool
	Activated *bool
	PageRequest
}

// ListUsers returns a page of users matching the filters.
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) (*ListResult[*model.User], error) {
	page, err := input.toPage()
	if err != nil {
		return nil, err
	}
	if input.Role != nil && !input.Role.IsValid() {
		return nil, invalid("role", "unknown role %q", *input.Role)
	}

	filter := repository.UserFilter{
		Name:      input.Name,
		Role:      input.Role,
		Verified:  input.Verified,
		Activated: input.Activated,
	}
	users, total, err := s.users.ListUsers(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return newListResult(users, total), nil
}

// UserProfile is a user with the one-time promotions they can still use.
type UserProfile struct {
	User       *model.User
	Promotions []*model.Promotion
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetProfile retrieves a user with their usable promotions.
func (s *UserService) GetProfile(ctx context.Context, id int64) (*UserProfile, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	promos, err := s.promotions.ListUsablePromotions(ctx, user.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list usable promotions: %w", err)
	}
	if promos == nil {
		promos = []*model.Promotion{}
	}

	return &UserProfile{User: user, Promotions: promos}, nil
}

// UpdateProfileInput defines the fields a user may change on themselves.
type UpdateProfileInput struct {
	Name      *string
	Email     *string
	Birthday  *string
	AvatarURL *string
}

// UpdateProfile updates the caller's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*model.User, error) {
	if input.Name == nil && input.Email == nil && input.Birthday == nil && input.AvatarURL == nil {
		return nil, invalid("", "no fields to update")
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name, err := validateName(*input.Name)
		if err != nil {
			return nil, err
		}
		user.Name = name
	}
	if input.Email != nil {
		email, err := normalizeEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	if input.Birthday != nil {
		if err := validateBirthday(*input.Birthday, s.now()); err != nil {
			return nil, err
		}
		user.Birthday = input.Birthday
	}
	if input.AvatarURL != nil {
		if err := validateAvatarURL(*input.AvatarURL); err != nil {
			return nil, err
		}
		user.AvatarURL = input.AvatarURL
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the caller's password after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	if oldPassword == "" {
		return invalid("old", "is required")
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasPassword() {
		return ErrIncorrectPassword
	}

	ok, err := auth.VerifyPassword(oldPassword, *user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return ErrIncorrectPassword
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	return nil
}

// AdminUpdateInput defines the fields a manager may change on a user.
type AdminUpdateInput struct {
	Email      *string
	Verified   *bool
	Suspicious *bool
	Role       *model.Role
}

// AdminUpdate applies a manager's changes to another user.
func (s *UserService) AdminUpdate(ctx context.Context, caller *model.AuthContext, id int64, input AdminUpdateInput) (*model.User, error) {
	if input.Email == nil && input.Verified == nil && input.Suspicious == nil && input.Role == nil {
		return nil, invalid("", "no fields to update")
	}
	if input.Verified != nil && !*input.Verified {
		return nil, invalid("verified", "can only be set to true")
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	// Managers may only manage users below their own clearance.
	if caller.Role != model.RoleSuperuser && user.Role.AtLeast(model.RoleManager) {
		return nil, ErrForbidden
	}

	if input.Email != nil {
		email, err := normalizeEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	if input.Verified != nil {
		user.Verified = true
	}
	if input.Suspicious != nil {
		user.Suspicious = *input.Suspicious
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, invalid("role", "unknown role %q", *input.Role)
		}
		if !slices.Contains(model.AssignableRoles(caller.Role), *input.Role) {
			return nil, ErrForbidden
		}
		if *input.Role == model.RoleCashier && user.Role != model.RoleCashier {
			user.Suspicious = false
		}
		user.Role = *input.Role
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) save(ctx context.Context, user *model.User) error {
	if err := s.users.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return ErrUserNotFound
		case errors.Is(err, repository.ErrEmailExists):
			return ErrEmailExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	// Role and flags are served from the auth cache.
	if s.cache != nil {
		if err := s.cache.DeleteAuthContext(ctx, user.ID); err != nil {
			slog.Warn("auth_cache_delete_failed", "user_id", user.ID, "error", err)
		}
	}
	return nil
}
