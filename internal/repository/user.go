package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/perks/perks/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUTORidExists  = errors.New("utorid already exists")
	ErrEmailExists   = errors.New("email already exists")
	ErrTokenNotFound = errors.New("reset token not found")
)

// UserFilter defines filters for listing users.
type UserFilter struct {
	Name      string
	Role      *model.Role
	Verified  *bool
	Activated *bool
}

const userColumns = `
	id, utorid, name, email, TO_CHAR(birthday, 'YYYY-MM-DD'), role, points, verified, suspicious,
	avatar_url, password_hash, reset_token, reset_expires_at, created_at, last_login
`

// CreateUser inserts a new user and fills in its generated ID and timestamps.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (utorid, name, email, role, verified, password_hash, reset_token, reset_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		user.UTORid,
		user.Name,
		user.Email,
		user.Role,
		user.Verified,
		user.PasswordHash,
		user.ResetToken,
		user.ResetExpiresAt,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return userWriteError(err, "failed to create user")
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getUser(ctx, r.pool, query, id)
}

// GetUserByUTORid retrieves a user by their UTORid.
func (r *Repository) GetUserByUTORid(ctx context.Context, utorid string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE utorid = $1`
	return r.getUser(ctx, r.pool, query, utorid)
}

// GetUserByResetToken retrieves the user holding a reset token.
func (r *Repository) GetUserByResetToken(ctx context.Context, token string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`
	user, err := r.getUser(ctx, r.pool, query, token)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrTokenNotFound
	}
	return user, err
}

func (r *Repository) getUser(ctx context.Context, q querier, query string, arg any) (*model.User, error) {
	user, err := scanUser(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// lockUser loads a user row with FOR UPDATE inside tx.
func lockUser(ctx context.Context, tx pgx.Tx, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	user, err := scanUser(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return user, nil
}

// addPoints applies a signed delta to a user's balance.
func addPoints(ctx context.Context, q querier, userID, delta int64) error {
	if delta == 0 {
		return nil
	}
	result, err := q.Exec(ctx, `UPDATE users SET points = points + $2 WHERE id = $1`, userID, delta)
	if err != nil {
		return fmt.Errorf("failed to update points: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUsers retrieves a page of users matching filter along with the total match count.
func (r *Repository) ListUsers(ctx context.Context, filter UserFilter, page Page) ([]*model.User, int, error) {
	var w whereBuilder
	if filter.Name != "" {
		w.add(`(utorid ILIKE $%[1]d OR name ILIKE $%[1]d)`, likePattern(filter.Name))
	}
	if filter.Role != nil {
		w.add(`role = $%d`, *filter.Role)
	}
	if filter.Verified != nil {
		w.add(`verified = $%d`, *filter.Verified)
	}
	if filter.Activated != nil {
		if *filter.Activated {
			w.addRaw(`last_login IS NOT NULL`)
		} else {
			w.addRaw(`last_login IS NULL`)
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	limit, args := w.paginate(page)
	query := `SELECT ` + userColumns + ` FROM users` + w.sql() + ` ORDER BY id` + limit

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*model.User, 0, page.Limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}

	return users, total, nil
}

// UpdateUser persists a user's mutable profile and status fields.
// Points and credentials are changed through dedicated methods.
func (r *Repository) UpdateUser(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, birthday = $4::date, role = $5, verified = $6,
		    suspicious = $7, avatar_url = $8
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Birthday,
		user.Role,
		user.Verified,
		user.Suspicious,
		user.AvatarURL,
	)

	if err != nil {
		return userWriteError(err, "failed to update user")
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetPassword stores a new password hash and clears any outstanding reset token.
func (r *Repository) SetPassword(ctx context.Context, id int64, hash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token = NULL, reset_expires_at = NULL
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetResetToken replaces the user's reset token.
func (r *Repository) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	query := `UPDATE users SET reset_token = $2, reset_expires_at = $3 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdateLastLogin records a successful login.
func (r *Repository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE users SET last_login = $2 WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

func userWriteError(err error, msg string) error {
	if isUniqueViolation(err) {
		switch uniqueConstraint(err) {
		case "users_utorid_key":
			return ErrUTORidExists
		case "users_email_key":
			return ErrEmailExists
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func scanUser(row rowScanner) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.UTORid,
		&user.Name,
		&user.Email,
		&user.Birthday,
		&user.Role,
		&user.Points,
		&user.Verified,
		&user.Suspicious,
		&user.AvatarURL,
		&user.PasswordHash,
		&user.ResetToken,
		&user.ResetExpiresAt,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
