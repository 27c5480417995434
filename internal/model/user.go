// Package model defines domain entities for the application.
package model

import (
	"time"
)

// Role is a user's clearance level.
type Role string

const (
	RoleRegular   Role = "regular"
	RoleCashier   Role = "cashier"
	RoleManager   Role = "manager"
	RoleSuperuser Role = "superuser"
)

// roleRank orders roles by clearance.
var roleRank = map[Role]int{
	RoleRegular:   1,
	RoleCashier:   2,
	RoleManager:   3,
	RoleSuperuser: 4,
}

// IsValid checks if the role is known.
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r has at least the clearance of min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

// ParseRole converts a string to a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}

// User represents a loyalty program member.
type User struct {
	ID             int64      `json:"id"`
	UTORid         string     `json:"utorid"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Birthday       *string    `json:"birthday"`
	Role           Role       `json:"role"`
	Points         int64      `json:"points"`
	Verified       bool       `json:"verified"`
	Suspicious     bool       `json:"suspicious"`
	AvatarURL      *string    `json:"avatarUrl"`
	PasswordHash   *string    `json:"-"`
	ResetToken     *string    `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastLogin      *time.Time `json:"lastLogin"`
}

// IsActivated returns true once the user has logged in at least once.
func (u *User) IsActivated() bool {
	return u.LastLogin != nil
}

// HasPassword returns true if the user finished activation.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// ResetTokenExpired reports whether the reset token is missing or past its expiry.
func (u *User) ResetTokenExpired(now time.Time) bool {
	return u.ResetExpiresAt == nil || !now.Before(*u.ResetExpiresAt)
}
