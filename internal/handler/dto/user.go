package dto

import (
	"time"

	"github.com/perks/perks/internal/model"
)

// RegisterRequest is the request body for POST /users.
type RegisterRequest struct {
	UTORid string `json:"utorid"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// RegisterResponse is returned after a cashier registers a user.
type RegisterResponse struct {
	ID         int64     `json:"id"`
	UTORid     string    `json:"utorid"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Verified   bool      `json:"verified"`
	ExpiresAt  time.Time `json:"expiresAt"`
	ResetToken string    `json:"resetToken"`
}

// UpdateProfileRequest is the request body for PATCH /users/me.
type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Birthday  *string `json:"birthday"`
	AvatarURL *string `json:"avatarUrl"`
}

// ChangePasswordRequest is the request body for PATCH /users/me/password.
type ChangePasswordRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// AdminUpdateUserRequest is the request body for PATCH /users/{userId}.
type AdminUpdateUserRequest struct {
	Email      *string `json:"email"`
	Verified   *bool   `json:"verified"`
	Suspicious *bool   `json:"suspicious"`
	Role       *string `json:"role"`
}

// UserResponse is the full view of a user.
type UserResponse struct {
	ID         int64      `json:"id"`
	UTORid     string     `json:"utorid"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Birthday   *string    `json:"birthday"`
	Role       model.Role `json:"role"`
	Points     int64      `json:"points"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastLogin  *time.Time `json:"lastLogin"`
	Verified   bool       `json:"verified"`
	Suspicious bool       `json:"suspicious"`
	AvatarURL  *string    `json:"avatarUrl"`
}

// ProfileResponse is the caller's own profile with usable promotions.
type ProfileResponse struct {
	UserResponse
	Promotions []PromotionSummary `json:"promotions"`
}

// CashierUserResponse is the reduced view cashiers get of other users.
type CashierUserResponse struct {
	ID         int64              `json:"id"`
	UTORid     string             `json:"utorid"`
	Name       string             `json:"name"`
	Points     int64              `json:"points"`
	Verified   bool               `json:"verified"`
	Promotions []PromotionSummary `json:"promotions"`
}

// ToUserResponse converts a model.User to the full view.
func ToUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		UTORid:     u.UTORid,
		Name:       u.Name,
		Email:      u.Email,
		Birthday:   u.Birthday,
		Role:       u.Role,
		Points:     u.Points,
		CreatedAt:  u.CreatedAt,
		LastLogin:  u.LastLogin,
		Verified:   u.Verified,
		Suspicious: u.Suspicious,
		AvatarURL:  u.AvatarURL,
	}
}

// ToProfileResponse converts a user and their usable promotions.
func ToProfileResponse(u *model.User, promos []*model.Promotion) ProfileResponse {
	return ProfileResponse{
		UserResponse: ToUserResponse(u),
		Promotions:   toPromotionSummaries(promos),
	}
}

// ToCashierUserResponse converts a user for the cashier view.
func ToCashierUserResponse(u *model.User, promos []*model.Promotion) CashierUserResponse {
	return CashierUserResponse{
		ID:         u.ID,
		UTORid:     u.UTORid,
		Name:       u.Name,
		Points:     u.Points,
		Verified:   u.Verified,
		Promotions: toPromotionSummaries(promos),
	}
}

func toPromotionSummaries(promos []*model.Promotion) []PromotionSummary {
	out := make([]PromotionSummary, 0, len(promos))
	for _, p := range promos {
		out = append(out, ToPromotionSummary(p))
	}
	return out
}
