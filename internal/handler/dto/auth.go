package dto

import "time"

// LoginRequest is the request body for POST /auth/tokens.
type LoginRequest struct {
	UTORid   string `json:"utorid"`
	Password string `json:"password"`
}

// TokenResponse is returned on successful login.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ResetRequest is the request body for POST /auth/resets.
type ResetRequest struct {
	UTORid string `json:"utorid"`
}

// ResetResponse carries the issued reset token.
type ResetResponse struct {
	ExpiresAt  time.Time `json:"expiresAt"`
	ResetToken string    `json:"resetToken"`
}

// CompleteResetRequest is the request body for POST /auth/resets/{resetToken}.
type CompleteResetRequest struct {
	UTORid   string `json:"utorid"`
	Password string `json:"password"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
