package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/perks/perks/internal/handler/dto"
	"github.com/perks/perks/internal/service"
)

// AuthService is the subset of service.AuthService used by AuthHandler.
type AuthService interface {
	Login(ctx context.Context, utorid, password string) (*service.LoginResult, error)
	RequestReset(ctx context.Context, utorid string) (*service.ResetResult, error)
	CompleteReset(ctx context.Context, token, utorid, password string) error
}

// AuthHandler handles login and password reset endpoints.
type AuthHandler struct {
	svc    AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// Login issues a bearer token.
// POST /auth/tokens
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UTORid == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "utorid and password are required")
		return
	}

	result, err := h.svc.Login(r.Context(), req.UTORid, req.Password)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// RequestReset issues a password reset token.
// POST /auth/resets
func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UTORid == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "utorid is required")
		return
	}

	result, err := h.svc.RequestReset(r.Context(), req.UTORid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("reset_requested", "utorid", req.UTORid)

	writeJSON(w, http.StatusAccepted, dto.ResetResponse{
		ExpiresAt:  result.ExpiresAt,
		ResetToken: result.ResetToken,
	})
}

// CompleteReset sets a new password using a reset token.
// POST /auth/resets/{resetToken}
func (h *AuthHandler) CompleteReset(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "resetToken")

	var req dto.CompleteResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.CompleteReset(r.Context(), token, req.UTORid, req.Password); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("password_reset", "utorid", req.UTORid)

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "password updated"})
}
