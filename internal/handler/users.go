package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/perks/perks/internal/handler/dto"
	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/internal/service"
)

// UserService is the subset of service.UserService used by UserHandler.
type UserService interface {
	Register(ctx context.Context, input service.RegisterInput) (*model.User, error)
	ListUsers(ctx context.Context, input service.ListUsersInput) (*service.ListResult[*model.User], error)
	GetProfile(ctx context.Context, id int64) (*service.UserProfile, error)
	UpdateProfile(ctx context.Context, userID int64, input service.UpdateProfileInput) (*model.User, error)
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
	AdminUpdate(ctx context.Context, caller *model.AuthContext, id int64, input service.AdminUpdateInput) (*model.User, error)
}

// UserHandler handles user account endpoints.
type UserHandler struct {
	svc    UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// Register creates a user on behalf of a cashier.
// POST /users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.Register(r.Context(), service.RegisterInput{
		UTORid: req.UTORid,
		Name:   req.Name,
		Email:  req.Email,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user_registered",
		"user_id", user.ID,
		"utorid", user.UTORid,
		"created_by", caller.UTORid,
	)

	resp := dto.RegisterResponse{
		ID:       user.ID,
		UTORid:   user.UTORid,
		Name:     user.Name,
		Email:    user.Email,
		Verified: user.Verified,
	}
	if user.ResetToken != nil {
		resp.ResetToken = *user.ResetToken
	}
	if user.ResetExpiresAt != nil {
		resp.ExpiresAt = *user.ResetExpiresAt
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List returns users matching the query filters.
// GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := parsePage(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	verified, err := parseBool(q, "verified")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	activated, err := parseBool(q, "activated")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}

	input := service.ListUsersInput{
		Name:        q.Get("name"),
		Verified:    verified,
		Activated:   activated,
		PageRequest: page,
	}
	if raw := q.Get("role"); raw != "" {
		role := model.Role(raw)
		input.Role = &role
	}

	result, err := h.svc.ListUsers(r.Context(), input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewListResponse(result.Results, result.Count, dto.ToUserResponse))
}

// Me returns the caller's profile.
// GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	profile, err := h.svc.GetProfile(r.Context(), caller.UserID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToProfileResponse(profile.User, profile.Promotions))
}

// UpdateMe updates the caller's profile.
// PATCH /users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), caller.UserID, service.UpdateProfileInput{
		Name:      req.Name,
		Email:     req.Email,
		Birthday:  req.Birthday,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// ChangePassword replaces the caller's password.
// PATCH /users/me/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.ChangePassword(r.Context(), caller.UserID, req.Old, req.New); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("password_changed", "user_id", caller.UserID)

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "password updated"})
}

// Get returns a user. Cashiers receive the reduced view.
// GET /users/{userId}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "userId")
	if !ok {
		return
	}

	profile, err := h.svc.GetProfile(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if caller.IsManager() {
		writeJSON(w, http.StatusOK, dto.ToProfileResponse(profile.User, profile.Promotions))
		return
	}
	writeJSON(w, http.StatusOK, dto.ToCashierUserResponse(profile.User, profile.Promotions))
}

// Update applies a manager's changes to a user.
// PATCH /users/{userId}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "userId")
	if !ok {
		return
	}

	var req dto.AdminUpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := service.AdminUpdateInput{
		Email:      req.Email,
		Verified:   req.Verified,
		Suspicious: req.Suspicious,
	}
	if req.Role != nil {
		role := model.Role(*req.Role)
		input.Role = &role
	}

	user, err := h.svc.AdminUpdate(r.Context(), caller, id, input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user_updated",
		"user_id", user.ID,
		"role", user.Role,
		"updated_by", caller.UTORid,
	)

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}
