// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/perks/perks/internal/auth"
	"github.com/perks/perks/internal/handler/dto"
	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/internal/service"
)

// Version is reported by the service info endpoint.
const Version = "1.0.0"

// Handler serves the root and fallback routes.
type Handler struct {
	version string
}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{version: Version}
}

// Info describes the service.
// GET /
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"service": "perks",
		"version": h.version,
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeJSON reads the request body into dst.
// An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return false
	}
	return true
}

// idParam parses a positive integer URL parameter.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// callerFromRequest returns the authenticated caller, writing 401 if absent.
func callerFromRequest(w http.ResponseWriter, r *http.Request) (*model.AuthContext, bool) {
	caller := auth.AuthFromContext(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return nil, false
	}
	return caller, true
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// serviceErrors maps service sentinels to HTTP responses.
// Order matters only for errors that wrap one another.
var serviceErrors = []errorMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{service.ErrResetTokenMismatch, http.StatusUnauthorized, "TOKEN_MISMATCH"},

	{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{service.ErrIncorrectPassword, http.StatusForbidden, "INCORRECT_PASSWORD"},
	{service.ErrUnverified, http.StatusForbidden, "UNVERIFIED"},
	{service.ErrPromotionStarted, http.StatusForbidden, "PROMOTION_STARTED"},

	{service.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{service.ErrResetTokenNotFound, http.StatusNotFound, "RESET_TOKEN_NOT_FOUND"},
	{service.ErrPromotionNotFound, http.StatusNotFound, "PROMOTION_NOT_FOUND"},
	{service.ErrEventNotFound, http.StatusNotFound, "EVENT_NOT_FOUND"},
	{service.ErrTransactionNotFound, http.StatusNotFound, "TRANSACTION_NOT_FOUND"},
	{service.ErrNotGuest, http.StatusNotFound, "NOT_GUEST"},
	{service.ErrNotOrganizer, http.StatusNotFound, "NOT_ORGANIZER"},

	{service.ErrUTORidExists, http.StatusConflict, "UTORID_EXISTS"},
	{service.ErrEmailExists, http.StatusConflict, "EMAIL_EXISTS"},

	{service.ErrResetTokenExpired, http.StatusGone, "RESET_TOKEN_EXPIRED"},
	{service.ErrEventEnded, http.StatusGone, "EVENT_ENDED"},
	{service.ErrEventFull, http.StatusGone, "EVENT_FULL"},

	{service.ErrEventPublished, http.StatusBadRequest, "EVENT_PUBLISHED"},
	{service.ErrAlreadyGuest, http.StatusBadRequest, "ALREADY_GUEST"},
	{service.ErrAlreadyOrganizer, http.StatusBadRequest, "ALREADY_ORGANIZER"},
	{service.ErrIsOrganizer, http.StatusBadRequest, "IS_ORGANIZER"},
	{service.ErrIsGuest, http.StatusBadRequest, "IS_GUEST"},
	{service.ErrInsufficientPoints, http.StatusBadRequest, "INSUFFICIENT_POINTS"},
	{service.ErrInsufficientEventPoints, http.StatusBadRequest, "INSUFFICIENT_EVENT_POINTS"},
	{service.ErrNotRedemption, http.StatusBadRequest, "NOT_REDEMPTION"},
	{service.ErrAlreadyProcessed, http.StatusBadRequest, "ALREADY_PROCESSED"},
	{service.ErrSuspiciousRedemption, http.StatusBadRequest, "SUSPICIOUS_REDEMPTION"},
}

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
		return
	}
	if errors.Is(err, service.ErrValidation) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, m.err.Error())
			return
		}
	}

	logger.Error("internal_error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}
