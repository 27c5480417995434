// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"
)

// Service errors.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")

	ErrUserNotFound       = errors.New("user not found")
	ErrUTORidExists       = errors.New("utorid already exists")
	ErrEmailExists        = errors.New("email already exists")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
	ErrUnverified         = errors.New("user is not verified")
	ErrResetTokenNotFound = errors.New("reset token not found")
	ErrResetTokenExpired  = errors.New("reset token has expired")
	ErrResetTokenMismatch = errors.New("reset token does not belong to this user")

	ErrPromotionNotFound = errors.New("promotion not found")
	ErrPromotionStarted  = errors.New("promotion has already started")

	ErrEventNotFound           = errors.New("event not found")
	ErrEventEnded              = errors.New("event has ended")
	ErrEventFull               = errors.New("event is full")
	ErrEventPublished          = errors.New("published events cannot be deleted")
	ErrAlreadyGuest            = errors.New("user is already a guest")
	ErrAlreadyOrganizer        = errors.New("user is already an organizer")
	ErrIsOrganizer             = errors.New("user is an organizer of this event")
	ErrIsGuest                 = errors.New("user is a guest of this event")
	ErrNotGuest                = errors.New("user is not a guest of this event")
	ErrNotOrganizer            = errors.New("user is not an organizer of this event")
	ErrInsufficientEventPoints = errors.New("event has insufficient points remaining")

	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrInsufficientPoints   = errors.New("insufficient points")
	ErrNotRedemption        = errors.New("transaction is not a redemption")
	ErrAlreadyProcessed     = errors.New("redemption already processed")
	ErrSuspiciousRedemption = errors.New("redemption is flagged suspicious")
)

// ValidationError describes an invalid input field.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports ErrValidation as a match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
