package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every layer. Wrap them with fmt.Errorf("%w") and
// test with errors.Is.
var (
	ErrNotFound                = errors.New("not found")
	ErrAlreadyExists           = errors.New("already exists")
	ErrInvalidState            = errors.New("invalid state")
	ErrValidation              = errors.New("validation failed")
	ErrAttachmentLimitExceeded = errors.New("attachment limit exceeded")
	ErrStorage                 = errors.New("storage failure")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrForbidden               = errors.New("forbidden")
)

// Attendance-specific states. Both are InvalidState for callers that only care
// about the kind.
var (
	ErrNotCheckedIn     = fmt.Errorf("%w: visitor is not checked in", ErrInvalidState)
	ErrAlreadyCheckedIn = fmt.Errorf("%w: visitor is already checked in", ErrInvalidState)
	ErrAlreadyClosed    = fmt.Errorf("%w: visit is already closed", ErrInvalidState)
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFound wraps ErrNotFound with the missing entity and key.
func NotFound(entity string, key any) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, entity, key)
}

// Storage wraps ErrStorage around a lower level I/O error.
func Storage(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
