// Package apperrors defines the error taxonomy shared by services and
// handlers: validation, not-found, conflict, storage and authorization
// failures. Errors are matched with errors.Is against the sentinel for
// their kind, so services can wrap freely with fmt.Errorf("...: %w").
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or out-of-range input the caller can correct.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a state invariant violation (non-consecutive order,
	// arity mismatch, duplicate placement).
	ErrConflict = errors.New("conflict")
	// ErrStorage marks a failed object-store operation.
	ErrStorage = errors.New("storage error")
	// ErrUnauthorized marks a missing or invalid session.
	ErrUnauthorized = errors.New("unauthorized")
)

// Validationf builds a caller-correctable validation error.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf builds a missing-entity error.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflictf builds a state-conflict error.
func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Storagef builds an object-store failure wrapping the underlying cause.
func Storagef(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, fmt.Sprintf(format, args...), err)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
