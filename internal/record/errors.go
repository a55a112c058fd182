package record

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record matches both category and id.
// Ids that exist under a different category, or that the backend cannot
// even parse, are reported the same way.
var ErrNotFound = errors.New("entry not found")

// ValidationError reports a malformed or missing category or payload on write.
type ValidationError struct {
	// Field is the persisted field name ("type" or "data").
	Field string

	// Message is the human-readable reason.
	Message string

	// Err is the underlying parse failure, if any.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("Entry validation failed: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying parse failure.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StoreError wraps a backend failure that is neither a validation problem
// nor a missing record (connectivity, constraint, corrupted row).
type StoreError struct {
	Op  string
	Err error
}

// Error implements the error interface. The backend message is passed
// through unchanged after the operation name.
func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the backend error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// WrapStoreError wraps err as a StoreError unless it is nil, ErrNotFound or
// already classified.
func WrapStoreError(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || IsValidationError(err) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStoreError reports whether err is, or wraps, a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
