package fscache

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	// ErrInvalidMode is returned when a cache control value is not understood.
	ErrInvalidMode = errors.New("invalid cache mode")

	// ErrInvalidKey is returned when a store key is not a hex key hash.
	ErrInvalidKey = errors.New("invalid key")

	// ErrTooManyLinks is returned when resolving a path follows too many symlinks.
	ErrTooManyLinks = errors.New("too many levels of symbolic links")

	// ErrStoreWrite wraps failures to persist a computed result. The value
	// returned alongside it is valid but was not cached.
	ErrStoreWrite = errors.New("failed to store result")
)

// ValidationError represents one or more validation errors that occurred
// while building a key.
type ValidationError struct {
	Errors []error
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed: %v", ve.Errors[0])
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "validation failed with %d errors:\n", len(ve.Errors))
	for i, err := range ve.Errors {
		fmt.Fprintf(&buf, "  %d. %v\n", i+1, err)
	}
	return buf.String()
}

// Unwrap returns the underlying errors for use with errors.Is and errors.As.
func (ve *ValidationError) Unwrap() []error {
	return ve.Errors
}

// newValidationError creates a ValidationError from a slice of errors.
// Returns nil if the slice is empty.
func newValidationError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}
