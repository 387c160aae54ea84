package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input that was rejected before touching storage.
	ErrValidation = errors.New("validation failure")
	// ErrNotFound marks a target row that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated is the uniform "no identity" failure. It never says why.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden marks a mutation on a board the caller does not own.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
