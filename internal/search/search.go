// Package search answers runner photo lookups by bib number and by selfie.
package search

import (
	"errors"
	"fmt"
)

// ErrValidation marks request validation failures.
var ErrValidation = errors.New("invalid request")

// ValidationError is a request the caller must fix. Its message is safe to
// return to clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
