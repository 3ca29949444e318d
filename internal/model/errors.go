package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a referenced item does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field     string
	Reason    string
	Available []string // columns present in the source table, when relevant
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
	if len(e.Available) > 0 {
		msg += fmt.Sprintf(" (available columns: %s)", strings.Join(e.Available, ", "))
	}
	return msg
}

// ExternalServiceError describes a failed call to a price provider.
type ExternalServiceError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ExternalServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
