package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation signals a malformed search request.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidArgument signals an index query that violates its preconditions.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIndexUnavailable signals a storage-layer failure of the search index.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrProjection signals a failed index update while handling a lifecycle event.
	ErrProjection = errors.New("projection failed")
	// ErrEntryNotFound signals a missing index entry.
	ErrEntryNotFound = errors.New("index entry not found")
	// ErrProviderNotFound signals that the providers module has no such provider.
	ErrProviderNotFound = errors.New("provider not found")
	// ErrUnknownEvent signals an event kind with no registered handler.
	ErrUnknownEvent = errors.New("unknown event kind")
	// ErrInvalidEvent signals an event that cannot be decoded or lacks required data.
	ErrInvalidEvent = errors.New("invalid event")
)

// FieldError describes a single rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every violated field of a request, not just the first.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Add records a violated field.
func (e *ValidationError) Add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// OrNil returns nil when no field was rejected, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	e := &ValidationError{}
	e.Add(field, format, args...)
	return e
}
