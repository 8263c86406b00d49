package discovery

import "github.com/kailas-cloud/discovery/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation       = domain.ErrValidation
	ErrIndexUnavailable = domain.ErrIndexUnavailable
	ErrProjection       = domain.ErrProjection
	ErrProviderNotFound = domain.ErrProviderNotFound
	ErrUnknownEvent     = domain.ErrUnknownEvent
	ErrInvalidEvent     = domain.ErrInvalidEvent
)

// ValidationError lists every rejected search parameter.
// Retrieve it with errors.As.
type ValidationError = domain.ValidationError
