package chi

import "github.com/kailas-cloud/discovery/internal/domain"

// ErrorCode is the machine-readable error code of an API error response.
type ErrorCode string

// API error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeIndexUnavailable ErrorCode = "index_unavailable"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode           `json:"code"`
	Message string              `json:"message"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SearchProvidersParams are the query parameters of GET /v1/providers/search.
type SearchProvidersParams struct {
	Latitude          *float64
	Longitude         *float64
	RadiusInKm        *float64
	ServiceIds        *[]string
	MinRating         *float64
	SubscriptionTiers *[]string
	PageNumber        *int
	PageSize          *int
}
