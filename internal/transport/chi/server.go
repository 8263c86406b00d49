package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/search/request"
	"github.com/kailas-cloud/discovery/internal/domain/search/result"
	"github.com/kailas-cloud/discovery/internal/logger"
	healthuc "github.com/kailas-cloud/discovery/internal/usecase/health"
)

// API routes.
const (
	SearchPath  = "/v1/providers/search"
	HealthPath  = "/health"
	MetricsPath = "/metrics"
)

// searcher is the consumer interface for the search use case (ISP).
type searcher interface {
	Search(ctx context.Context, params request.Params) (result.Page, error)
}

// healthChecker is the consumer interface for the health use case (ISP).
type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the provider discovery HTTP API.
type Server struct {
	search        searcher
	health        healthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search searcher, health healthChecker, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, ErrorCodeIndexUnavailable),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get(SearchPath, s.SearchProviders)
	r.Get(HealthPath, s.HealthCheck)
	r.Get(MetricsPath, s.Metrics)
}

// SearchProviders handles GET /v1/providers/search.
func (s *Server) SearchProviders(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	page, err := s.search.Search(r.Context(), searchParamsToDomain(&params))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// bindSearchParams binds the form-style query parameters. Every malformed
// parameter is reported, not just the first.
func bindSearchParams(r *http.Request) (SearchProvidersParams, error) {
	var params SearchProvidersParams
	q := r.URL.Query()
	verr := &domain.ValidationError{}

	bind := func(name string, dest any) {
		if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
			verr.Add(name, "invalid value")
		}
	}
	bind("latitude", &params.Latitude)
	bind("longitude", &params.Longitude)
	bind("radiusInKm", &params.RadiusInKm)
	bind("serviceIds", &params.ServiceIds)
	bind("minRating", &params.MinRating)
	bind("subscriptionTiers", &params.SubscriptionTiers)
	bind("pageNumber", &params.PageNumber)
	bind("pageSize", &params.PageSize)

	return params, verr.OrNil()
}

func searchParamsToDomain(p *SearchProvidersParams) request.Params {
	out := request.Params{
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		RadiusKm:   p.RadiusInKm,
		MinRating:  p.MinRating,
		PageNumber: p.PageNumber,
		PageSize:   p.PageSize,
	}
	if p.ServiceIds != nil {
		out.ServiceIDs = *p.ServiceIds
	}
	if p.SubscriptionTiers != nil {
		out.Tiers = *p.SubscriptionTiers
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrInvalidArgument,
		domain.ErrIndexUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler handles ErrValidation and lists the rejected fields.
func validationHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	resp := ErrorResponse{Code: ErrorCodeValidationFailed, Message: msg}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(w, http.StatusBadRequest, resp)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
