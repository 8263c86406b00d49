package health

import (
	"context"

	"github.com/kailas-cloud/discovery/internal/metrics"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db     DBPinger
	index  IndexCounter
	events EventsChecker
}

// New creates a Service. index and events can be nil.
func New(db DBPinger, index IndexCounter, events EventsChecker) *Service {
	return &Service{db: db, index: index, events: events}
}

// Check runs health checks against all components. A successful index count
// refreshes the index entries gauge.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.index != nil {
		if n, err := s.index.Count(ctx); err != nil {
			checks["index"] = CheckError
		} else {
			checks["index"] = CheckOK
			metrics.IndexEntries.Set(float64(n))
		}
	}

	if s.events != nil {
		if err := s.events.HealthCheck(ctx); err != nil {
			checks["events"] = CheckError
		} else {
			checks["events"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
