package request

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/geo"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
	"github.com/kailas-cloud/discovery/internal/domain/search/filter"
)

// Search parameter limits.
const (
	MaxRadiusKm     = 500.0
	DefaultPage     = 1
	MaxPageNumber   = 1_000_000
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxServiceIDs   = 50
)

// Params are the raw inbound query parameters. Nil pointers mean "not provided".
type Params struct {
	Latitude   *float64
	Longitude  *float64
	RadiusKm   *float64
	ServiceIDs []string
	MinRating  *float64
	Tiers      []string
	PageNumber *int
	PageSize   *int
}

// Request is a validated provider search.
type Request struct {
	center     geo.Point
	radiusKm   float64
	filters    filter.Filters
	pageNumber int
	pageSize   int
}

// New validates and normalizes search parameters. It has no side effects and
// reports every violated field in a single *domain.ValidationError.
// Defaults: pageNumber=1, pageSize=20.
func New(p Params) (Request, error) {
	verr := &domain.ValidationError{}

	var lat, lon float64
	switch {
	case p.Latitude == nil:
		verr.Add("latitude", "is required")
	case !finite(*p.Latitude) || *p.Latitude < -90 || *p.Latitude > 90:
		verr.Add("latitude", "must be between -90 and 90")
	default:
		lat = *p.Latitude
	}
	switch {
	case p.Longitude == nil:
		verr.Add("longitude", "is required")
	case !finite(*p.Longitude) || *p.Longitude < -180 || *p.Longitude > 180:
		verr.Add("longitude", "must be between -180 and 180")
	default:
		lon = *p.Longitude
	}

	var radius float64
	switch {
	case p.RadiusKm == nil:
		verr.Add("radiusInKm", "is required")
	case !finite(*p.RadiusKm) || *p.RadiusKm <= 0:
		verr.Add("radiusInKm", "must be positive")
	case *p.RadiusKm > MaxRadiusKm:
		verr.Add("radiusInKm", "must not exceed %g", MaxRadiusKm)
	default:
		radius = *p.RadiusKm
	}

	if p.MinRating != nil && (!finite(*p.MinRating) ||
		*p.MinRating < provider.MinRating || *p.MinRating > provider.MaxRating) {
		verr.Add("minRating", "must be between %g and %g", provider.MinRating, provider.MaxRating)
	}

	serviceIDs := parseServiceIDs(p.ServiceIDs, verr)
	tiers := parseTiers(p.Tiers, verr)

	pageNumber := DefaultPage
	if p.PageNumber != nil {
		pageNumber = *p.PageNumber
	}
	if pageNumber < 1 || pageNumber > MaxPageNumber {
		verr.Add("pageNumber", "must be between 1 and %d", MaxPageNumber)
	}
	pageSize := DefaultPageSize
	if p.PageSize != nil {
		pageSize = *p.PageSize
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		verr.Add("pageSize", "must be between 1 and %d", MaxPageSize)
	}

	if err := verr.OrNil(); err != nil {
		return Request{}, err
	}

	center, err := geo.NewPoint(lat, lon)
	if err != nil {
		return Request{}, err
	}

	return Request{
		center:     center,
		radiusKm:   radius,
		filters:    filter.New(serviceIDs, p.MinRating, tiers),
		pageNumber: pageNumber,
		pageSize:   pageSize,
	}, nil
}

// Center returns the search origin.
func (r *Request) Center() geo.Point { return r.center }

// RadiusKm returns the search radius in kilometers.
func (r *Request) RadiusKm() float64 { return r.radiusKm }

// Filters returns the normalized attribute filters.
func (r *Request) Filters() filter.Filters { return r.filters }

// PageNumber returns the 1-based page number.
func (r *Request) PageNumber() int { return r.pageNumber }

// PageSize returns the page size.
func (r *Request) PageSize() int { return r.pageSize }

// Skip returns the number of ranked entries before the requested page.
func (r *Request) Skip() int { return (r.pageNumber - 1) * r.pageSize }

// Take returns the maximum number of entries in the requested page.
func (r *Request) Take() int { return r.pageSize }

func parseServiceIDs(raw []string, verr *domain.ValidationError) []uuid.UUID {
	if len(raw) > MaxServiceIDs {
		verr.Add("serviceIds", "too many values (max %d)", MaxServiceIDs)
		return nil
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil || id == uuid.Nil {
			verr.Add("serviceIds", "invalid service id %q", s)
			continue
		}
		out = append(out, id)
	}
	return out
}

func parseTiers(raw []string, verr *domain.ValidationError) []provider.Tier {
	out := make([]provider.Tier, 0, len(raw))
	for _, s := range raw {
		t, err := provider.ParseTier(s)
		if err != nil {
			verr.Add("subscriptionTiers", "unknown tier %q", s)
			continue
		}
		out = append(out, t)
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
