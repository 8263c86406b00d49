package filter

import (
	"slices"

	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/domain/provider"
)

// Filters are the optional attribute filters of a provider search.
// Empty lists and a nil rating mean "no restriction".
type Filters struct {
	serviceIDs []uuid.UUID
	minRating  *float64
	tiers      []provider.Tier
}

// New creates normalized filters: service ids and tiers are deduplicated and sorted.
// A tier list covering every tier collapses to "no restriction".
func New(serviceIDs []uuid.UUID, minRating *float64, tiers []provider.Tier) Filters {
	f := Filters{serviceIDs: provider.NormalizeServiceIDs(serviceIDs)}
	if len(f.serviceIDs) == 0 {
		f.serviceIDs = nil
	}
	if minRating != nil {
		r := *minRating
		f.minRating = &r
	}
	t := slices.Clone(tiers)
	slices.Sort(t)
	t = slices.Compact(t)
	if len(t) > 0 && len(t) < len(provider.AllTiers) {
		f.tiers = t
	}
	return f
}

// ServiceIDs returns the sorted service ids an entry must intersect.
func (f Filters) ServiceIDs() []uuid.UUID { return f.serviceIDs }

// MinRating returns the minimum average rating, or nil.
func (f Filters) MinRating() *float64 { return f.minRating }

// Tiers returns the allowed tiers in ascending order.
func (f Filters) Tiers() []provider.Tier { return f.tiers }

// IsEmpty reports whether the filters restrict nothing.
func (f Filters) IsEmpty() bool {
	return len(f.serviceIDs) == 0 && f.minRating == nil && len(f.tiers) == 0
}

// Matches applies the attribute filters, in order: services, rating, tier.
// Visibility and distance are checked by the caller.
func (f Filters) Matches(e *provider.Entry) bool {
	if len(f.serviceIDs) > 0 && !e.OffersAny(f.serviceIDs) {
		return false
	}
	if f.minRating != nil && e.Rating() < *f.minRating {
		return false
	}
	if len(f.tiers) > 0 && !slices.Contains(f.tiers, e.Tier()) {
		return false
	}
	return true
}
