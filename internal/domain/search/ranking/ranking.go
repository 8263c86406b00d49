// Package ranking implements the exact membership test and ordering of a
// provider search. Storage backends only nominate candidates; the final
// result set and its order are decided here so every backend ranks alike.
package ranking

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/geo"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
	"github.com/kailas-cloud/discovery/internal/domain/search/filter"
	"github.com/kailas-cloud/discovery/internal/domain/search/request"
	"github.com/kailas-cloud/discovery/internal/domain/search/result"
)

// Query is an index search: a radius around a center, attribute filters and
// the page window over the ranked set.
type Query struct {
	Center   geo.Point
	RadiusKm float64
	Filters  filter.Filters
	Skip     int
	Take     int
}

// FromRequest builds the index query of a validated request.
func FromRequest(req *request.Request) Query {
	return Query{
		Center:   req.Center(),
		RadiusKm: req.RadiusKm(),
		Filters:  req.Filters(),
		Skip:     req.Skip(),
		Take:     req.Take(),
	}
}

// Validate checks the index preconditions. Violations wrap domain.ErrInvalidArgument.
func (q *Query) Validate() error {
	if math.IsNaN(q.RadiusKm) || q.RadiusKm <= 0 || q.RadiusKm > request.MaxRadiusKm {
		return fmt.Errorf("%w: radius %g km out of (0, %g]", domain.ErrInvalidArgument, q.RadiusKm, request.MaxRadiusKm)
	}
	if q.Take <= 0 || q.Take > request.MaxPageSize {
		return fmt.Errorf("%w: take %d out of (0, %d]", domain.ErrInvalidArgument, q.Take, request.MaxPageSize)
	}
	if q.Skip < 0 {
		return fmt.Errorf("%w: negative skip %d", domain.ErrInvalidArgument, q.Skip)
	}
	return nil
}

// CandidateRadiusKm widens the radius slightly for backend geo queries, so
// rounding in a backend's geohash never drops an entry that the exact
// Haversine check would keep.
func (q *Query) CandidateRadiusKm() float64 {
	return q.RadiusKm*1.01 + 0.01
}

// Candidate is an index entry nominated by a backend geo query.
type Candidate struct {
	Entry      provider.Entry
	DistanceKm float64
}

// Apply keeps candidates that are active, lie within the request radius by
// Haversine distance and match every attribute filter. DistanceKm is
// recomputed so backend precision never leaks into results.
func Apply(candidates []Candidate, q *Query) []Candidate {
	center := q.Center
	out := make([]Candidate, 0, len(candidates))
	for i := range candidates {
		c := candidates[i]
		if !c.Entry.Active() {
			continue
		}
		c.DistanceKm = center.DistanceKm(c.Entry.Location())
		if c.DistanceKm > q.RadiusKm {
			continue
		}
		if !q.Filters.Matches(&c.Entry) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Compare orders candidates by tier descending, rating descending,
// distance ascending and provider id ascending.
func Compare(a, b *Candidate) int {
	if c := cmp.Compare(b.Entry.Tier(), a.Entry.Tier()); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Entry.Rating(), a.Entry.Rating()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.DistanceKm, b.DistanceKm); c != 0 {
		return c
	}
	return provider.CompareProviderIDs(a.Entry.ProviderID(), b.Entry.ProviderID())
}

// Sort ranks candidates in place. The order is total, so equal inputs always
// produce equal outputs.
func Sort(candidates []Candidate) {
	slices.SortFunc(candidates, func(a, b Candidate) int { return Compare(&a, &b) })
}

// Paginate slices the ranked set to the requested page.
func Paginate(ranked []Candidate, skip, take int) result.Result {
	total := len(ranked)
	lo := min(max(skip, 0), total)
	hi := min(lo+max(take, 0), total)

	page := ranked[lo:hi]
	entries := make([]provider.Entry, len(page))
	distances := make([]float64, len(page))
	for i := range page {
		entries[i] = page[i].Entry
		distances[i] = page[i].DistanceKm
	}
	return result.New(entries, distances, total, skip)
}

// Rank runs Apply, Sort and Paginate for a query.
func Rank(candidates []Candidate, q *Query) result.Result {
	filtered := Apply(candidates, q)
	Sort(filtered)
	return Paginate(filtered, q.Skip, q.Take)
}
