package result

import (
	"github.com/kailas-cloud/discovery/internal/domain/provider"
)

// Result is one page of ranked index entries. It is never persisted.
type Result struct {
	entries     []provider.Entry
	distancesKm []float64
	totalCount  int
	skip        int
}

// New creates a result. distancesKm must be index-aligned with entries.
func New(entries []provider.Entry, distancesKm []float64, totalCount, skip int) Result {
	return Result{entries: entries, distancesKm: distancesKm, totalCount: totalCount, skip: skip}
}

// Entries returns the ranked entries of the page.
func (r *Result) Entries() []provider.Entry { return r.entries }

// DistancesKm returns the distance from the search center for each entry.
func (r *Result) DistancesKm() []float64 { return r.distancesKm }

// TotalCount returns the size of the filtered set before pagination.
func (r *Result) TotalCount() int { return r.totalCount }

// Skip returns the number of ranked entries before this page.
func (r *Result) Skip() int { return r.skip }

// HasMore reports whether ranked entries exist after this page.
func (r *Result) HasMore() bool { return r.skip+len(r.entries) < r.totalCount }
