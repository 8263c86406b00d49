// Package bleveindex implements the geo search index on an embedded bleve
// index, for single-node deployments without Redis.
package bleveindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
	"github.com/kailas-cloud/discovery/internal/domain/search/ranking"
	"github.com/kailas-cloud/discovery/internal/domain/search/result"
	"github.com/kailas-cloud/discovery/internal/repository/index"
)

const (
	fieldLocation = "location"
	fieldActive   = "active"
	fieldRating   = "rating"
	fieldTier     = "tier"
	fieldServices = "services"
	fieldPayload  = "payload"
)

var errClosed = errors.New("index is closed")

// Index is the bleve-backed geo search index. Documents are keyed by provider id.
//
// mu guards the open/closed lifecycle only: reads and writes share it and
// rely on bleve to order concurrent batches, Close takes it exclusively.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// Open opens the index at path, creating it when missing.
// An empty path creates an in-memory index.
func Open(path string) (*Index, error) {
	m := newIndexMapping()

	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory for %s: %w", path, err)
		}
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}
	return &Index{index: idx}, nil
}

func newIndexMapping() *mapping.IndexMappingImpl {
	doc := bleve.NewDocumentStaticMapping()

	doc.AddFieldMappingsAt(fieldLocation, bleve.NewGeoPointFieldMapping())
	doc.AddFieldMappingsAt(fieldActive, bleve.NewBooleanFieldMapping())
	doc.AddFieldMappingsAt(fieldRating, bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt(fieldTier, mapping.NewKeywordFieldMapping())
	doc.AddFieldMappingsAt(fieldServices, mapping.NewKeywordFieldMapping())

	payload := bleve.NewTextFieldMapping()
	payload.Index = false
	payload.Store = true
	payload.IncludeInAll = false
	payload.IncludeTermVectors = false
	payload.DocValues = false
	doc.AddFieldMappingsAt(fieldPayload, payload)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Search returns the ranked page of active entries within the query radius.
// It issues one search request against one index snapshot; membership and
// order come from ranking.
func (x *Index) Search(ctx context.Context, q *ranking.Query) (result.Result, error) {
	if err := q.Validate(); err != nil {
		return result.Result{}, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return result.Result{}, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, errClosed)
	}

	total, err := x.index.DocCount()
	if err != nil {
		return result.Result{}, fmt.Errorf("%w: doc count: %w", domain.ErrIndexUnavailable, err)
	}
	if total == 0 {
		return ranking.Rank(nil, q), nil
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q), int(total), 0, false)
	req.Fields = []string{fieldPayload}

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return result.Result{}, fmt.Errorf("%w: search: %w", domain.ErrIndexUnavailable, err)
	}

	candidates := make([]ranking.Candidate, 0, len(res.Hits))
	for _, hit := range res.Hits {
		raw, ok := hit.Fields[fieldPayload].(string)
		if !ok {
			return result.Result{}, fmt.Errorf("%w: document %s has no payload", domain.ErrIndexUnavailable, hit.ID)
		}
		e, err := index.DecodeEntry([]byte(raw))
		if err != nil {
			return result.Result{}, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
		}
		candidates = append(candidates, ranking.Candidate{Entry: e})
	}
	return ranking.Rank(candidates, q), nil
}

// buildQuery pushes the geo radius and attribute filters down to bleve.
func buildQuery(q *ranking.Query) blevequery.Query {
	geoQ := bleve.NewGeoDistanceQuery(q.Center.Lon(), q.Center.Lat(),
		strconv.FormatFloat(q.CandidateRadiusKm(), 'f', -1, 64)+"km")
	geoQ.SetField(fieldLocation)

	activeQ := bleve.NewBoolFieldQuery(true)
	activeQ.SetField(fieldActive)

	conj := []blevequery.Query{geoQ, activeQ}

	f := q.Filters
	if ids := f.ServiceIDs(); len(ids) > 0 {
		terms := make([]blevequery.Query, len(ids))
		for i, id := range ids {
			t := bleve.NewTermQuery(id.String())
			t.SetField(fieldServices)
			terms[i] = t
		}
		conj = append(conj, bleve.NewDisjunctionQuery(terms...))
	}
	if r := f.MinRating(); r != nil {
		inclusive := true
		ratingQ := bleve.NewNumericRangeInclusiveQuery(r, nil, &inclusive, nil)
		ratingQ.SetField(fieldRating)
		conj = append(conj, ratingQ)
	}
	if tiers := f.Tiers(); len(tiers) > 0 {
		terms := make([]blevequery.Query, len(tiers))
		for i, t := range tiers {
			tq := bleve.NewTermQuery(t.String())
			tq.SetField(fieldTier)
			terms[i] = tq
		}
		conj = append(conj, bleve.NewDisjunctionQuery(terms...))
	}
	return bleve.NewConjunctionQuery(conj...)
}

// Upsert inserts or replaces the document of the entry's provider.
func (x *Index) Upsert(ctx context.Context, e *provider.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := index.EncodeEntry(e)
	if err != nil {
		return err
	}

	services := make([]string, len(e.ServiceIDs()))
	for i, id := range e.ServiceIDs() {
		services[i] = id.String()
	}
	doc := map[string]any{
		fieldLocation: map[string]any{"lat": e.Location().Lat(), "lon": e.Location().Lon()},
		fieldActive:   e.Active(),
		fieldRating:   e.Rating(),
		fieldTier:     e.Tier().String(),
		fieldServices: services,
		fieldPayload:  string(payload),
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, errClosed)
	}
	if err := x.index.Index(e.ProviderID().String(), doc); err != nil {
		return fmt.Errorf("%w: index %s: %w", domain.ErrIndexUnavailable, e.ProviderID(), err)
	}
	return nil
}

// Remove deletes the document of a provider. Removing an absent document is a no-op.
func (x *Index) Remove(ctx context.Context, providerID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, errClosed)
	}
	if err := x.index.Delete(providerID.String()); err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrIndexUnavailable, providerID, err)
	}
	return nil
}

// Get returns the stored entry of a provider, active or not.
func (x *Index) Get(ctx context.Context, providerID uuid.UUID) (provider.Entry, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return provider.Entry{}, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, errClosed)
	}

	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{providerID.String()}))
	req.Fields = []string{fieldPayload}
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return provider.Entry{}, fmt.Errorf("%w: get %s: %w", domain.ErrIndexUnavailable, providerID, err)
	}
	if len(res.Hits) == 0 {
		return provider.Entry{}, domain.ErrEntryNotFound
	}
	raw, ok := res.Hits[0].Fields[fieldPayload].(string)
	if !ok {
		return provider.Entry{}, fmt.Errorf("%w: document %s has no payload", domain.ErrIndexUnavailable, providerID)
	}
	e, err := index.DecodeEntry([]byte(raw))
	if err != nil {
		return provider.Entry{}, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return e, nil
}

// Count returns the number of stored documents, active or not.
func (x *Index) Count(_ context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return 0, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, errClosed)
	}
	n, err := x.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("%w: doc count: %w", domain.ErrIndexUnavailable, err)
	}
	return int(n), nil
}

// Ping reports whether the index is open.
func (x *Index) Ping(_ context.Context) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return errClosed
	}
	return nil
}

// Close closes the underlying index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true
	return x.index.Close()
}
