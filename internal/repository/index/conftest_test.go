package index

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/db"
	"github.com/kailas-cloud/discovery/internal/domain/geo"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	geoPutFn    func(ctx context.Context, p *db.GeoPut) error
	geoRemoveFn func(ctx context.Context, r *db.GeoRemove) error
	geoRadiusFn func(ctx context.Context, q *db.GeoRadiusQuery) ([]db.GeoHit, error)
	hgetFn      func(ctx context.Context, key, field string) ([]byte, error)
	scardFn     func(ctx context.Context, key string) (int64, error)
}

func (m *mockStore) GeoPut(ctx context.Context, p *db.GeoPut) error {
	if m.geoPutFn != nil {
		return m.geoPutFn(ctx, p)
	}
	return nil
}

func (m *mockStore) GeoRemove(ctx context.Context, r *db.GeoRemove) error {
	if m.geoRemoveFn != nil {
		return m.geoRemoveFn(ctx, r)
	}
	return nil
}

func (m *mockStore) GeoRadius(ctx context.Context, q *db.GeoRadiusQuery) ([]db.GeoHit, error) {
	if m.geoRadiusFn != nil {
		return m.geoRadiusFn(ctx, q)
	}
	return nil, nil
}

func (m *mockStore) HGet(ctx context.Context, key, field string) ([]byte, error) {
	if m.hgetFn != nil {
		return m.hgetFn(ctx, key, field)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) SCard(ctx context.Context, key string) (int64, error) {
	if m.scardFn != nil {
		return m.scardFn(ctx, key)
	}
	return 0, nil
}

// memStore is a minimal in-memory fake of the Redis layout: it keeps hashes,
// the geo set and the ids set, and answers radius queries with Haversine.
type memStore struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	geo    map[string]geo.Point
	ids    map[string]struct{}
}

func newMemStore() *memStore {
	return &memStore{
		hashes: map[string]map[string]string{},
		geo:    map[string]geo.Point{},
		ids:    map[string]struct{}{},
	}
}

func (m *memStore) GeoPut(_ context.Context, p *db.GeoPut) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.hashes[p.HashKey]
	if h == nil {
		h = map[string]string{}
		m.hashes[p.HashKey] = h
	}
	for k, v := range p.Fields {
		h[k] = v
	}
	if p.Indexed {
		m.geo[p.Member] = geo.MustPoint(p.Lat, p.Lon)
	} else {
		delete(m.geo, p.Member)
	}
	m.ids[p.Member] = struct{}{}
	return nil
}

func (m *memStore) GeoRemove(_ context.Context, r *db.GeoRemove) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hashes, r.HashKey)
	delete(m.geo, r.Member)
	delete(m.ids, r.Member)
	return nil
}

func (m *memStore) GeoRadius(_ context.Context, q *db.GeoRadiusQuery) ([]db.GeoHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	center := geo.MustPoint(q.Lat, q.Lon)
	var hits []db.GeoHit
	for member, p := range m.geo {
		d := center.DistanceKm(p)
		if d > q.RadiusKm {
			continue
		}
		payload, ok := m.hashes[q.HashKeyPrefix+member][q.Field]
		if !ok {
			continue
		}
		hits = append(hits, db.GeoHit{Member: member, DistanceKm: d, Payload: []byte(payload)})
	}
	return hits, nil
}

func (m *memStore) HGet(_ context.Context, key, field string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.hashes[key][field]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return []byte(v), nil
}

func (m *memStore) SCard(_ context.Context, _ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.ids)), nil
}

func testEntry(t *testing.T, lat, lon float64, tier provider.Tier, rating float64) provider.Entry {
	t.Helper()
	e, err := provider.NewEntry(provider.EntryParams{
		ID:         uuid.New(),
		ProviderID: uuid.New(),
		Name:       "Provider",
		Location:   geo.MustPoint(lat, lon),
		City:       "São Paulo",
		State:      "SP",
		Rating:     rating,
		Tier:       tier,
		ServiceIDs: []uuid.UUID{uuid.New()},
		Active:     true,
	})
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	return e
}
