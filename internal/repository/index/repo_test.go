package index

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/db"
	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/geo"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
	"github.com/kailas-cloud/discovery/internal/domain/search/filter"
	"github.com/kailas-cloud/discovery/internal/domain/search/ranking"
)

func query(lat, lon, radius float64, take int) *ranking.Query {
	return &ranking.Query{Center: geo.MustPoint(lat, lon), RadiusKm: radius, Filters: filter.New(nil, nil, nil), Take: take}
}

func TestEncodeDecode(t *testing.T) {
	e := testEntry(t, -23.55, -46.63, provider.TierGold, 4.5)
	data, err := EncodeEntry(&e)
	if err != nil {
		t.Fatalf("EncodeEntry: %v", err)
	}
	got, err := DecodeEntry(data)
	if err != nil {
		t.Fatalf("DecodeEntry: %v", err)
	}
	if got.ID() != e.ID() || got.ProviderID() != e.ProviderID() || got.Tier() != provider.TierGold ||
		got.City() != "São Paulo" || got.Location() != e.Location() || len(got.ServiceIDs()) != 1 {
		t.Errorf("round trip mismatch: %+v", got.Params())
	}
}

func TestDecodeEntry_Invalid(t *testing.T) {
	if _, err := DecodeEntry([]byte(`{"latitude": 91}`)); err == nil {
		t.Error("expected error for invalid payload")
	}
	if _, err := DecodeEntry([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestUpsert_Layout(t *testing.T) {
	var got *db.GeoPut
	ms := &mockStore{geoPutFn: func(_ context.Context, p *db.GeoPut) error {
		got = p
		return nil
	}}
	repo := New(ms, "discovery:")

	e := testEntry(t, 1, 2, provider.TierFree, 3)
	if err := repo.Upsert(context.Background(), &e); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	pid := e.ProviderID().String()
	if got.HashKey != "discovery:provider:"+pid {
		t.Errorf("HashKey = %s", got.HashKey)
	}
	if got.GeoKey != "discovery:providers:geo" || got.SetKey != "discovery:providers:ids" {
		t.Errorf("unexpected keys %s %s", got.GeoKey, got.SetKey)
	}
	if !got.Indexed || got.Fields[fieldActive] != "1" || got.Lat != 1 || got.Lon != 2 {
		t.Errorf("unexpected put %+v", got)
	}
}

func TestUpsert_InactiveLeavesGeoSet(t *testing.T) {
	var got *db.GeoPut
	ms := &mockStore{geoPutFn: func(_ context.Context, p *db.GeoPut) error {
		got = p
		return nil
	}}
	repo := New(ms, "")

	e := testEntry(t, 1, 2, provider.TierFree, 3)
	off := e.WithActive(false)
	if err := repo.Upsert(context.Background(), &off); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got.Indexed || got.Fields[fieldActive] != "0" {
		t.Errorf("inactive entry must not be geo-indexed: %+v", got)
	}
}

func TestUpsert_StoreError(t *testing.T) {
	ms := &mockStore{geoPutFn: func(context.Context, *db.GeoPut) error {
		return &db.Error{Op: db.OpExec, Err: errors.New("boom")}
	}}
	repo := New(ms, "")
	e := testEntry(t, 1, 2, provider.TierFree, 3)
	if err := repo.Upsert(context.Background(), &e); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestUpsert_CancelledContext(t *testing.T) {
	called := false
	ms := &mockStore{geoPutFn: func(context.Context, *db.GeoPut) error {
		called = true
		return nil
	}}
	repo := New(ms, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := testEntry(t, 1, 2, provider.TierFree, 3)
	if err := repo.Upsert(ctx, &e); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("no write may be issued after cancellation")
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := New(&mockStore{}, "")
	if _, err := repo.Get(context.Background(), uuid.New()); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestSearch_InvalidQuery(t *testing.T) {
	repo := New(&mockStore{}, "")
	_, err := repo.Search(context.Background(), query(0, 0, 0, 20))
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSearch_StoreError(t *testing.T) {
	ms := &mockStore{geoRadiusFn: func(context.Context, *db.GeoRadiusQuery) ([]db.GeoHit, error) {
		return nil, &db.Error{Op: db.OpGeoSearch, Err: errors.New("conn refused")}
	}}
	repo := New(ms, "")
	_, err := repo.Search(context.Background(), query(0, 0, 10, 20))
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestSearch_WidensCandidateRadius(t *testing.T) {
	var got *db.GeoRadiusQuery
	ms := &mockStore{geoRadiusFn: func(_ context.Context, q *db.GeoRadiusQuery) ([]db.GeoHit, error) {
		got = q
		return nil, nil
	}}
	repo := New(ms, "p:")
	if _, err := repo.Search(context.Background(), query(10, 20, 50, 20)); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got.RadiusKm <= 50 || got.Lat != 10 || got.Lon != 20 || got.HashKeyPrefix != "p:provider:" {
		t.Errorf("unexpected geo query %+v", got)
	}
}

func TestSearch_PolarEntryUsesRealDistance(t *testing.T) {
	e := testEntry(t, 88, 10, provider.TierFree, 4)
	payload, err := EncodeEntry(&e)
	if err != nil {
		t.Fatalf("EncodeEntry: %v", err)
	}
	// Distance as reported from a clamped search center.
	ms := &mockStore{geoRadiusFn: func(_ context.Context, _ *db.GeoRadiusQuery) ([]db.GeoHit, error) {
		return []db.GeoHit{{Member: e.ProviderID().String(), DistanceKm: 327.9, Payload: payload}}, nil
	}}
	repo := New(ms, "p:")

	res, err := repo.Search(context.Background(), query(88, 10, 5, 20))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.TotalCount() != 1 || len(res.Entries()) != 1 {
		t.Fatalf("expected polar entry in results, got %d", res.TotalCount())
	}
	if d := res.DistancesKm()[0]; d > 0.001 {
		t.Errorf("expected distance from the real center, got %v", d)
	}
}

func TestSearch_RanksAndFilters(t *testing.T) {
	ms := newMemStore()
	repo := New(ms, "")
	ctx := context.Background()

	near := testEntry(t, 0.01, 0, provider.TierFree, 5)
	gold := testEntry(t, 0.05, 0, provider.TierGold, 3)
	far := testEntry(t, 1, 0, provider.TierPlatinum, 5)
	hidden := testEntry(t, 0.01, 0.01, provider.TierPlatinum, 5)
	hiddenOff := hidden.WithActive(false)

	for _, e := range []*provider.Entry{&near, &gold, &far, &hiddenOff} {
		if err := repo.Upsert(ctx, e); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	res, err := repo.Search(ctx, query(0, 0, 10, 20))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	entries := res.Entries()
	if res.TotalCount() != 2 || len(entries) != 2 {
		t.Fatalf("expected 2 results, got %d", res.TotalCount())
	}
	if entries[0].ProviderID() != gold.ProviderID() || entries[1].ProviderID() != near.ProviderID() {
		t.Error("expected gold tier ranked before free tier")
	}

	n, err := repo.Count(ctx)
	if err != nil || n != 4 {
		t.Errorf("Count() = %d, %v; want 4 (inactive entries are stored)", n, err)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	ms := newMemStore()
	repo := New(ms, "")
	ctx := context.Background()

	e := testEntry(t, 0, 0, provider.TierFree, 1)
	for range 3 {
		if err := repo.Upsert(ctx, &e); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	res, err := repo.Search(ctx, query(0, 0, 1, 20))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.TotalCount() != 1 {
		t.Errorf("repeated upserts produced %d entries", res.TotalCount())
	}
}

func TestRemove(t *testing.T) {
	ms := newMemStore()
	repo := New(ms, "")
	ctx := context.Background()

	e := testEntry(t, 0, 0, provider.TierFree, 1)
	if err := repo.Upsert(ctx, &e); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Remove(ctx, e.ProviderID()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := repo.Remove(ctx, e.ProviderID()); err != nil {
		t.Fatalf("second Remove must be a no-op: %v", err)
	}
	if _, err := repo.Get(ctx, e.ProviderID()); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound after remove, got %v", err)
	}
}
