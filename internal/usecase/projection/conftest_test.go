package projection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/event"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
)

// --- Mocks ---

type fakeIndex struct {
	mu        sync.Mutex
	entries   map[uuid.UUID]provider.Entry
	getErr    error
	upsertErr error
	removeErr error
	upserts   int
	removes   int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{entries: map[uuid.UUID]provider.Entry{}}
}

func (f *fakeIndex) Get(_ context.Context, id uuid.UUID) (provider.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return provider.Entry{}, f.getErr
	}
	e, ok := f.entries[id]
	if !ok {
		return provider.Entry{}, domain.ErrEntryNotFound
	}
	return e, nil
}

func (f *fakeIndex) Upsert(_ context.Context, e *provider.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++
	f.entries[e.ProviderID()] = *e
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removes++
	delete(f.entries, id)
	return nil
}

func (f *fakeIndex) entry(t *testing.T, id uuid.UUID) provider.Entry {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		t.Fatalf("entry %s not indexed", id)
	}
	return e
}

type mockSnapshots struct {
	snapshotFn func(ctx context.Context, ev *event.Event) (*provider.Snapshot, error)
	calls      int
}

func (m *mockSnapshots) Snapshot(ctx context.Context, ev *event.Event) (*provider.Snapshot, error) {
	m.calls++
	if m.snapshotFn != nil {
		return m.snapshotFn(ctx, ev)
	}
	return EventSnapshots{}.Snapshot(ctx, ev)
}

type mockInvalidator struct {
	calls [][]string
	err   error
}

func (m *mockInvalidator) Invalidate(_ context.Context, tags ...string) error {
	m.calls = append(m.calls, tags)
	return m.err
}

// --- Helpers ---

func ptr[T any](v T) *T { return &v }

func fullSnapshot(id uuid.UUID) *provider.Snapshot {
	return &provider.Snapshot{
		ProviderID:   id,
		Name:         ptr("Clinic"),
		Description:  ptr("General practice"),
		Latitude:     ptr(-23.5505),
		Longitude:    ptr(-46.6333),
		City:         ptr("Sao Paulo"),
		State:        ptr("SP"),
		Rating:       ptr(4.5),
		TotalReviews: ptr(12),
		Tier:         ptr(provider.TierGold),
		ServiceIDs:   []uuid.UUID{uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")},
	}
}

func newEvent(t *testing.T, kind event.Kind, id uuid.UUID, snap *provider.Snapshot) *event.Event {
	t.Helper()
	ev, err := event.New(uuid.New(), kind, id, time.Now(), snap)
	if err != nil {
		t.Fatalf("event.New: %v", err)
	}
	return &ev
}
