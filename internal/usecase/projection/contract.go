package projection

import (
	"context"

	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/domain/event"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
)

// Index defines the write contract of the geo search index.
type Index interface {
	Get(ctx context.Context, providerID uuid.UUID) (provider.Entry, error)
	Upsert(ctx context.Context, e *provider.Entry) error
	Remove(ctx context.Context, providerID uuid.UUID) error
}

// SnapshotSource returns the current state of the provider an event refers to.
type SnapshotSource interface {
	Snapshot(ctx context.Context, ev *event.Event) (*provider.Snapshot, error)
}

// Invalidator drops cached search results by tag.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}
