package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/event"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
	"github.com/kailas-cloud/discovery/internal/metrics"
	"github.com/kailas-cloud/discovery/internal/repository/querycache"
)

// outcome of a handler.
type outcome string

const (
	applied outcome = "applied"
	skipped outcome = "skipped"
)

type handlerFunc func(ctx context.Context, ev *event.Event) (outcome, error)

// Projector keeps the search index in sync with provider lifecycle events.
type Projector struct {
	index     Index
	snapshots SnapshotSource
	cache     Invalidator
	logger    *zap.Logger
	locks     keyLocks
	handlers  map[event.Kind]handlerFunc
	newID     func() uuid.UUID
}

// New creates a Projector. cache may be nil when caching is disabled.
func New(index Index, snapshots SnapshotSource, cache Invalidator, logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Projector{
		index:     index,
		snapshots: snapshots,
		cache:     cache,
		logger:    logger,
		newID:     uuid.New,
	}
	p.handlers = map[event.Kind]handlerFunc{
		event.KindActivated:      p.activate,
		event.KindVerified:       p.activate,
		event.KindProfileUpdated: p.updateProfile,
		event.KindRatingChanged:  p.updateRating,
		event.KindSuspended:      p.deactivate,
		event.KindRejected:       p.deactivate,
		event.KindDeleted:        p.remove,
	}
	return p
}

// Handle applies one event to the index. Handlers are keyed by provider id,
// so redelivered events converge to the same state. Unknown kinds return
// ErrUnknownEvent; every other failure wraps ErrProjection.
func (p *Projector) Handle(ctx context.Context, ev *event.Event) error {
	start := time.Now()
	kind := ev.Kind()
	log := p.logger.With(
		zap.String("kind", kind.String()),
		zap.String("provider_id", ev.ProviderID().String()),
		zap.String("event_id", ev.ID().String()),
	)

	h, ok := p.handlers[kind]
	if !ok {
		metrics.ProjectionEventsTotal.WithLabelValues(kind.String(), "unknown").Inc()
		log.Warn("unknown event kind")
		return fmt.Errorf("%w: %s", domain.ErrUnknownEvent, kind)
	}

	out, err := p.apply(ctx, ev, h)
	metrics.ProjectionDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProjectionEventsTotal.WithLabelValues(kind.String(), "error").Inc()
		log.Error("projection failed", zap.Error(err))
		return fmt.Errorf("%w: %s %s: %w", domain.ErrProjection, kind, ev.ProviderID(), err)
	}

	metrics.ProjectionEventsTotal.WithLabelValues(kind.String(), string(out)).Inc()
	log.Info("event projected", zap.String("outcome", string(out)))
	return nil
}

func (p *Projector) apply(ctx context.Context, ev *event.Event, h handlerFunc) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	unlock := p.locks.lock(ev.ProviderID())
	defer unlock()

	out, err := h(ctx, ev)
	if err != nil || out != applied {
		return out, err
	}
	if p.cache != nil {
		if err := p.cache.Invalidate(ctx, querycache.SearchTags...); err != nil {
			return "", fmt.Errorf("invalidate search cache: %w", err)
		}
	}
	return applied, nil
}

// activate upserts an active entry built from a fresh snapshot, keeping the
// existing entry id when there is one.
func (p *Projector) activate(ctx context.Context, ev *event.Event) (outcome, error) {
	snap, err := p.snapshot(ctx, ev)
	if err != nil || snap == nil {
		return skipped, err
	}

	id := p.newID()
	existing, err := p.index.Get(ctx, ev.ProviderID())
	switch {
	case err == nil:
		id = existing.ID()
	case !errors.Is(err, domain.ErrEntryNotFound):
		return "", fmt.Errorf("get entry: %w", err)
	}

	e, err := provider.NewEntryFromSnapshot(id, snap)
	if err != nil {
		return "", fmt.Errorf("build entry: %w", err)
	}
	return p.upsert(ctx, &e)
}

func (p *Projector) updateProfile(ctx context.Context, ev *event.Event) (outcome, error) {
	return p.merge(ctx, ev, (*provider.Entry).MergeProfile)
}

func (p *Projector) updateRating(ctx context.Context, ev *event.Event) (outcome, error) {
	return p.merge(ctx, ev, (*provider.Entry).MergeRating)
}

// merge applies a snapshot to the existing entry. Absent entries are left
// absent: the provider is not searchable until it is activated.
func (p *Projector) merge(
	ctx context.Context, ev *event.Event,
	mergeFn func(*provider.Entry, *provider.Snapshot) (provider.Entry, error),
) (outcome, error) {
	existing, ok, err := p.existing(ctx, ev.ProviderID())
	if err != nil || !ok {
		return skipped, err
	}

	snap, err := p.snapshot(ctx, ev)
	if err != nil || snap == nil {
		return skipped, err
	}

	e, err := mergeFn(&existing, snap)
	if err != nil {
		return "", fmt.Errorf("merge snapshot: %w", err)
	}
	return p.upsert(ctx, &e)
}

func (p *Projector) deactivate(ctx context.Context, ev *event.Event) (outcome, error) {
	existing, ok, err := p.existing(ctx, ev.ProviderID())
	if err != nil || !ok {
		return skipped, err
	}
	e := existing.WithActive(false)
	return p.upsert(ctx, &e)
}

func (p *Projector) remove(ctx context.Context, ev *event.Event) (outcome, error) {
	if err := p.index.Remove(ctx, ev.ProviderID()); err != nil {
		return "", fmt.Errorf("remove entry: %w", err)
	}
	return applied, nil
}

func (p *Projector) existing(ctx context.Context, providerID uuid.UUID) (provider.Entry, bool, error) {
	e, err := p.index.Get(ctx, providerID)
	if errors.Is(err, domain.ErrEntryNotFound) {
		return provider.Entry{}, false, nil
	}
	if err != nil {
		return provider.Entry{}, false, fmt.Errorf("get entry: %w", err)
	}
	return e, true, nil
}

// snapshot fetches the provider's current state. A provider the providers
// module no longer knows yields (nil, nil): its deletion event follows.
func (p *Projector) snapshot(ctx context.Context, ev *event.Event) (*provider.Snapshot, error) {
	snap, err := p.snapshots.Snapshot(ctx, ev)
	if errors.Is(err, domain.ErrProviderNotFound) {
		p.logger.Warn("provider snapshot not found",
			zap.String("provider_id", ev.ProviderID().String()),
			zap.String("kind", ev.Kind().String()),
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	switch snap.ProviderID {
	case ev.ProviderID():
	case uuid.Nil:
		s := *snap
		s.ProviderID = ev.ProviderID()
		snap = &s
	default:
		return nil, fmt.Errorf("%w: snapshot of %s for event on %s", domain.ErrInvalidEvent, snap.ProviderID, ev.ProviderID())
	}
	return snap, nil
}

func (p *Projector) upsert(ctx context.Context, e *provider.Entry) (outcome, error) {
	if err := p.index.Upsert(ctx, e); err != nil {
		return "", fmt.Errorf("upsert entry: %w", err)
	}
	return applied, nil
}
