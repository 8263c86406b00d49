package event

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
)

// Kind identifies a provider lifecycle event.
type Kind string

// Provider lifecycle event kinds, as published on the bus.
const (
	KindActivated      Kind = "provider.activated"
	KindVerified       Kind = "provider.verified"
	KindProfileUpdated Kind = "provider.profile_updated"
	KindRatingChanged  Kind = "provider.rating_changed"
	KindSuspended      Kind = "provider.suspended"
	KindRejected       Kind = "provider.rejected"
	KindDeleted        Kind = "provider.deleted"
)

// Kinds lists every known event kind.
var Kinds = []Kind{
	KindActivated,
	KindVerified,
	KindProfileUpdated,
	KindRatingChanged,
	KindSuspended,
	KindRejected,
	KindDeleted,
}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return slices.Contains(Kinds, k)
}

func (k Kind) String() string { return string(k) }

// Event is a provider lifecycle notification. Handlers key their effects by
// ProviderID, never by ID, so redelivery is harmless.
type Event struct {
	id         uuid.UUID
	kind       Kind
	providerID uuid.UUID
	occurredAt time.Time
	snapshot   *provider.Snapshot
}

// New creates an event. Unknown kinds wrap domain.ErrUnknownEvent; a nil
// provider id wraps domain.ErrInvalidEvent. A missing event id is minted.
func New(id uuid.UUID, kind Kind, providerID uuid.UUID, occurredAt time.Time, snapshot *provider.Snapshot) (Event, error) {
	if !kind.IsValid() {
		return Event{}, fmt.Errorf("%w: %q", domain.ErrUnknownEvent, kind)
	}
	if providerID == uuid.Nil {
		return Event{}, fmt.Errorf("%w: providerId is required", domain.ErrInvalidEvent)
	}
	if snapshot != nil && snapshot.ProviderID != providerID {
		if snapshot.ProviderID != uuid.Nil {
			return Event{}, fmt.Errorf("%w: snapshot belongs to provider %s", domain.ErrInvalidEvent, snapshot.ProviderID)
		}
		s := *snapshot
		s.ProviderID = providerID
		snapshot = &s
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	return Event{id: id, kind: kind, providerID: providerID, occurredAt: occurredAt, snapshot: snapshot}, nil
}

// ID returns the event id.
func (e *Event) ID() uuid.UUID { return e.id }

// Kind returns the event kind.
func (e *Event) Kind() Kind { return e.kind }

// ProviderID returns the provider the event is about.
func (e *Event) ProviderID() uuid.UUID { return e.providerID }

// OccurredAt returns when the write side produced the event.
func (e *Event) OccurredAt() time.Time { return e.occurredAt }

// Snapshot returns the provider state carried in the event, or nil.
func (e *Event) Snapshot() *provider.Snapshot { return e.snapshot }
