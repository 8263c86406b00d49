package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/event"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
	"github.com/kailas-cloud/discovery/internal/transport/providers"
)

// Envelope is the wire form of a provider lifecycle event.
type Envelope struct {
	ID         uuid.UUID              `json:"id"`
	Type       string                 `json:"type"`
	ProviderID uuid.UUID              `json:"providerId"`
	OccurredAt time.Time              `json:"occurredAt"`
	Snapshot   *providers.SnapshotDTO `json:"snapshot,omitempty"`
}

// DecodeEvent parses an envelope into a domain event. Malformed payloads wrap
// domain.ErrInvalidEvent; unknown types wrap domain.ErrUnknownEvent.
func DecodeEvent(data []byte) (event.Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return event.Event{}, fmt.Errorf("%w: %w", domain.ErrInvalidEvent, err)
	}

	var snap *provider.Snapshot
	if env.Snapshot != nil {
		snap = env.Snapshot.ToDomain()
	}
	return event.New(env.ID, event.Kind(env.Type), env.ProviderID, env.OccurredAt, snap)
}
