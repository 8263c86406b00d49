package projection

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/event"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
)

// EventSnapshots reads the snapshot carried inside the event payload.
type EventSnapshots struct{}

// Snapshot returns the event's snapshot or ErrInvalidEvent when it carries none.
func (EventSnapshots) Snapshot(_ context.Context, ev *event.Event) (*provider.Snapshot, error) {
	if ev.Snapshot() == nil {
		return nil, fmt.Errorf("%w: %s for %s carries no snapshot", domain.ErrInvalidEvent, ev.Kind(), ev.ProviderID())
	}
	return ev.Snapshot(), nil
}
