package discovery

import (
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/domain/event"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
	"github.com/kailas-cloud/discovery/internal/domain/search/request"
	"github.com/kailas-cloud/discovery/internal/domain/search/result"
)

// SearchParams are the raw search parameters. Nil pointers and zero page
// values mean "not provided"; Latitude, Longitude and RadiusKm are required.
type SearchParams = request.Params

// Page is one page of ranked providers.
type Page = result.Page

// Item is a single provider in a Page.
type Item = result.Item

// Snapshot is the provider state carried by an event. Nil fields are unknown
// and leave the indexed value untouched.
type Snapshot = provider.Snapshot

// Tier is a provider subscription tier.
type Tier = provider.Tier

// Subscription tiers, lowest first.
const (
	TierFree     = provider.TierFree
	TierStandard = provider.TierStandard
	TierGold     = provider.TierGold
	TierPlatinum = provider.TierPlatinum
)

// EventKind identifies a provider lifecycle event.
type EventKind = event.Kind

// Lifecycle event kinds.
const (
	EventActivated      = event.KindActivated
	EventVerified       = event.KindVerified
	EventProfileUpdated = event.KindProfileUpdated
	EventRatingChanged  = event.KindRatingChanged
	EventSuspended      = event.KindSuspended
	EventRejected       = event.KindRejected
	EventDeleted        = event.KindDeleted
)

// Event is a provider lifecycle notification.
type Event struct {
	ID         uuid.UUID // minted when zero
	Kind       EventKind
	ProviderID uuid.UUID
	OccurredAt time.Time
	Snapshot   *Snapshot
}

func (e *Event) toDomain() (event.Event, error) {
	return event.New(e.ID, e.Kind, e.ProviderID, e.OccurredAt, e.Snapshot)
}
