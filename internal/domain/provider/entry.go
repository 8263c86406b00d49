package provider

import (
	"bytes"
	"math"
	"slices"

	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/geo"
)

// Rating bounds.
const (
	MinRating = 0.0
	MaxRating = 5.0
)

// MaxNameLength is the maximum provider display name length in bytes.
const MaxNameLength = 256

// Entry is the searchable, denormalized read-model record of a provider.
// Only the projector creates or changes entries; searches never mutate them.
type Entry struct {
	id           uuid.UUID
	providerID   uuid.UUID
	name         string
	description  string
	location     geo.Point
	city         string
	state        string
	rating       float64
	totalReviews int
	tier         Tier
	serviceIDs   []uuid.UUID
	active       bool
}

// EntryParams carries the fields of an Entry for construction and copying.
type EntryParams struct {
	ID           uuid.UUID
	ProviderID   uuid.UUID
	Name         string
	Description  string
	Location     geo.Point
	City         string
	State        string
	Rating       float64
	TotalReviews int
	Tier         Tier
	ServiceIDs   []uuid.UUID
	Active       bool
}

// NewEntry validates and creates an Entry.
// Service ids are deduplicated and sorted so that equal sets compare equal.
func NewEntry(p EntryParams) (Entry, error) {
	verr := &domain.ValidationError{}
	if p.ID == uuid.Nil {
		verr.Add("id", "is required")
	}
	if p.ProviderID == uuid.Nil {
		verr.Add("providerId", "is required")
	}
	if p.Name == "" {
		verr.Add("name", "is required")
	} else if len(p.Name) > MaxNameLength {
		verr.Add("name", "too long (max %d)", MaxNameLength)
	}
	if !geo.ValidateCoordinates(p.Location.Lat(), p.Location.Lon()) {
		verr.Add("location", "invalid coordinates")
	}
	if math.IsNaN(p.Rating) || p.Rating < MinRating || p.Rating > MaxRating {
		verr.Add("averageRating", "must be between %g and %g", MinRating, MaxRating)
	}
	if p.TotalReviews < 0 {
		verr.Add("totalReviews", "must not be negative")
	}
	if !p.Tier.IsValid() {
		verr.Add("subscriptionTier", "unknown tier %d", int(p.Tier))
	}
	for _, sid := range p.ServiceIDs {
		if sid == uuid.Nil {
			verr.Add("serviceIds", "must not contain the nil uuid")
			break
		}
	}
	if err := verr.OrNil(); err != nil {
		return Entry{}, err
	}

	return Entry{
		id:           p.ID,
		providerID:   p.ProviderID,
		name:         p.Name,
		description:  p.Description,
		location:     p.Location,
		city:         p.City,
		state:        p.State,
		rating:       p.Rating,
		totalReviews: p.TotalReviews,
		tier:         p.Tier,
		serviceIDs:   NormalizeServiceIDs(p.ServiceIDs),
		active:       p.Active,
	}, nil
}

// Params returns a copy of the entry fields, suitable for building a modified entry.
func (e *Entry) Params() EntryParams {
	return EntryParams{
		ID:           e.id,
		ProviderID:   e.providerID,
		Name:         e.name,
		Description:  e.description,
		Location:     e.location,
		City:         e.city,
		State:        e.state,
		Rating:       e.rating,
		TotalReviews: e.totalReviews,
		Tier:         e.tier,
		ServiceIDs:   slices.Clone(e.serviceIDs),
		Active:       e.active,
	}
}

// ID returns the index entry identifier.
func (e *Entry) ID() uuid.UUID { return e.id }

// ProviderID returns the source provider identifier.
func (e *Entry) ProviderID() uuid.UUID { return e.providerID }

// Name returns the provider display name.
func (e *Entry) Name() string { return e.name }

// Description returns the optional provider description.
func (e *Entry) Description() string { return e.description }

// Location returns the provider location.
func (e *Entry) Location() geo.Point { return e.location }

// City returns the denormalized city name.
func (e *Entry) City() string { return e.city }

// State returns the denormalized state name.
func (e *Entry) State() string { return e.state }

// Rating returns the average review rating in [0,5].
func (e *Entry) Rating() float64 { return e.rating }

// TotalReviews returns the number of reviews.
func (e *Entry) TotalReviews() int { return e.totalReviews }

// Tier returns the subscription tier.
func (e *Entry) Tier() Tier { return e.tier }

// ServiceIDs returns the sorted, deduplicated service identifiers.
func (e *Entry) ServiceIDs() []uuid.UUID { return e.serviceIDs }

// Active reports whether the entry is visible to searches.
func (e *Entry) Active() bool { return e.active }

// OffersAny reports whether the entry offers at least one of the given services.
func (e *Entry) OffersAny(serviceIDs []uuid.UUID) bool {
	for _, want := range serviceIDs {
		if _, ok := slices.BinarySearchFunc(e.serviceIDs, want, compareUUID); ok {
			return true
		}
	}
	return false
}

// WithActive returns a copy of the entry with the visibility flag set.
func (e *Entry) WithActive(active bool) Entry {
	c := *e
	c.serviceIDs = slices.Clone(e.serviceIDs)
	c.active = active
	return c
}

// NormalizeServiceIDs returns a sorted copy of ids without duplicates.
func NormalizeServiceIDs(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, compareUUID)
	return slices.Compact(out)
}

// CompareProviderIDs orders provider ids by their canonical string form.
func CompareProviderIDs(a, b uuid.UUID) int { return compareUUID(a, b) }

// Byte order of a UUID matches the order of its canonical lower-case hex form.
func compareUUID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
