package provider

import (
	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/geo"
)

// Snapshot is the current state of a provider as published by the providers module.
// Nil fields are unknown and leave the corresponding entry field untouched on merge.
type Snapshot struct {
	ProviderID   uuid.UUID
	Name         *string
	Description  *string
	Latitude     *float64
	Longitude    *float64
	City         *string
	State        *string
	Rating       *float64
	TotalReviews *int
	Tier         *Tier
	ServiceIDs   []uuid.UUID // nil = unknown, empty = offers nothing
}

// NewEntryFromSnapshot builds an active entry from a complete snapshot.
// Name and location are required; rating, reviews, tier and services default to zero values.
func NewEntryFromSnapshot(id uuid.UUID, s *Snapshot) (Entry, error) {
	verr := &domain.ValidationError{}
	if s.Name == nil {
		verr.Add("name", "is required")
	}
	if s.Latitude == nil || s.Longitude == nil {
		verr.Add("location", "latitude and longitude are required")
	}
	if err := verr.OrNil(); err != nil {
		return Entry{}, err
	}

	p := EntryParams{ID: id, ProviderID: s.ProviderID, Active: true}
	return applySnapshot(p, s, true)
}

// MergeProfile applies the profile fields of s (name, description, location, city,
// state, services and tier) to a copy of the entry.
func (e *Entry) MergeProfile(s *Snapshot) (Entry, error) {
	return applySnapshot(e.Params(), s, false)
}

// MergeRating applies the rating fields of s to a copy of the entry.
func (e *Entry) MergeRating(s *Snapshot) (Entry, error) {
	p := e.Params()
	if s.Rating != nil {
		p.Rating = *s.Rating
	}
	if s.TotalReviews != nil {
		p.TotalReviews = *s.TotalReviews
	}
	return NewEntry(p)
}

func applySnapshot(p EntryParams, s *Snapshot, withRating bool) (Entry, error) {
	if s.Name != nil {
		p.Name = *s.Name
	}
	if s.Description != nil {
		p.Description = *s.Description
	}
	if s.Latitude != nil && s.Longitude != nil {
		loc, err := geo.NewPoint(*s.Latitude, *s.Longitude)
		if err != nil {
			return Entry{}, err
		}
		p.Location = loc
	}
	if s.City != nil {
		p.City = *s.City
	}
	if s.State != nil {
		p.State = *s.State
	}
	if s.Tier != nil {
		p.Tier = *s.Tier
	}
	if s.ServiceIDs != nil {
		p.ServiceIDs = s.ServiceIDs
	}
	if withRating {
		if s.Rating != nil {
			p.Rating = *s.Rating
		}
		if s.TotalReviews != nil {
			p.TotalReviews = *s.TotalReviews
		}
	}
	return NewEntry(p)
}
