package index

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/domain/geo"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
)

// entryDTO is the stored JSON payload of an index entry.
type entryDTO struct {
	ID           uuid.UUID     `json:"id"`
	ProviderID   uuid.UUID     `json:"providerId"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Latitude     float64       `json:"latitude"`
	Longitude    float64       `json:"longitude"`
	City         string        `json:"city,omitempty"`
	State        string        `json:"state,omitempty"`
	Rating       float64       `json:"averageRating"`
	TotalReviews int           `json:"totalReviews"`
	Tier         provider.Tier `json:"subscriptionTier"`
	ServiceIDs   []uuid.UUID   `json:"serviceIds"`
	Active       bool          `json:"active"`
}

// EncodeEntry serializes an entry for storage.
func EncodeEntry(e *provider.Entry) ([]byte, error) {
	p := e.Params()
	dto := entryDTO{
		ID:           p.ID,
		ProviderID:   p.ProviderID,
		Name:         p.Name,
		Description:  p.Description,
		Latitude:     p.Location.Lat(),
		Longitude:    p.Location.Lon(),
		City:         p.City,
		State:        p.State,
		Rating:       p.Rating,
		TotalReviews: p.TotalReviews,
		Tier:         p.Tier,
		ServiceIDs:   p.ServiceIDs,
		Active:       p.Active,
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("marshal entry %s: %w", p.ProviderID, err)
	}
	return data, nil
}

// DecodeEntry parses a stored payload and re-validates it.
func DecodeEntry(data []byte) (provider.Entry, error) {
	var dto entryDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return provider.Entry{}, fmt.Errorf("unmarshal entry: %w", err)
	}
	loc, err := geo.NewPoint(dto.Latitude, dto.Longitude)
	if err != nil {
		return provider.Entry{}, fmt.Errorf("entry %s: %w", dto.ProviderID, err)
	}
	e, err := provider.NewEntry(provider.EntryParams{
		ID:           dto.ID,
		ProviderID:   dto.ProviderID,
		Name:         dto.Name,
		Description:  dto.Description,
		Location:     loc,
		City:         dto.City,
		State:        dto.State,
		Rating:       dto.Rating,
		TotalReviews: dto.TotalReviews,
		Tier:         dto.Tier,
		ServiceIDs:   dto.ServiceIDs,
		Active:       dto.Active,
	})
	if err != nil {
		return provider.Entry{}, fmt.Errorf("entry %s: %w", dto.ProviderID, err)
	}
	return e, nil
}
