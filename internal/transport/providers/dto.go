package providers

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/domain/provider"
)

// SnapshotDTO is the wire form of a provider snapshot, shared by the snapshot
// endpoint, event payloads and reindex files. Absent fields stay nil.
type SnapshotDTO struct {
	ProviderID       uuid.UUID      `json:"providerId"`
	Name             *string        `json:"name,omitempty"`
	Description      *string        `json:"description,omitempty"`
	Latitude         *float64       `json:"latitude,omitempty"`
	Longitude        *float64       `json:"longitude,omitempty"`
	City             *string        `json:"city,omitempty"`
	State            *string        `json:"state,omitempty"`
	AverageRating    *float64       `json:"averageRating,omitempty"`
	TotalReviews     *int           `json:"totalReviews,omitempty"`
	SubscriptionTier *provider.Tier `json:"subscriptionTier,omitempty"`
	ServiceIDs       []uuid.UUID    `json:"serviceIds,omitempty"`
}

// ToDomain converts the DTO into a provider snapshot.
func (d *SnapshotDTO) ToDomain() *provider.Snapshot {
	return &provider.Snapshot{
		ProviderID:   d.ProviderID,
		Name:         d.Name,
		Description:  d.Description,
		Latitude:     d.Latitude,
		Longitude:    d.Longitude,
		City:         d.City,
		State:        d.State,
		Rating:       d.AverageRating,
		TotalReviews: d.TotalReviews,
		Tier:         d.SubscriptionTier,
		ServiceIDs:   d.ServiceIDs,
	}
}

// DecodeSnapshot parses a JSON snapshot.
func DecodeSnapshot(data []byte) (*provider.Snapshot, error) {
	var dto SnapshotDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return dto.ToDomain(), nil
}
