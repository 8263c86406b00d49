package result

import (
	"github.com/kailas-cloud/discovery/internal/domain/provider"
)

// Item is a single provider in a search response.
type Item struct {
	ID               string   `json:"id"`
	ProviderID       string   `json:"providerId"`
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	City             string   `json:"city,omitempty"`
	State            string   `json:"state,omitempty"`
	AverageRating    float64  `json:"averageRating"`
	TotalReviews     int      `json:"totalReviews"`
	SubscriptionTier string   `json:"subscriptionTier"`
	ServiceIDs       []string `json:"serviceIds"`
	DistanceKm       float64  `json:"distanceInKm"`
}

// Page is a paginated search response.
type Page struct {
	Items           []Item `json:"items"`
	TotalCount      int    `json:"totalCount"`
	PageNumber      int    `json:"pageNumber"`
	PageSize        int    `json:"pageSize"`
	TotalPages      int    `json:"totalPages"`
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
}

// NewPage builds a page from a ranked result.
// totalPages = ceil(totalCount/pageSize), and 0 when pageSize <= 0.
func NewPage(r *Result, pageNumber, pageSize int) Page {
	items := make([]Item, len(r.entries))
	for i := range r.entries {
		items[i] = itemFromEntry(&r.entries[i], r.distancesKm[i])
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = (r.totalCount + pageSize - 1) / pageSize
	}

	return Page{
		Items:           items,
		TotalCount:      r.totalCount,
		PageNumber:      pageNumber,
		PageSize:        pageSize,
		TotalPages:      totalPages,
		HasNextPage:     pageNumber < totalPages,
		HasPreviousPage: totalPages > 0 && pageNumber > 1,
	}
}

func itemFromEntry(e *provider.Entry, distanceKm float64) Item {
	services := make([]string, len(e.ServiceIDs()))
	for i, id := range e.ServiceIDs() {
		services[i] = id.String()
	}
	return Item{
		ID:               e.ID().String(),
		ProviderID:       e.ProviderID().String(),
		Name:             e.Name(),
		Description:      e.Description(),
		Latitude:         e.Location().Lat(),
		Longitude:        e.Location().Lon(),
		City:             e.City(),
		State:            e.State(),
		AverageRating:    e.Rating(),
		TotalReviews:     e.TotalReviews(),
		SubscriptionTier: e.Tier().String(),
		ServiceIDs:       services,
		DistanceKm:       distanceKm,
	}
}
