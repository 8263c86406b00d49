package search

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/discovery/internal/domain/search/cachekey"
	"github.com/kailas-cloud/discovery/internal/domain/search/ranking"
	"github.com/kailas-cloud/discovery/internal/domain/search/request"
	"github.com/kailas-cloud/discovery/internal/domain/search/result"
	"github.com/kailas-cloud/discovery/internal/metrics"
	"github.com/kailas-cloud/discovery/internal/repository/querycache"
)

// Service answers provider searches: validate, look up the cache, and on a
// miss run the index query and cache the page.
type Service struct {
	index Index
	cache Cache
	ttl   time.Duration
}

// New creates a search service. A nil cache disables caching.
func New(index Index, cache Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = querycache.DefaultTTL
	}
	return &Service{index: index, cache: cache, ttl: ttl}
}

// Search validates params and returns one page of ranked providers.
// Invalid params return a *domain.ValidationError; index failures wrap
// domain.ErrIndexUnavailable.
func (s *Service) Search(ctx context.Context, params request.Params) (result.Page, error) {
	start := time.Now()

	req, err := request.New(params)
	if err != nil {
		return result.Page{}, err
	}

	var page result.Page
	if s.cache == nil {
		page, err = s.compute(ctx, &req)
	} else {
		page, err = querycache.GetOrCompute(ctx, s.cache, cachekey.ForRequest(&req), s.ttl, querycache.SearchTags,
			func(ctx context.Context) (result.Page, error) { return s.compute(ctx, &req) })
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if err != nil {
		return result.Page{}, err
	}

	metrics.SearchResultsTotal.Add(float64(len(page.Items)))
	return page, nil
}

func (s *Service) compute(ctx context.Context, req *request.Request) (result.Page, error) {
	q := ranking.FromRequest(req)
	res, err := s.index.Search(ctx, &q)
	if err != nil {
		return result.Page{}, fmt.Errorf("search index: %w", err)
	}
	return result.NewPage(&res, req.PageNumber(), req.PageSize()), nil
}
