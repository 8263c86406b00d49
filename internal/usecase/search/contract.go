package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/discovery/internal/domain/search/ranking"
	"github.com/kailas-cloud/discovery/internal/domain/search/result"
	"github.com/kailas-cloud/discovery/internal/repository/querycache"
)

// Index defines the read contract of the geo search index.
type Index interface {
	Search(ctx context.Context, q *ranking.Query) (result.Result, error)
}

// Cache caches encoded search pages by key, TTL and tags.
type Cache interface {
	GetOrCompute(
		ctx context.Context, key string, ttl time.Duration, tags []string, compute querycache.ComputeFunc,
	) ([]byte, error)
}
