// Package querycache caches search results under a key with a TTL and a set
// of tags. Invalidating a tag drops every entry written under it, and a value
// whose computation overlapped an invalidation is returned but never stored.
package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Default search cache settings.
const (
	DefaultTTL = 5 * time.Minute
)

// Search cache tags. Every projector mutation invalidates all of them.
const (
	TagSearch        = "search"
	TagProviders     = "providers"
	TagSearchResults = "search-results"
)

// SearchTags are the tags attached to every cached search result.
var SearchTags = []string{TagSearch, TagProviders, TagSearchResults}

// maxFollowerRetries bounds how often a waiting caller restarts after the
// leading computation was cancelled by its own caller.
const maxFollowerRetries = 3

// Backend stores cached values and per-tag versions.
type Backend interface {
	// Get returns the cached value, or ok=false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Versions returns the current version of each tag.
	Versions(ctx context.Context, tags []string) ([]int64, error)
	// SetIfCurrent stores value only while every tag is still at the given version.
	SetIfCurrent(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string, versions []int64) (bool, error)
	// Invalidate bumps the version of each tag and drops entries written under it.
	Invalidate(ctx context.Context, tags []string) error
}

// ComputeFunc produces the value of a missing key.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Cache is a tag-invalidated cache with one computation in flight per key.
type Cache struct {
	backend    Backend
	group      singleflight.Group
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a cache.
// cacheTotal is a counter vec with label "result" (hit/miss/shared/store_error), passed explicitly.
func New(backend Backend, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{backend: backend, cacheTotal: cacheTotal, logger: logger}
}

// GetOrCompute returns the cached value of key, or computes and stores it.
// Concurrent callers for the same key share one computation; each caller
// stops waiting when its own context ends. Failed computations are not cached.
// Backend failures degrade to a miss or a skipped write.
func (c *Cache) GetOrCompute(
	ctx context.Context, key string, ttl time.Duration, tags []string, compute ComputeFunc,
) ([]byte, error) {
	if data, ok := c.get(ctx, key); ok {
		c.inc("hit")
		return data, nil
	}

	for attempt := 0; ; attempt++ {
		ch := c.group.DoChan(key, func() (any, error) {
			return c.computeAndStore(ctx, key, ttl, tags, compute)
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Shared {
				c.inc("shared")
			} else {
				c.inc("miss")
			}
			if res.Err != nil {
				// The leader's own context ended; a live follower starts over.
				if isContextErr(res.Err) && ctx.Err() == nil && attempt < maxFollowerRetries {
					continue
				}
				return nil, res.Err
			}
			return res.Val.([]byte), nil
		}
	}
}

// Invalidate drops every entry written under any of the tags.
func (c *Cache) Invalidate(ctx context.Context, tags ...string) error {
	if err := c.backend.Invalidate(ctx, tags); err != nil {
		return fmt.Errorf("invalidate %v: %w", tags, err)
	}
	return nil
}

func (c *Cache) computeAndStore(
	ctx context.Context, key string, ttl time.Duration, tags []string, compute ComputeFunc,
) ([]byte, error) {
	// Versions are read before computing, so an invalidation that lands
	// while computing makes the store below a no-op.
	versions, verr := c.backend.Versions(ctx, tags)
	if verr != nil {
		c.logger.Warn("Failed to read cache tag versions", zap.String("key", key), zap.Error(verr))
	}

	data, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if verr != nil || ctx.Err() != nil {
		return data, nil
	}

	stored, err := c.backend.SetIfCurrent(ctx, key, data, ttl, tags, versions)
	switch {
	case err != nil:
		c.inc("store_error")
		c.logger.Warn("Failed to store cached value", zap.String("key", key), zap.Error(err))
	case !stored:
		c.logger.Debug("Skipped caching value invalidated during compute", zap.String("key", key))
	}
	return data, nil
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Failed to get cached value", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return data, ok
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Computer is the untyped cache operation; *Cache implements it.
type Computer interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, tags []string, compute ComputeFunc) ([]byte, error)
}

// GetOrCompute is the typed form of Cache.GetOrCompute; values are JSON-encoded.
// A cached value that no longer decodes is recomputed and returned uncached.
func GetOrCompute[T any](
	ctx context.Context, c Computer, key string, ttl time.Duration, tags []string,
	compute func(ctx context.Context) (T, error),
) (T, error) {
	var computed *T
	data, err := c.GetOrCompute(ctx, key, ttl, tags, func(ctx context.Context) ([]byte, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		computed = &v
		return json.Marshal(v)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if computed != nil {
		return *computed, nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return compute(ctx)
	}
	return v, nil
}
