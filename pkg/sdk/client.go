package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/discovery/internal/db/redis"
	"github.com/kailas-cloud/discovery/internal/domain/event"
	"github.com/kailas-cloud/discovery/internal/domain/search/request"
	"github.com/kailas-cloud/discovery/internal/domain/search/result"
	"github.com/kailas-cloud/discovery/internal/metrics"
	"github.com/kailas-cloud/discovery/internal/repository/bleveindex"
	"github.com/kailas-cloud/discovery/internal/repository/index"
	"github.com/kailas-cloud/discovery/internal/repository/querycache"
	"github.com/kailas-cloud/discovery/internal/transport/providers"
	healthuc "github.com/kailas-cloud/discovery/internal/usecase/health"
	"github.com/kailas-cloud/discovery/internal/usecase/projection"
	searchuc "github.com/kailas-cloud/discovery/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "discovery:"
	defaultCacheSize        = querycache.DefaultMemorySize
)

// Внутренние интерфейсы для подмены в тестах.
type searchUseCase interface {
	Search(ctx context.Context, params request.Params) (result.Page, error)
}

type eventUseCase interface {
	Handle(ctx context.Context, ev *event.Event) error
}

// backend is an opened index together with its liveness check.
type backend struct {
	index interface {
		searchuc.Index
		projection.Index
		healthuc.IndexCounter
	}
	pinger healthuc.DBPinger
	close  func()
}

// Client is the discovery SDK entry point.
type Client struct {
	close     func()
	pinger    healthuc.DBPinger
	searchSvc searchUseCase
	eventSvc  eventUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and opens its index.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: defaultKeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("discovery: backend required (use WithValkey, WithRedis or WithBleve)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c, err := wireClient(b, cfg, obs)
	if err != nil {
		b.close()
		return nil, err
	}
	return c, nil
}

func openBackend(ctx context.Context, cfg *clientConfig) (*backend, error) {
	switch cfg.driver {
	case "bleve":
		idx, err := bleveindex.Open(cfg.blevePath)
		if err != nil {
			return nil, fmt.Errorf("discovery: %w", err)
		}
		return &backend{index: idx, pinger: idx, close: func() { _ = idx.Close() }}, nil

	case "valkey", "redis":
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, fmt.Errorf("discovery: %s address required", cfg.driver)
		}
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("discovery: create %s store: %w", cfg.driver, err)
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("discovery: database not ready: %w", err)
		}
		return &backend{index: index.New(store, cfg.keyPrefix), pinger: store, close: store.Close}, nil

	default:
		return nil, fmt.Errorf("discovery: unknown driver %q", cfg.driver)
	}
}

func wireClient(b *backend, cfg *clientConfig, obs *observer) (*Client, error) {
	// The SDK logs through slog; the use cases stay quiet.
	logger := zap.NewNop()

	var (
		cache       searchuc.Cache
		invalidator projection.Invalidator
	)
	if cfg.cacheSize > 0 {
		ttl := cfg.cacheTTL
		if ttl <= 0 {
			ttl = querycache.DefaultTTL
		}
		qc := querycache.New(querycache.NewMemory(cfg.cacheSize, ttl), metrics.CacheTotal, logger)
		cache, invalidator = qc, qc
	}

	var snapshots projection.SnapshotSource = projection.EventSnapshots{}
	if cfg.providersURL != "" {
		pc, err := providers.NewClient(providers.Config{BaseURL: cfg.providersURL, APIKey: cfg.providersAPIKey})
		if err != nil {
			return nil, fmt.Errorf("discovery: %w", err)
		}
		snapshots = withEmbedded{remote: pc}
	}

	return &Client{
		close:     b.close,
		pinger:    b.pinger,
		searchSvc: searchuc.New(b.index, cache, cfg.cacheTTL),
		eventSvc:  projection.New(b.index, snapshots, invalidator, logger),
		healthSvc: healthuc.New(b.pinger, b.index, nil),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.close != nil {
		c.close()
	}
}

// Ping checks backend connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe(ctx, "ping", start, err) }()

	if err = c.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search returns one page of active providers within the radius, best first.
// Invalid parameters return a *ValidationError listing every rejected field.
func (c *Client) Search(ctx context.Context, params SearchParams) (page Page, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe(ctx, "search", start, err, slog.Int("results", len(page.Items)))
	}()

	page, err = c.searchSvc.Search(ctx, params)
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}
	return page, nil
}

// Apply projects a lifecycle event onto the index. Redelivering the same
// event is harmless.
func (c *Client) Apply(ctx context.Context, e Event) (err error) {
	start := time.Now()
	defer func() {
		c.obs.event(string(e.Kind), err)
		c.obs.observe(ctx, "apply", start, err,
			slog.String("kind", string(e.Kind)),
			slog.String("provider_id", e.ProviderID.String()),
		)
	}()

	ev, err := e.toDomain()
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	if err = c.eventSvc.Handle(ctx, &ev); err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	return nil
}

// withEmbedded prefers the snapshot carried by the event and falls back to the
// providers module.
type withEmbedded struct {
	remote projection.SnapshotSource
}

func (w withEmbedded) Snapshot(ctx context.Context, ev *event.Event) (*Snapshot, error) {
	if s := ev.Snapshot(); s != nil {
		return s, nil
	}
	s, err := w.remote.Snapshot(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("providers api: %w", err)
	}
	return s, nil
}
