package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/discovery/internal/config"
	dbRedis "github.com/kailas-cloud/discovery/internal/db/redis"
	logpkg "github.com/kailas-cloud/discovery/internal/logger"
	"github.com/kailas-cloud/discovery/internal/metrics"
	"github.com/kailas-cloud/discovery/internal/repository/bleveindex"
	"github.com/kailas-cloud/discovery/internal/repository/index"
	"github.com/kailas-cloud/discovery/internal/repository/querycache"
	healthuc "github.com/kailas-cloud/discovery/internal/usecase/health"
	"github.com/kailas-cloud/discovery/internal/usecase/projection"
	searchuc "github.com/kailas-cloud/discovery/internal/usecase/search"
)

// searchIndex is the full index contract the composition root wires.
type searchIndex interface {
	searchuc.Index
	projection.Index
	healthuc.IndexCounter
}

// app holds the shared components of every command.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
	index  searchIndex
	pinger healthuc.DBPinger
	cache  *querycache.Cache // nil when caching is disabled
	closer func()
}

// newApp loads configuration and opens the index and cache backends.
func newApp(ctx context.Context) (*app, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterDiscoveryMetrics()

	a := &app{env: env, cfg: cfg, logger: logger, closer: func() {}}
	if err := a.openIndex(ctx); err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func (a *app) openIndex(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.Database.Driver {
	case config.DriverBleve:
		bi, err := bleveindex.Open(cfg.Database.BlevePath)
		if err != nil {
			return fmt.Errorf("open bleve index: %w", err)
		}
		a.index, a.pinger = bi, bi
		a.closer = func() { _ = bi.Close() }
		a.logger.Info("Opened bleve index", zap.String("path", cfg.Database.BlevePath))

		if cfg.Cache.Backend == config.CacheMemory {
			a.cache = a.newCache(querycache.NewMemory(cfg.Cache.Size, a.cacheTTL()))
		}
		return nil

	case config.DriverRedis, config.DriverValkey:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			return fmt.Errorf("create database store: %w", err)
		}
		a.closer = store.Close

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return fmt.Errorf("database not ready: %w", err)
		}
		a.logger.Info("Connected to database",
			zap.String("driver", cfg.Database.Driver),
			zap.Strings("addrs", cfg.Database.Addrs),
		)
		a.index, a.pinger = index.New(store, cfg.Storage.KeyPrefix), store

		switch cfg.Cache.Backend {
		case config.CacheMemory:
			a.cache = a.newCache(querycache.NewMemory(cfg.Cache.Size, a.cacheTTL()))
		case config.CacheRedis:
			a.cache = a.newCache(querycache.NewRedis(store, cfg.Storage.KeyPrefix))
		}
		return nil

	default:
		return errors.New("unknown database driver " + cfg.Database.Driver)
	}
}

func (a *app) newCache(backend querycache.Backend) *querycache.Cache {
	a.logger.Info("Search cache enabled",
		zap.String("backend", a.cfg.Cache.Backend),
		zap.Duration("ttl", a.cacheTTL()),
	)
	return querycache.New(backend, metrics.CacheTotal, a.logger)
}

func (a *app) cacheTTL() time.Duration {
	return time.Duration(a.cfg.Cache.TTLSec) * time.Second
}

// searchCache returns the cache as a port, nil interface when disabled.
func (a *app) searchCache() searchuc.Cache {
	if a.cache == nil {
		return nil
	}
	return a.cache
}

// invalidator returns the cache as an invalidation port, nil interface when disabled.
func (a *app) invalidator() projection.Invalidator {
	if a.cache == nil {
		return nil
	}
	return a.cache
}

func (a *app) Close() {
	a.closer()
	_ = a.logger.Sync()
}
