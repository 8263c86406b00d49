package discovery

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver    string // "valkey", "redis" or "bleve"
	addrs     []string
	password  string
	blevePath string
	keyPrefix string

	cacheSize int
	cacheTTL  time.Duration

	providersURL    string
	providersAPIKey string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithBleve stores the index in a local bleve index at path.
// An empty path keeps the index in memory.
func WithBleve(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "bleve"
		c.blevePath = path
	})
}

// WithKeyPrefix sets the key prefix for Valkey/Redis. Default: "discovery:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithMemoryCache caches search pages in process. Applied events invalidate it.
// Zero values pick the defaults (10000 entries, 5 minutes).
func WithMemoryCache(size int, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheSize = size
		if c.cacheSize <= 0 {
			c.cacheSize = defaultCacheSize
		}
		c.cacheTTL = ttl
	})
}

// WithProvidersAPI fetches snapshots for events that carry none
// from the providers module at baseURL.
func WithProvidersAPI(baseURL, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.providersURL = baseURL
		c.providersAPIKey = apiKey
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
