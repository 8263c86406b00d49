package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	KVStore
	GeoStore
	ScriptRunner
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// GeoPut is a single transactional write of a geo-indexed hash.
// When Indexed is false the member is removed from the geo set instead of added.
type GeoPut struct {
	HashKey string
	Fields  map[string]string
	GeoKey  string
	SetKey  string
	Member  string
	Lon     float64
	Lat     float64
	Indexed bool
}

// GeoRemove is a single transactional removal of a geo-indexed hash.
type GeoRemove struct {
	HashKey string
	GeoKey  string
	SetKey  string
	Member  string
}

// GeoRadiusQuery selects geo set members within a radius and loads one hash
// field of each, as a single atomic read.
type GeoRadiusQuery struct {
	GeoKey        string
	HashKeyPrefix string
	Field         string
	Lon           float64
	Lat           float64
	RadiusKm      float64
}

// GeoHit is one member returned by a radius query, ordered by distance.
type GeoHit struct {
	Member     string
	DistanceKm float64
	Payload    []byte
}

// GeoStore provides geo-indexed hash operations.
type GeoStore interface {
	GeoPut(ctx context.Context, p *GeoPut) error
	GeoRemove(ctx context.Context, r *GeoRemove) error
	GeoRadius(ctx context.Context, q *GeoRadiusQuery) ([]GeoHit, error)
	HGet(ctx context.Context, key, field string) ([]byte, error)
	SCard(ctx context.Context, key string) (int64, error)
}

// Script is a server-side Lua script. Scripts are identified by their body.
type Script struct {
	Name string
	Body string
}

// ScriptRunner executes Lua scripts that return an integer.
type ScriptRunner interface {
	EvalInt(ctx context.Context, s *Script, keys, args []string) (int64, error)
}
