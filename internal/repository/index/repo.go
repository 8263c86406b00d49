// Package index implements the geo search index on Redis or Valkey.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/discovery/internal/db"
	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/provider"
	"github.com/kailas-cloud/discovery/internal/domain/search/ranking"
	"github.com/kailas-cloud/discovery/internal/domain/search/result"
)

const (
	fieldPayload = "payload"
	fieldActive  = "active"
)

// store is the consumer interface for the geo index (ISP).
type store interface {
	GeoPut(ctx context.Context, p *db.GeoPut) error
	GeoRemove(ctx context.Context, r *db.GeoRemove) error
	GeoRadius(ctx context.Context, q *db.GeoRadiusQuery) ([]db.GeoHit, error)
	HGet(ctx context.Context, key, field string) ([]byte, error)
	SCard(ctx context.Context, key string) (int64, error)
}

// Repo is the Redis-backed geo search index.
//
// Layout: hash {prefix}provider:{providerId} holds the payload and active flag;
// geo set {prefix}providers:geo holds only active providers; set
// {prefix}providers:ids holds every stored provider.
type Repo struct {
	store  store
	prefix string
}

// New creates an index repository under the given key prefix.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Search returns the ranked page of active entries within the query radius.
// The backend only nominates candidates; membership and order come from ranking.
func (r *Repo) Search(ctx context.Context, q *ranking.Query) (result.Result, error) {
	if err := q.Validate(); err != nil {
		return result.Result{}, err
	}

	hits, err := r.store.GeoRadius(ctx, &db.GeoRadiusQuery{
		GeoKey:        r.geoKey(),
		HashKeyPrefix: r.prefix + "provider:",
		Field:         fieldPayload,
		Lon:           q.Center.Lon(),
		Lat:           q.Center.Lat(),
		RadiusKm:      q.CandidateRadiusKm(),
	})
	if err != nil {
		return result.Result{}, fmt.Errorf("%w: geo radius: %w", domain.ErrIndexUnavailable, err)
	}

	candidates := make([]ranking.Candidate, 0, len(hits))
	for _, h := range hits {
		e, err := DecodeEntry(h.Payload)
		if err != nil {
			return result.Result{}, fmt.Errorf("%w: decode %s: %w", domain.ErrIndexUnavailable, h.Member, err)
		}
		candidates = append(candidates, ranking.Candidate{Entry: e, DistanceKm: h.DistanceKm})
	}

	return ranking.Rank(candidates, q), nil
}

// Upsert inserts or replaces the entry of its provider. Inactive entries are
// kept in storage but removed from the geo set.
func (r *Repo) Upsert(ctx context.Context, e *provider.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := EncodeEntry(e)
	if err != nil {
		return err
	}

	member := e.ProviderID().String()
	active := "0"
	if e.Active() {
		active = "1"
	}
	err = r.store.GeoPut(ctx, &db.GeoPut{
		HashKey: r.entryKey(e.ProviderID()),
		Fields:  map[string]string{fieldPayload: string(payload), fieldActive: active},
		GeoKey:  r.geoKey(),
		SetKey:  r.idsKey(),
		Member:  member,
		Lon:     e.Location().Lon(),
		Lat:     e.Location().Lat(),
		Indexed: e.Active(),
	})
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %w", domain.ErrIndexUnavailable, member, err)
	}
	return nil
}

// Remove deletes the entry of a provider. Removing an absent entry is a no-op.
func (r *Repo) Remove(ctx context.Context, providerID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	member := providerID.String()
	err := r.store.GeoRemove(ctx, &db.GeoRemove{
		HashKey: r.entryKey(providerID),
		GeoKey:  r.geoKey(),
		SetKey:  r.idsKey(),
		Member:  member,
	})
	if err != nil {
		return fmt.Errorf("%w: remove %s: %w", domain.ErrIndexUnavailable, member, err)
	}
	return nil
}

// Get returns the stored entry of a provider, active or not.
func (r *Repo) Get(ctx context.Context, providerID uuid.UUID) (provider.Entry, error) {
	raw, err := r.store.HGet(ctx, r.entryKey(providerID), fieldPayload)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return provider.Entry{}, domain.ErrEntryNotFound
		}
		return provider.Entry{}, fmt.Errorf("%w: get %s: %w", domain.ErrIndexUnavailable, providerID, err)
	}
	e, err := DecodeEntry(raw)
	if err != nil {
		return provider.Entry{}, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return e, nil
}

// Count returns the number of stored entries, active or not.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SCard(ctx, r.idsKey())
	if err != nil {
		return 0, fmt.Errorf("%w: count: %w", domain.ErrIndexUnavailable, err)
	}
	return int(n), nil
}

func (r *Repo) entryKey(providerID uuid.UUID) string {
	return r.prefix + "provider:" + providerID.String()
}

func (r *Repo) geoKey() string {
	return r.prefix + "providers:geo"
}

func (r *Repo) idsKey() string {
	return r.prefix + "providers:ids"
}
