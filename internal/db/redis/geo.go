package redis

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/discovery/internal/db"
	"github.com/kailas-cloud/discovery/internal/domain/geo"
)

// maxGeoLat is the latitude limit of Redis geo sets (Web Mercator).
const maxGeoLat = 85.05112878

// proxyGapSlack covers the larger earth radius Redis measures with.
const proxyGapSlack = 1.01

// polarGapKm bounds the distance between a point beyond maxGeoLat and its
// clamped proxy on the same meridian.
var polarGapKm = geo.Haversine(maxGeoLat, 0, 90, 0)

// clampLat maps a latitude to the nearest one a geo set accepts.
func clampLat(lat float64) float64 {
	return max(-maxGeoLat, min(maxGeoLat, lat))
}

// searchArea returns a center latitude GEOSEARCH accepts and a radius around
// it that still covers every member within radiusKm of the real center,
// including members stored at a clamped proxy latitude.
func searchArea(lon, lat, radiusKm float64) (proxyLat, proxyRadiusKm float64) {
	proxyLat = clampLat(lat)
	gap := geo.Haversine(lat, lon, proxyLat, lon)
	if reachesPolarBand(lat, radiusKm) {
		gap += polarGapKm
	}
	if gap == 0 {
		return proxyLat, radiusKm
	}
	return proxyLat, radiusKm + gap*proxyGapSlack
}

// reachesPolarBand reports whether a disc may contain points beyond maxGeoLat.
func reachesPolarBand(lat, radiusKm float64) bool {
	toBand := (maxGeoLat - math.Abs(lat)) * math.Pi / 180 * geo.EarthRadiusKm
	return radiusKm >= toBand
}

// geoRadiusScript selects members of KEYS[1] within a radius, nearest first,
// and loads one hash field per member. Running both steps in one script makes
// the read a single snapshot.
//
// ARGV: lon, lat, radius km, hash key prefix, field.
// Reply: flat array of member, distance, payload triples.
const geoRadiusScript = `
local hits = redis.call('GEOSEARCH', KEYS[1], 'FROMLONLAT', ARGV[1], ARGV[2], 'BYRADIUS', ARGV[3], 'km', 'WITHDIST', 'ASC')
local out = {}
for _, hit in ipairs(hits) do
  local payload = redis.call('HGET', ARGV[4] .. hit[1], ARGV[5])
  if payload then
    out[#out + 1] = hit[1]
    out[#out + 1] = hit[2]
    out[#out + 1] = payload
  end
end
return out
`

// GeoPut writes the hash and updates geo and member sets in one MULTI/EXEC.
// Points beyond maxGeoLat enter the geo set at their clamped latitude; the
// hash keeps the real location.
func (s *Store) GeoPut(ctx context.Context, p *db.GeoPut) error {
	hset := s.b().Hset().Key(p.HashKey).FieldValue()
	for k, v := range p.Fields {
		hset = hset.FieldValue(k, v)
	}

	var geoCmd rueidis.Completed
	if p.Indexed {
		geoCmd = s.b().Geoadd().Key(p.GeoKey).LongitudeLatitudeMember().
			LongitudeLatitudeMember(p.Lon, clampLat(p.Lat), p.Member).Build()
	} else {
		geoCmd = s.b().Zrem().Key(p.GeoKey).Member(p.Member).Build()
	}

	return s.tx(ctx,
		hset.Build(),
		geoCmd,
		s.b().Sadd().Key(p.SetKey).Member(p.Member).Build(),
	)
}

// GeoRemove deletes the hash and its geo and member set entries in one MULTI/EXEC.
func (s *Store) GeoRemove(ctx context.Context, r *db.GeoRemove) error {
	return s.tx(ctx,
		s.b().Del().Key(r.HashKey).Build(),
		s.b().Zrem().Key(r.GeoKey).Member(r.Member).Build(),
		s.b().Srem().Key(r.SetKey).Member(r.Member).Build(),
	)
}

// GeoRadius runs a radius search and payload fetch as one Lua script.
// Near the poles the search runs from a clamped center over a wider radius,
// so hits are a superset and DistanceKm is measured from the clamped center.
func (s *Store) GeoRadius(ctx context.Context, q *db.GeoRadiusQuery) ([]db.GeoHit, error) {
	lat, radius := searchArea(q.Lon, q.Lat, q.RadiusKm)
	args := []string{
		formatFloat(q.Lon),
		formatFloat(lat),
		formatFloat(radius),
		q.HashKeyPrefix,
		q.Field,
	}
	flat, err := s.lua(geoRadiusScript).Exec(ctx, s.client, []string{q.GeoKey}, args).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpGeoSearch, Err: err}
	}
	if len(flat)%3 != 0 {
		return nil, &db.Error{Op: db.OpGeoSearch, Err: fmt.Errorf("unexpected reply length %d", len(flat))}
	}

	hits := make([]db.GeoHit, 0, len(flat)/3)
	for i := 0; i < len(flat); i += 3 {
		dist, err := strconv.ParseFloat(flat[i+1], 64)
		if err != nil {
			return nil, &db.Error{Op: db.OpGeoSearch, Err: fmt.Errorf("parse distance of %s: %w", flat[i], err)}
		}
		hits = append(hits, db.GeoHit{Member: flat[i], DistanceKm: dist, Payload: []byte(flat[i+2])})
	}
	return hits, nil
}

// HGet returns a single hash field.
func (s *Store) HGet(ctx context.Context, key, field string) ([]byte, error) {
	cmd := s.b().Hget().Key(key).Field(field).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpHGet, Err: err}
	}
	return data, nil
}

// SCard returns the cardinality of a set.
func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Scard().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpSCard, Err: err}
	}
	return n, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
