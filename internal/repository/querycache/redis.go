package querycache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/discovery/internal/db"
)

// setIfCurrentScript stores a value only while every tag version matches.
//
// KEYS: value key, n tag version keys, n tag set keys.
// ARGV: value, ttl ms, n, n expected versions.
var setIfCurrentScript = &db.Script{Name: "cache_set_if_current", Body: `
local n = tonumber(ARGV[3])
for i = 1, n do
  local cur = tonumber(redis.call('GET', KEYS[1 + i]) or '0')
  if cur ~= tonumber(ARGV[3 + i]) then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
for i = 1, n do
  local set = KEYS[1 + n + i]
  redis.call('SADD', set, KEYS[1])
  redis.call('PEXPIRE', set, ARGV[2])
end
return 1
`}

// invalidateScript bumps each tag version and deletes the entries of its set.
//
// KEYS: n tag version keys, n tag set keys.
// ARGV: n.
var invalidateScript = &db.Script{Name: "cache_invalidate", Body: `
local n = tonumber(ARGV[1])
local deleted = 0
for i = 1, n do
  redis.call('INCR', KEYS[i])
  local set = KEYS[n + i]
  for _, k in ipairs(redis.call('SMEMBERS', set)) do
    deleted = deleted + redis.call('DEL', k)
  end
  redis.call('DEL', set)
end
return deleted
`}

// redisStore is the consumer interface for the Redis cache backend (ISP).
type redisStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	EvalInt(ctx context.Context, s *db.Script, keys, args []string) (int64, error)
}

// Redis is a Backend shared by every replica using the same Redis.
// Layout: {prefix}cache:v:{key} values, {prefix}cache:tagver:{tag} version
// counters and {prefix}cache:tag:{tag} sets of value keys.
type Redis struct {
	store  redisStore
	prefix string
}

// NewRedis creates a Redis backend under the given key prefix.
func NewRedis(s redisStore, prefix string) *Redis {
	return &Redis{store: s, prefix: prefix + "cache:"}
}

// Get implements Backend.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.store.Get(ctx, r.valueKey(key))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return data, true, nil
}

// Versions implements Backend.
func (r *Redis) Versions(ctx context.Context, tags []string) ([]int64, error) {
	raw, err := r.store.MGet(ctx, r.versionKeys(tags))
	if err != nil {
		return nil, fmt.Errorf("tag versions: %w", err)
	}
	out := make([]int64, len(tags))
	for i, b := range raw {
		if b == nil {
			continue
		}
		v, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version of tag %s: %w", tags[i], err)
		}
		out[i] = v
	}
	return out, nil
}

// SetIfCurrent implements Backend.
func (r *Redis) SetIfCurrent(
	ctx context.Context, key string, value []byte, ttl time.Duration, tags []string, versions []int64,
) (bool, error) {
	if len(versions) != len(tags) {
		return false, fmt.Errorf("got %d versions for %d tags", len(versions), len(tags))
	}
	keys := make([]string, 0, 1+2*len(tags))
	keys = append(keys, r.valueKey(key))
	keys = append(keys, r.versionKeys(tags)...)
	keys = append(keys, r.setKeys(tags)...)

	args := make([]string, 0, 3+len(versions))
	args = append(args, string(value), strconv.FormatInt(ttl.Milliseconds(), 10), strconv.Itoa(len(tags)))
	for _, v := range versions {
		args = append(args, strconv.FormatInt(v, 10))
	}

	n, err := r.store.EvalInt(ctx, setIfCurrentScript, keys, args)
	if err != nil {
		return false, fmt.Errorf("set %s: %w", key, err)
	}
	return n == 1, nil
}

// Invalidate implements Backend.
func (r *Redis) Invalidate(ctx context.Context, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	keys := append(r.versionKeys(tags), r.setKeys(tags)...)
	if _, err := r.store.EvalInt(ctx, invalidateScript, keys, []string{strconv.Itoa(len(tags))}); err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	return nil
}

func (r *Redis) valueKey(key string) string { return r.prefix + "v:" + key }

func (r *Redis) versionKeys(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = r.prefix + "tagver:" + t
	}
	return out
}

func (r *Redis) setKeys(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = r.prefix + "tag:" + t
	}
	return out
}
