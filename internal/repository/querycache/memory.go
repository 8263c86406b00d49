package querycache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemorySize is the default number of entries kept by the memory backend.
const DefaultMemorySize = 10_000

type memEntry struct {
	value     []byte
	expiresAt time.Time
	tags      []string
	versions  []int64
}

// Memory is a per-process Backend on an expiring LRU. Each entry records the
// tag versions it was written under; an entry whose tags moved on is a miss.
type Memory struct {
	mu       sync.Mutex
	entries  *expirable.LRU[string, memEntry]
	versions map[string]int64
	now      func() time.Time
}

// NewMemory creates a memory backend holding up to size entries.
// maxTTL bounds how long any entry may live; per-entry TTLs are shorter or equal.
func NewMemory(size int, maxTTL time.Duration) *Memory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	if maxTTL <= 0 {
		maxTTL = DefaultTTL
	}
	return &Memory{
		entries:  expirable.NewLRU[string, memEntry](size, nil, maxTTL),
		versions: make(map[string]int64),
		now:      time.Now,
	}
}

// Get implements Backend.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) || !slices.Equal(e.versions, m.versionsLocked(e.tags)) {
		m.entries.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Versions implements Backend.
func (m *Memory) Versions(_ context.Context, tags []string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versionsLocked(tags), nil
}

// SetIfCurrent implements Backend.
func (m *Memory) SetIfCurrent(
	_ context.Context, key string, value []byte, ttl time.Duration, tags []string, versions []int64,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Equal(versions, m.versionsLocked(tags)) {
		return false, nil
	}
	m.entries.Add(key, memEntry{
		value:     value,
		expiresAt: m.now().Add(ttl),
		tags:      slices.Clone(tags),
		versions:  slices.Clone(versions),
	})
	return true, nil
}

// Invalidate implements Backend.
func (m *Memory) Invalidate(_ context.Context, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tags {
		m.versions[t]++
	}
	return nil
}

// Len returns the number of stored entries, including stale ones not yet evicted.
func (m *Memory) Len() int {
	return m.entries.Len()
}

func (m *Memory) versionsLocked(tags []string) []int64 {
	out := make([]int64, len(tags))
	for i, t := range tags {
		out[i] = m.versions[t]
	}
	return out
}
