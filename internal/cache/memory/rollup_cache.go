// Package memory implements the rollup cache with an in-process map,
// for single-run CLI use and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"laneprofit/internal/cache"
	"laneprofit/internal/domain"
	"laneprofit/internal/storage"
)

type entry struct {
	snap      *domain.RollupSnapshot
	expiresAt time.Time
}

// RollupCache is an in-memory implementation of cache.RollupCache with
// per-entry TTL. A zero TTL means entries never expire.
type RollupCache struct {
	mu   sync.RWMutex
	data map[string]entry
	ttl  time.Duration
	now  func() time.Time
}

// NewRollupCache creates a new in-memory rollup cache.
func NewRollupCache(ttl time.Duration) *RollupCache {
	return &RollupCache{
		data: make(map[string]entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// WithClock overrides the time source. Used in tests.
func (c *RollupCache) WithClock(now func() time.Time) *RollupCache {
	c.now = now
	return c
}

// Compile-time interface check.
var _ cache.RollupCache = (*RollupCache)(nil)

// Get retrieves a memoized snapshot. Returns storage.ErrNotFound on a miss
// or when the entry has expired.
func (c *RollupCache) Get(_ context.Context, key string) (*domain.RollupSnapshot, error) {
	c.mu.RLock()
	e, exists := c.data[key]
	c.mu.RUnlock()

	if !exists {
		return nil, storage.ErrNotFound
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return nil, storage.ErrNotFound
	}

	copy := *e.snap
	copy.Rows = append([]domain.RollupRow(nil), e.snap.Rows...)
	return &copy, nil
}

// Set stores a snapshot under the key.
func (c *RollupCache) Set(_ context.Context, key string, snap *domain.RollupSnapshot) error {
	if snap == nil || key == "" {
		return storage.ErrInvalidInput
	}

	copy := *snap
	copy.Rows = append([]domain.RollupRow(nil), snap.Rows...)

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.data[key] = entry{snap: &copy, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

// Invalidate removes a memoized snapshot.
func (c *RollupCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}
