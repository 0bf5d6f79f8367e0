package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"laneprofit/internal/cache"
	"laneprofit/internal/domain"
	"laneprofit/internal/storage"
)

// DefaultTTL bounds how stale a memoized rollup may get before the next
// report run recomputes it.
const DefaultTTL = 10 * time.Minute

// RollupCache implements cache.RollupCache using Redis string values with
// JSON-serialized snapshots.
//
// Key schema:
//
//	rollup:{key} - JSON-encoded domain.RollupSnapshot
type RollupCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRollupCache creates a RollupCache backed by the given Client.
// A non-positive ttl falls back to DefaultTTL.
func NewRollupCache(c *Client, ttl time.Duration) *RollupCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RollupCache{rdb: c.Underlying(), ttl: ttl}
}

// Compile-time interface check.
var _ cache.RollupCache = (*RollupCache)(nil)

func rollupKey(key string) string { return "rollup:" + key }

// Get retrieves a memoized snapshot. Returns storage.ErrNotFound on a miss.
func (c *RollupCache) Get(ctx context.Context, key string) (*domain.RollupSnapshot, error) {
	data, err := c.rdb.Get(ctx, rollupKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get rollup %s: %w", key, err)
	}

	var snap domain.RollupSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("redis: unmarshal rollup %s: %w", key, err)
	}
	return &snap, nil
}

// Set stores a snapshot with the configured TTL.
func (c *RollupCache) Set(ctx context.Context, key string, snap *domain.RollupSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal rollup %s: %w", key, err)
	}

	if err := c.rdb.Set(ctx, rollupKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set rollup %s: %w", key, err)
	}
	return nil
}

// Invalidate removes a memoized snapshot.
func (c *RollupCache) Invalidate(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, rollupKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate rollup %s: %w", key, err)
	}
	return nil
}
