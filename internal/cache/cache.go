// Package cache defines the memoization boundary for rollup results.
package cache

import (
	"context"

	"laneprofit/internal/domain"
	"laneprofit/internal/storage"
)

// RollupCache memoizes rollup snapshots keyed by the query that produced
// them. Implementations must return storage.ErrNotFound on a miss so
// callers can fall through to recomputation.
type RollupCache interface {
	Get(ctx context.Context, key string) (*domain.RollupSnapshot, error)
	Set(ctx context.Context, key string, snap *domain.RollupSnapshot) error
	Invalidate(ctx context.Context, key string) error
}

// Key derives a deterministic cache key from the event filter and the
// rollup dimension. Identical queries always map to the same key.
func Key(filter storage.EventFilter, dim domain.Dimension) string {
	return filter.Key() + "|dim=" + string(dim)
}
