package memory

import (
	"context"
	"sort"
	"sync"

	"laneprofit/internal/domain"
	"laneprofit/internal/storage"
)

// RollupSnapshotStore is an in-memory implementation of storage.RollupSnapshotStore.
type RollupSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RollupSnapshot // keyed by snapshot_id|dimension
}

// NewRollupSnapshotStore creates a new in-memory rollup snapshot store.
func NewRollupSnapshotStore() *RollupSnapshotStore {
	return &RollupSnapshotStore{
		data: make(map[string]*domain.RollupSnapshot),
	}
}

// Compile-time interface check.
var _ storage.RollupSnapshotStore = (*RollupSnapshotStore)(nil)

func snapshotKey(snapshotID string, dim domain.Dimension) string {
	return snapshotID + "|" + string(dim)
}

// InsertSnapshot persists a snapshot. Returns ErrDuplicateKey if exists.
func (s *RollupSnapshotStore) InsertSnapshot(_ context.Context, snap *domain.RollupSnapshot) error {
	if snap == nil || snap.SnapshotID == "" {
		return storage.ErrInvalidInput
	}

	key := snapshotKey(snap.SnapshotID, snap.Dimension)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *snap
	copy.Rows = append([]domain.RollupRow(nil), snap.Rows...)
	s.data[key] = &copy
	return nil
}

// GetSnapshot retrieves a snapshot by ID and dimension.
func (s *RollupSnapshotStore) GetSnapshot(_ context.Context, snapshotID string, dim domain.Dimension) (*domain.RollupSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[snapshotKey(snapshotID, dim)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *snap
	copy.Rows = append([]domain.RollupRow(nil), snap.Rows...)
	return &copy, nil
}

// ListSnapshotIDs retrieves the most recent snapshot IDs, newest first.
func (s *RollupSnapshotStore) ListSnapshotIDs(_ context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		id          string
		generatedAt int64
	}

	seen := make(map[string]int64)
	for _, snap := range s.data {
		if at, ok := seen[snap.SnapshotID]; !ok || snap.GeneratedAt > at {
			seen[snap.SnapshotID] = snap.GeneratedAt
		}
	}

	entries := make([]entry, 0, len(seen))
	for id, at := range seen {
		entries = append(entries, entry{id: id, generatedAt: at})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].generatedAt != entries[j].generatedAt {
			return entries[i].generatedAt > entries[j].generatedAt
		}
		return entries[i].id < entries[j].id
	})

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, e.id)
	}

	return ids, nil
}
