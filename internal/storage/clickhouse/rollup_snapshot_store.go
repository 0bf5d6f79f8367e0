package clickhouse

import (
	"context"
	"fmt"

	"laneprofit/internal/domain"
	"laneprofit/internal/storage"
)

// RollupSnapshotStore implements storage.RollupSnapshotStore using ClickHouse.
type RollupSnapshotStore struct {
	conn *Conn
}

// NewRollupSnapshotStore creates a new RollupSnapshotStore.
func NewRollupSnapshotStore(conn *Conn) *RollupSnapshotStore {
	return &RollupSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RollupSnapshotStore = (*RollupSnapshotStore)(nil)

// InsertSnapshot persists all rows of a snapshot. Returns ErrDuplicateKey
// if (snapshot_id, dimension) exists.
func (s *RollupSnapshotStore) InsertSnapshot(ctx context.Context, snap *domain.RollupSnapshot) error {
	if snap == nil || snap.SnapshotID == "" || !snap.Dimension.IsValid() {
		return storage.ErrInvalidInput
	}

	// MergeTree doesn't enforce uniqueness, snapshots are append-only so an
	// explicit check guards against double writes.
	exists, err := s.exists(ctx, snap.SnapshotID, snap.Dimension)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO rollup_snapshots (
			snapshot_id, generated_at, dimension, group_key,
			completed_orders, canceled_orders,
			revenue, cost, profit, margin_pct,
			crossdock_cost, crossdock_pct, tonu_revenue, tonu_cost
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, row := range snap.Rows {
		err = batch.Append(
			snap.SnapshotID, snap.GeneratedAt, string(snap.Dimension), row.GroupKey,
			uint64(row.CompletedOrders), uint64(row.CanceledOrders),
			row.Revenue, row.Cost, row.Profit, row.MarginPct,
			row.CrossdockCost, row.CrossdockPct, row.TonuRevenue, row.TonuCost,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetSnapshot retrieves a snapshot by ID and dimension. Returns ErrNotFound
// if no rows exist for the pair.
func (s *RollupSnapshotStore) GetSnapshot(ctx context.Context, snapshotID string, dim domain.Dimension) (*domain.RollupSnapshot, error) {
	query := `
		SELECT
			generated_at, group_key,
			completed_orders, canceled_orders,
			revenue, cost, profit, margin_pct,
			crossdock_cost, crossdock_pct, tonu_revenue, tonu_cost
		FROM rollup_snapshots
		WHERE snapshot_id = ? AND dimension = ?
		ORDER BY group_key ASC
	`

	rows, err := s.conn.Query(ctx, query, snapshotID, string(dim))
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	snap := &domain.RollupSnapshot{
		SnapshotID: snapshotID,
		Dimension:  dim,
	}

	for rows.Next() {
		var (
			row       domain.RollupRow
			completed uint64
			canceled  uint64
		)

		err := rows.Scan(
			&snap.GeneratedAt, &row.GroupKey,
			&completed, &canceled,
			&row.Revenue, &row.Cost, &row.Profit, &row.MarginPct,
			&row.CrossdockCost, &row.CrossdockPct, &row.TonuRevenue, &row.TonuCost,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		row.Dimension = dim
		row.CompletedOrders = int(completed)
		row.CanceledOrders = int(canceled)
		snap.Rows = append(snap.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	if len(snap.Rows) == 0 {
		return nil, storage.ErrNotFound
	}

	return snap, nil
}

// ListSnapshotIDs retrieves the most recent snapshot IDs, newest first.
func (s *RollupSnapshotStore) ListSnapshotIDs(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT snapshot_id, max(generated_at) AS latest
		FROM rollup_snapshots
		GROUP BY snapshot_id
		ORDER BY latest DESC, snapshot_id ASC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list snapshot ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var (
			id     string
			latest int64
		)
		if err := rows.Scan(&id, &latest); err != nil {
			return nil, fmt.Errorf("scan snapshot id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot id rows: %w", err)
	}

	return ids, nil
}

// exists checks if any rows are stored for (snapshot_id, dimension).
func (s *RollupSnapshotStore) exists(ctx context.Context, snapshotID string, dim domain.Dimension) (bool, error) {
	query := `
		SELECT count(*) FROM rollup_snapshots
		WHERE snapshot_id = ? AND dimension = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, snapshotID, string(dim)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
