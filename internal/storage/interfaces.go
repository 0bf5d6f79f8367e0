package storage

import (
	"context"

	"laneprofit/internal/domain"
)

// ShipmentEventStore provides access to shipment_events storage.
type ShipmentEventStore interface {
	// Insert adds a new shipment event. Returns ErrDuplicateKey if
	// (order_id, leg_id) exists.
	Insert(ctx context.Context, e *domain.ShipmentEvent) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.ShipmentEvent) error

	// GetByFilter retrieves legs matching the filter, ordered by
	// (order_id ASC, is_primary DESC, leg_id ASC). Removed legs are never
	// returned; canceled legs are returned only when the filter includes
	// them and their order has a cross-dock leg.
	GetByFilter(ctx context.Context, filter EventFilter) ([]*domain.ShipmentEvent, error)

	// ListCustomers retrieves all distinct customer IDs, sorted.
	ListCustomers(ctx context.Context) ([]string, error)

	// ListLanes retrieves distinct lane keys from primary legs, sorted.
	// A non-empty customer restricts lanes to that customer's orders.
	ListLanes(ctx context.Context, customer string) ([]string, error)
}

// RollupSnapshotStore provides access to rollup_snapshots storage.
type RollupSnapshotStore interface {
	// InsertSnapshot persists all rows of a snapshot. Returns
	// ErrDuplicateKey if (snapshot_id, dimension) exists.
	InsertSnapshot(ctx context.Context, snap *domain.RollupSnapshot) error

	// GetSnapshot retrieves a snapshot by ID and dimension.
	// Returns ErrNotFound if not exists.
	GetSnapshot(ctx context.Context, snapshotID string, dim domain.Dimension) (*domain.RollupSnapshot, error)

	// ListSnapshotIDs retrieves the most recent snapshot IDs, newest first.
	ListSnapshotIDs(ctx context.Context, limit int) ([]string, error)
}
