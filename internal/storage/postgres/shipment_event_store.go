package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"laneprofit/internal/domain"
	"laneprofit/internal/observability"
	"laneprofit/internal/storage"
)

// ShipmentEventStore implements storage.ShipmentEventStore using PostgreSQL.
type ShipmentEventStore struct {
	pool *Pool
}

// NewShipmentEventStore creates a new ShipmentEventStore.
func NewShipmentEventStore(pool *Pool) *ShipmentEventStore {
	return &ShipmentEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ShipmentEventStore = (*ShipmentEventStore)(nil)

const insertEventQuery = `
	INSERT INTO shipment_events (
		order_id, leg_id, is_primary, status, category,
		pickup_location, dropoff_location, start_market, end_market,
		customer_id, carrier_id, revenue, cost, accessorial_type, distance,
		scheduled_drop_start, actual_arrival_time, actual_arrival_date, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19
	)
`

func insertArgs(e *domain.ShipmentEvent) []any {
	return []any{
		e.OrderID,
		e.LegID,
		e.IsPrimary,
		string(e.Status),
		string(e.Category),
		e.PickupLocation,
		e.DropoffLocation,
		e.StartMarket,
		e.EndMarket,
		e.CustomerID,
		e.CarrierID,
		e.Revenue,
		e.Cost,
		e.AccessorialType,
		e.Distance,
		e.ScheduledDropStart,
		e.ActualArrivalTime,
		e.ActualArrivalDate,
		e.CreatedAt,
	}
}

// Insert adds a new shipment event. Returns ErrDuplicateKey if (order_id, leg_id) exists.
func (s *ShipmentEventStore) Insert(ctx context.Context, e *domain.ShipmentEvent) error {
	if e == nil || e.OrderID == "" || e.LegID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertEventQuery, insertArgs(e)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		observability.RecordInsertError()
		return fmt.Errorf("insert shipment event: %w", err)
	}
	observability.RecordEventsInserted(1)
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *ShipmentEventStore) InsertBulk(ctx context.Context, events []*domain.ShipmentEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if e == nil || e.OrderID == "" || e.LegID == "" {
			return storage.ErrInvalidInput
		}

		_, err := tx.Exec(ctx, insertEventQuery, insertArgs(e)...)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert shipment event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	observability.RecordEventsInserted(len(events))
	return nil
}

// getByFilterQuery applies the full filter contract with bound parameters
// only. The delivery timestamp CASE mirrors domain.ShipmentEvent.DeliveryTime,
// and the lane predicates run against the order's primary leg so every leg of
// a matching order is returned.
const getByFilterQuery = `
	SELECT
		e.order_id, e.leg_id, e.is_primary, e.status, e.category,
		e.pickup_location, e.dropoff_location, e.start_market, e.end_market,
		e.customer_id, e.carrier_id,
		COALESCE(e.revenue, 0), COALESCE(e.cost, 0),
		e.accessorial_type, e.distance,
		e.scheduled_drop_start, e.actual_arrival_time, e.actual_arrival_date,
		e.created_at
	FROM shipment_events e
	WHERE (
		e.status = 'Complete'
		OR (
			$7::boolean
			AND e.status = 'canceled'
			AND EXISTS (
				SELECT 1 FROM shipment_events x
				WHERE x.order_id = e.order_id
					AND x.pickup_location <> ''
					AND x.pickup_location = x.dropoff_location
			)
		)
	)
	AND ($1::bigint = 0 OR (
		CASE
			WHEN e.pickup_location <> '' AND e.pickup_location = e.dropoff_location THEN e.scheduled_drop_start
			WHEN e.actual_arrival_time IS NOT NULL THEN e.actual_arrival_time
			WHEN e.actual_arrival_date IS NOT NULL THEN e.actual_arrival_date
			ELSE e.scheduled_drop_start
		END
	) >= $1)
	AND ($2::bigint = 0 OR (
		CASE
			WHEN e.pickup_location <> '' AND e.pickup_location = e.dropoff_location THEN e.scheduled_drop_start
			WHEN e.actual_arrival_time IS NOT NULL THEN e.actual_arrival_time
			WHEN e.actual_arrival_date IS NOT NULL THEN e.actual_arrival_date
			ELSE e.scheduled_drop_start
		END
	) <= $2)
	AND (cardinality($3::text[]) = 0 OR e.category = ANY($3))
	AND (cardinality($4::text[]) = 0 OR e.customer_id = ANY($4))
	AND NOT (e.customer_id = ANY($5::text[]))
	AND (cardinality($6::text[]) = 0 OR EXISTS (
		SELECT 1 FROM shipment_events p
		WHERE p.order_id = e.order_id
			AND p.is_primary
			AND COALESCE(NULLIF(p.start_market, ''), 'NA') || ' → ' || COALESCE(NULLIF(p.end_market, ''), 'NA') = ANY($6)
	))
	AND (NOT $8::boolean OR EXISTS (
		SELECT 1 FROM shipment_events m
		WHERE m.order_id = e.order_id
			AND m.is_primary
			AND m.start_market <> ''
			AND m.end_market <> ''
	))
	ORDER BY e.order_id ASC, e.is_primary DESC, e.leg_id ASC
`

// GetByFilter retrieves legs matching the filter, ordered by
// (order_id ASC, is_primary DESC, leg_id ASC).
func (s *ShipmentEventStore) GetByFilter(ctx context.Context, filter storage.EventFilter) (events []*domain.ShipmentEvent, err error) {
	started := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "get_by_filter", time.Since(started).Seconds(), err)
	}()

	rows, err := s.pool.Query(ctx, getByFilterQuery,
		filter.Start,
		filter.End,
		categoryStrings(filter.Categories),
		orEmpty(filter.Customers),
		orEmpty(filter.ExcludeCustomers),
		orEmpty(filter.Lanes),
		filter.IncludeCanceled,
		filter.RequireMarkets,
	)
	if err != nil {
		return nil, fmt.Errorf("get shipment events by filter: %w", err)
	}
	defer rows.Close()

	return scanShipmentEvents(rows)
}

// ListCustomers retrieves all distinct customer IDs, sorted.
func (s *ShipmentEventStore) ListCustomers(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT customer_id
		FROM shipment_events
		WHERE customer_id <> ''
		ORDER BY customer_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows, "customer")
}

// ListLanes retrieves distinct lane keys from primary legs, sorted.
func (s *ShipmentEventStore) ListLanes(ctx context.Context, customer string) ([]string, error) {
	query := `
		SELECT DISTINCT
			COALESCE(NULLIF(start_market, ''), 'NA') || ' → ' || COALESCE(NULLIF(end_market, ''), 'NA') AS lane
		FROM shipment_events
		WHERE is_primary AND ($1 = '' OR customer_id = $1)
		ORDER BY lane ASC
	`

	rows, err := s.pool.Query(ctx, query, customer)
	if err != nil {
		return nil, fmt.Errorf("list lanes: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows, "lane")
}

// scanShipmentEvents scans multiple rows into a slice of ShipmentEvent.
func scanShipmentEvents(rows pgx.Rows) ([]*domain.ShipmentEvent, error) {
	var events []*domain.ShipmentEvent

	for rows.Next() {
		var (
			e        domain.ShipmentEvent
			status   string
			category string
		)

		err := rows.Scan(
			&e.OrderID,
			&e.LegID,
			&e.IsPrimary,
			&status,
			&category,
			&e.PickupLocation,
			&e.DropoffLocation,
			&e.StartMarket,
			&e.EndMarket,
			&e.CustomerID,
			&e.CarrierID,
			&e.Revenue,
			&e.Cost,
			&e.AccessorialType,
			&e.Distance,
			&e.ScheduledDropStart,
			&e.ActualArrivalTime,
			&e.ActualArrivalDate,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan shipment event row: %w", err)
		}

		e.Status = domain.Status(status)
		e.Category = domain.Category(category)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipment event rows: %w", err)
	}

	return events, nil
}

func scanStrings(rows pgx.Rows, what string) ([]string, error) {
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", what, err)
	}

	return values, nil
}

// orEmpty keeps slice parameters non-nil so they bind as empty arrays
// rather than NULL.
func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func categoryStrings(categories []domain.Category) []string {
	values := make([]string, 0, len(categories))
	for _, c := range categories {
		values = append(values, string(c))
	}
	return values
}
