package memory

import (
	"context"
	"sort"
	"sync"

	"laneprofit/internal/domain"
	"laneprofit/internal/storage"
)

// ShipmentEventStore is an in-memory implementation of storage.ShipmentEventStore.
type ShipmentEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ShipmentEvent // keyed by composite key
}

// NewShipmentEventStore creates a new in-memory shipment event store.
func NewShipmentEventStore() *ShipmentEventStore {
	return &ShipmentEventStore{
		data: make(map[string]*domain.ShipmentEvent),
	}
}

// Compile-time interface check.
var _ storage.ShipmentEventStore = (*ShipmentEventStore)(nil)

// eventKey generates a unique key for a shipment event.
func eventKey(orderID, legID string) string {
	return orderID + "|" + legID
}

// Insert adds a new shipment event. Returns ErrDuplicateKey if exists.
func (s *ShipmentEventStore) Insert(_ context.Context, e *domain.ShipmentEvent) error {
	if e == nil || e.OrderID == "" || e.LegID == "" {
		return storage.ErrInvalidInput
	}

	key := eventKey(e.OrderID, e.LegID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[key] = &copy
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *ShipmentEventStore) InsertBulk(_ context.Context, events []*domain.ShipmentEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(events))

	// First pass: check for duplicates (existing + intra-batch)
	for _, e := range events {
		if e == nil || e.OrderID == "" || e.LegID == "" {
			return storage.ErrInvalidInput
		}
		key := eventKey(e.OrderID, e.LegID)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, e := range events {
		copy := *e
		s.data[eventKey(e.OrderID, e.LegID)] = &copy
	}

	return nil
}

// GetByFilter retrieves legs matching the filter, ordered by
// (order_id ASC, is_primary DESC, leg_id ASC).
func (s *ShipmentEventStore) GetByFilter(_ context.Context, filter storage.EventFilter) ([]*domain.ShipmentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Order-level facts needed by the status and lane predicates.
	ordersWithCrossdock := make(map[string]bool)
	primaryLane := make(map[string]domain.Lane)
	for _, e := range s.data {
		if e.IsCrossdock() {
			ordersWithCrossdock[e.OrderID] = true
		}
		if e.IsPrimary {
			primaryLane[e.OrderID] = domain.NewLane(e.StartMarket, e.EndMarket)
		}
	}

	result := make([]*domain.ShipmentEvent, 0)
	for _, e := range s.data {
		if !statusMatches(e, filter, ordersWithCrossdock) {
			continue
		}
		if !legMatches(e, filter) {
			continue
		}
		if !orderMatches(e.OrderID, filter, primaryLane) {
			continue
		}

		copy := *e
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].OrderID != result[j].OrderID {
			return result[i].OrderID < result[j].OrderID
		}
		if result[i].IsPrimary != result[j].IsPrimary {
			return result[i].IsPrimary
		}
		return result[i].LegID < result[j].LegID
	})

	return result, nil
}

// statusMatches applies the lifecycle predicate: completed legs pass,
// removed legs never pass, canceled legs pass only when requested and
// their order has a cross-dock leg.
func statusMatches(e *domain.ShipmentEvent, filter storage.EventFilter, ordersWithCrossdock map[string]bool) bool {
	switch e.Status {
	case domain.StatusCompleted:
		return true
	case domain.StatusCanceled:
		return filter.IncludeCanceled && ordersWithCrossdock[e.OrderID]
	default:
		return false
	}
}

// legMatches applies the per-leg predicates: delivery window, category
// and customer filters.
func legMatches(e *domain.ShipmentEvent, filter storage.EventFilter) bool {
	delivery := e.DeliveryTime()
	if filter.Start != 0 && delivery < filter.Start {
		return false
	}
	if filter.End != 0 && delivery > filter.End {
		return false
	}

	if len(filter.Categories) > 0 && !containsCategory(filter.Categories, e.Category) {
		return false
	}
	if len(filter.Customers) > 0 && !containsString(filter.Customers, e.CustomerID) {
		return false
	}
	if containsString(filter.ExcludeCustomers, e.CustomerID) {
		return false
	}

	return true
}

// orderMatches applies the order-level predicates driven by the primary
// leg's lane.
func orderMatches(orderID string, filter storage.EventFilter, primaryLane map[string]domain.Lane) bool {
	lane, hasPrimary := primaryLane[orderID]

	if len(filter.Lanes) > 0 {
		if !hasPrimary || !containsString(filter.Lanes, lane.Key()) {
			return false
		}
	}
	if filter.RequireMarkets {
		if !hasPrimary || lane.Start == domain.MarketNA || lane.End == domain.MarketNA {
			return false
		}
	}

	return true
}

// ListCustomers retrieves all distinct customer IDs, sorted.
func (s *ShipmentEventStore) ListCustomers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range s.data {
		if e.CustomerID != "" {
			seen[e.CustomerID] = struct{}{}
		}
	}

	customers := make([]string, 0, len(seen))
	for c := range seen {
		customers = append(customers, c)
	}
	sort.Strings(customers)

	return customers, nil
}

// ListLanes retrieves distinct lane keys from primary legs, sorted.
func (s *ShipmentEventStore) ListLanes(_ context.Context, customer string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range s.data {
		if !e.IsPrimary {
			continue
		}
		if customer != "" && e.CustomerID != customer {
			continue
		}
		seen[domain.NewLane(e.StartMarket, e.EndMarket).Key()] = struct{}{}
	}

	lanes := make([]string, 0, len(seen))
	for l := range seen {
		lanes = append(lanes, l)
	}
	sort.Strings(lanes)

	return lanes, nil
}

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsCategory(values []domain.Category, v domain.Category) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
