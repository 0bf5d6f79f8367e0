package memory

import (
	"context"
	"errors"
	"testing"

	"laneprofit/internal/domain"
	"laneprofit/internal/storage"
)

func testEvent(orderID, legID string) *domain.ShipmentEvent {
	return &domain.ShipmentEvent{
		OrderID:            orderID,
		LegID:              legID,
		IsPrimary:          true,
		Status:             domain.StatusCompleted,
		Category:           domain.CategoryLessThanTruckload,
		PickupLocation:     "p-" + legID,
		DropoffLocation:    "d-" + legID,
		StartMarket:        "DFW",
		EndMarket:          "ATL",
		CustomerID:         "cust1",
		CarrierID:          "carr1",
		Revenue:            100,
		Cost:               80,
		ScheduledDropStart: 1704067200000,
	}
}

func TestShipmentEventStore_InsertAndGet(t *testing.T) {
	store := NewShipmentEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testEvent("ord1", "leg1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByFilter(ctx, storage.EventFilter{})
	if err != nil {
		t.Fatalf("GetByFilter failed: %v", err)
	}

	if len(result) != 1 {
		t.Errorf("Expected 1 event, got %d", len(result))
	}
	if result[0].Revenue != 100 {
		t.Errorf("Revenue mismatch: got %f, want 100", result[0].Revenue)
	}
}

func TestShipmentEventStore_DuplicateKey(t *testing.T) {
	store := NewShipmentEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testEvent("ord1", "leg1")); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, testEvent("ord1", "leg1"))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestShipmentEventStore_InsertBulkPartialDuplicate(t *testing.T) {
	store := NewShipmentEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testEvent("ord1", "leg1")); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	events := []*domain.ShipmentEvent{
		testEvent("ord1", "leg2"), // new
		testEvent("ord1", "leg1"), // duplicate
	}

	err := store.InsertBulk(ctx, events)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Verify no partial insert
	result, _ := store.GetByFilter(ctx, storage.EventFilter{})
	if len(result) != 1 {
		t.Errorf("Expected 1 event (rollback), got %d", len(result))
	}
}

func TestShipmentEventStore_RemovedNeverReturned(t *testing.T) {
	store := NewShipmentEventStore()
	ctx := context.Background()

	removed := testEvent("ord1", "leg1")
	removed.Status = domain.StatusRemoved

	if err := store.Insert(ctx, removed); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, _ := store.GetByFilter(ctx, storage.EventFilter{IncludeCanceled: true})
	if len(result) != 0 {
		t.Errorf("Removed legs must never be returned, got %d", len(result))
	}
}

func TestShipmentEventStore_CanceledRequiresCrossdock(t *testing.T) {
	store := NewShipmentEventStore()
	ctx := context.Background()

	// Order with a canceled leg but no cross-dock leg anywhere.
	plainCanceled := testEvent("ord1", "leg1")
	plainCanceled.Status = domain.StatusCanceled

	// Order with a canceled cross-dock leg.
	xdCanceled := testEvent("ord2", "leg1")
	xdCanceled.Status = domain.StatusCanceled
	xdCanceled.PickupLocation = "dock1"
	xdCanceled.DropoffLocation = "dock1"

	if err := store.InsertBulk(ctx, []*domain.ShipmentEvent{plainCanceled, xdCanceled}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, _ := store.GetByFilter(ctx, storage.EventFilter{IncludeCanceled: true})
	if len(result) != 1 {
		t.Fatalf("Expected only the cross-dock order's canceled leg, got %d", len(result))
	}
	if result[0].OrderID != "ord2" {
		t.Errorf("OrderID = %s, want ord2", result[0].OrderID)
	}

	// Without IncludeCanceled, nothing comes back.
	result, _ = store.GetByFilter(ctx, storage.EventFilter{})
	if len(result) != 0 {
		t.Errorf("Expected no canceled legs without IncludeCanceled, got %d", len(result))
	}
}

func TestShipmentEventStore_DateRangeUsesDeliveryTime(t *testing.T) {
	store := NewShipmentEventStore()
	ctx := context.Background()

	arrival := int64(5000)
	inRange := testEvent("ord1", "leg1")
	inRange.ScheduledDropStart = 100 // ignored, actual arrival wins
	inRange.ActualArrivalTime = &arrival

	outOfRange := testEvent("ord2", "leg1")
	outOfRange.ScheduledDropStart = 100

	if err := store.InsertBulk(ctx, []*domain.ShipmentEvent{inRange, outOfRange}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, _ := store.GetByFilter(ctx, storage.EventFilter{Start: 4000, End: 6000})
	if len(result) != 1 {
		t.Fatalf("Expected 1 event in range, got %d", len(result))
	}
	if result[0].OrderID != "ord1" {
		t.Errorf("OrderID = %s, want ord1", result[0].OrderID)
	}
}

func TestShipmentEventStore_CustomerFilters(t *testing.T) {
	store := NewShipmentEventStore()
	ctx := context.Background()

	a := testEvent("ord1", "leg1")
	a.CustomerID = "custA"
	b := testEvent("ord2", "leg1")
	b.CustomerID = "custB"

	if err := store.InsertBulk(ctx, []*domain.ShipmentEvent{a, b}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, _ := store.GetByFilter(ctx, storage.EventFilter{Customers: []string{"custA"}})
	if len(result) != 1 || result[0].CustomerID != "custA" {
		t.Errorf("Customers filter failed: %v", result)
	}

	result, _ = store.GetByFilter(ctx, storage.EventFilter{ExcludeCustomers: []string{"custA"}})
	if len(result) != 1 || result[0].CustomerID != "custB" {
		t.Errorf("ExcludeCustomers filter failed: %v", result)
	}
}

func TestShipmentEventStore_LaneFilterMatchesWholeOrder(t *testing.T) {
	store := NewShipmentEventStore()
	ctx := context.Background()

	primary := testEvent("ord1", "leg1")
	secondary := testEvent("ord1", "leg2")
	secondary.IsPrimary = false
	secondary.StartMarket = "" // secondary legs carry no lane
	secondary.EndMarket = ""

	other := testEvent("ord2", "leg1")
	other.StartMarket = "HOU"

	if err := store.InsertBulk(ctx, []*domain.ShipmentEvent{primary, secondary, other}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, _ := store.GetByFilter(ctx, storage.EventFilter{Lanes: []string{"DFW → ATL"}})
	if len(result) != 2 {
		t.Fatalf("Expected both legs of the matching order, got %d", len(result))
	}
	for _, e := range result {
		if e.OrderID != "ord1" {
			t.Errorf("Unexpected order %s in lane-filtered result", e.OrderID)
		}
	}
}

func TestShipmentEventStore_Ordering(t *testing.T) {
	store := NewShipmentEventStore()
	ctx := context.Background()

	secondary := testEvent("ord1", "leg1")
	secondary.IsPrimary = false
	primary := testEvent("ord1", "leg2")

	if err := store.InsertBulk(ctx, []*domain.ShipmentEvent{secondary, primary}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, _ := store.GetByFilter(ctx, storage.EventFilter{})
	if len(result) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(result))
	}
	if !result[0].IsPrimary {
		t.Error("Primary leg should sort before secondary within an order")
	}
}

func TestShipmentEventStore_ListCustomersAndLanes(t *testing.T) {
	store := NewShipmentEventStore()
	ctx := context.Background()

	a := testEvent("ord1", "leg1")
	a.CustomerID = "custB"
	b := testEvent("ord2", "leg1")
	b.CustomerID = "custA"
	b.StartMarket = "HOU"
	b.EndMarket = "MIA"

	if err := store.InsertBulk(ctx, []*domain.ShipmentEvent{a, b}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	customers, err := store.ListCustomers(ctx)
	if err != nil {
		t.Fatalf("ListCustomers failed: %v", err)
	}
	if len(customers) != 2 || customers[0] != "custA" {
		t.Errorf("ListCustomers = %v, want sorted [custA custB]", customers)
	}

	lanes, err := store.ListLanes(ctx, "custA")
	if err != nil {
		t.Fatalf("ListLanes failed: %v", err)
	}
	if len(lanes) != 1 || lanes[0] != "HOU → MIA" {
		t.Errorf("ListLanes(custA) = %v, want [HOU → MIA]", lanes)
	}
}
