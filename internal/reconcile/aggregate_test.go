package reconcile

import (
	"testing"

	"laneprofit/internal/domain"
)

func completedLeg(orderID, legID string, primary bool, revenue, cost float64) *domain.ShipmentEvent {
	return &domain.ShipmentEvent{
		OrderID:         orderID,
		LegID:           legID,
		IsPrimary:       primary,
		Status:          domain.StatusCompleted,
		Category:        domain.CategoryLessThanTruckload,
		PickupLocation:  "p-" + legID,
		DropoffLocation: "d-" + legID,
		StartMarket:     "DFW",
		EndMarket:       "ATL",
		CustomerID:      "cust1",
		CarrierID:       "carr1",
		Revenue:         revenue,
		Cost:            cost,
	}
}

func crossdockLeg(orderID, legID string, status domain.Status, revenue, cost float64) *domain.ShipmentEvent {
	e := completedLeg(orderID, legID, false, revenue, cost)
	e.Status = status
	e.PickupLocation = "dock1"
	e.DropoffLocation = "dock1"
	return e
}

func TestBuildOrderMetrics_SplitsSums(t *testing.T) {
	events := []*domain.ShipmentEvent{
		completedLeg("ord1", "leg1", true, 100, 80),
		completedLeg("ord1", "leg2", false, 40, 30),
		crossdockLeg("ord1", "leg3", domain.StatusCompleted, 5, 10),
	}

	metrics, quality := BuildOrderMetrics(events)
	if len(metrics) != 1 {
		t.Fatalf("expected 1 order, got %d", len(metrics))
	}

	m := metrics[0]
	if m.PrimaryRevenue != 100 || m.PrimaryCost != 80 {
		t.Errorf("primary sums = (%f, %f), want (100, 80)", m.PrimaryRevenue, m.PrimaryCost)
	}
	if m.SecondaryRevenue != 45 || m.SecondaryCost != 40 {
		t.Errorf("secondary sums = (%f, %f), want (45, 40)", m.SecondaryRevenue, m.SecondaryCost)
	}
	if m.SecondaryCrossdockRevenue != 5 || m.SecondaryCrossdockCost != 10 {
		t.Errorf("crossdock sums = (%f, %f), want (5, 10)", m.SecondaryCrossdockRevenue, m.SecondaryCrossdockCost)
	}
	if m.Lane.Key() != "DFW → ATL" {
		t.Errorf("lane = %q", m.Lane.Key())
	}
	if len(quality.Errors()) != 0 {
		t.Errorf("unexpected quality errors: %v", quality.Errors())
	}
}

func TestBuildOrderMetrics_CanceledCrossdockOnly(t *testing.T) {
	primary := completedLeg("ord1", "leg1", true, 100, 80)
	primary.Status = domain.StatusCanceled

	events := []*domain.ShipmentEvent{
		primary,
		crossdockLeg("ord1", "leg2", domain.StatusCanceled, 0, 25),
	}

	metrics, _ := BuildOrderMetrics(events)
	m := metrics[0]

	if m.Status != domain.StatusCanceled {
		t.Errorf("status = %s, want canceled", m.Status)
	}
	// Canceled legs contribute nothing to primary/secondary sums.
	if m.PrimaryRevenue != 0 || m.SecondaryCost != 0 {
		t.Errorf("canceled legs leaked into completed sums: %+v", m)
	}
	if m.CanceledCrossdockCost != 25 {
		t.Errorf("canceled crossdock cost = %f, want 25", m.CanceledCrossdockCost)
	}
}

func TestBuildOrderMetrics_HasMatchingSecondary(t *testing.T) {
	events := []*domain.ShipmentEvent{
		completedLeg("ord1", "leg1", true, 100, 200),
		completedLeg("ord1", "leg2", false, 0, 200.5), // within 1.0 of primary cost
	}

	metrics, _ := BuildOrderMetrics(events)
	if !metrics[0].HasMatchingSecondary {
		t.Error("expected HasMatchingSecondary for near-equal secondary cost")
	}

	events[1].Cost = 215 // outside tolerance
	metrics, _ = BuildOrderMetrics(events)
	if metrics[0].HasMatchingSecondary {
		t.Error("did not expect HasMatchingSecondary for cost 15 above primary")
	}
}

func TestBuildOrderMetrics_TonuAnyStatus(t *testing.T) {
	tonu := completedLeg("ord1", "leg2", false, 150, 75)
	tonu.Status = domain.StatusCanceled
	tonu.AccessorialType = domain.AccessorialTONU

	events := []*domain.ShipmentEvent{
		completedLeg("ord1", "leg1", true, 100, 80),
		tonu,
	}

	metrics, _ := BuildOrderMetrics(events)
	m := metrics[0]
	if m.TonuRevenue != 150 || m.TonuCost != 75 {
		t.Errorf("tonu sums = (%f, %f), want (150, 75)", m.TonuRevenue, m.TonuCost)
	}
}

func TestBuildOrderMetrics_MissingPrimaryFlagged(t *testing.T) {
	events := []*domain.ShipmentEvent{
		completedLeg("ord1", "leg1", false, 50, 40),
	}

	metrics, quality := BuildOrderMetrics(events)
	m := metrics[0]

	if m.Lane.Key() != "NA → NA" {
		t.Errorf("lane = %q, want NA → NA", m.Lane.Key())
	}
	if quality.MissingPrimaryOrders() != 1 {
		t.Errorf("missing primary orders = %d, want 1", quality.MissingPrimaryOrders())
	}
	if len(quality.Errors()) != 1 {
		t.Errorf("expected 1 quality error, got %v", quality.Errors())
	}
	// The order is still present in the output, not dropped.
	if m.SecondaryRevenue != 50 {
		t.Errorf("secondary revenue = %f, want 50", m.SecondaryRevenue)
	}
}

func TestBuildOrderMetrics_MultiPrimaryDeterministic(t *testing.T) {
	first := completedLeg("ord1", "leg1", true, 100, 80)
	first.StartMarket = "DFW"
	second := completedLeg("ord1", "leg2", true, 60, 50)
	second.StartMarket = "HOU"

	// Insert out of leg order; attributes must come from the last-sorted primary.
	metrics, quality := BuildOrderMetrics([]*domain.ShipmentEvent{second, first})
	m := metrics[0]

	if quality.MultiPrimaryOrders() != 1 {
		t.Errorf("multi primary orders = %d, want 1", quality.MultiPrimaryOrders())
	}
	if m.Lane.Start != "HOU" {
		t.Errorf("lane start = %s, want HOU (last-sorted primary)", m.Lane.Start)
	}
	// Sums cover all primary legs.
	if m.PrimaryRevenue != 160 || m.PrimaryCost != 130 {
		t.Errorf("primary sums = (%f, %f), want (160, 130)", m.PrimaryRevenue, m.PrimaryCost)
	}
}

func TestBuildOrderMetrics_EmptyInput(t *testing.T) {
	metrics, quality := BuildOrderMetrics(nil)
	if len(metrics) != 0 {
		t.Errorf("expected empty metrics, got %d", len(metrics))
	}
	if len(quality.Errors()) != 0 {
		t.Errorf("expected no quality errors, got %v", quality.Errors())
	}
}

func TestBuildOrderMetrics_SortedByOrderID(t *testing.T) {
	events := []*domain.ShipmentEvent{
		completedLeg("ord2", "leg1", true, 1, 1),
		completedLeg("ord1", "leg1", true, 1, 1),
		completedLeg("ord3", "leg1", true, 1, 1),
	}

	metrics, _ := BuildOrderMetrics(events)
	for i := 1; i < len(metrics); i++ {
		if metrics[i].OrderID < metrics[i-1].OrderID {
			t.Errorf("orders not sorted: %s before %s", metrics[i-1].OrderID, metrics[i].OrderID)
		}
	}
}
