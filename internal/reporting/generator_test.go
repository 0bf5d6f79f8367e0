package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	cachemem "laneprofit/internal/cache/memory"
	"laneprofit/internal/domain"
	"laneprofit/internal/reconcile"
	"laneprofit/internal/storage"
	storemem "laneprofit/internal/storage/memory"
)

// countingStore wraps the memory store to observe fetch traffic.
type countingStore struct {
	storage.ShipmentEventStore
	fetches int
}

func (c *countingStore) GetByFilter(ctx context.Context, filter storage.EventFilter) ([]*domain.ShipmentEvent, error) {
	c.fetches++
	return c.ShipmentEventStore.GetByFilter(ctx, filter)
}

func seedStore(t *testing.T) *storemem.ShipmentEventStore {
	t.Helper()

	store := storemem.NewShipmentEventStore()
	events := []*domain.ShipmentEvent{
		// Clean LTL order.
		{
			OrderID: "ord1", LegID: "leg1", IsPrimary: true,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "a", DropoffLocation: "b",
			StartMarket: "DFW", EndMarket: "ATL",
			CustomerID: "custA", CarrierID: "carr1",
			Revenue: 100, Cost: 80,
			ScheduledDropStart: 1704067200000,
		},
		// Canceled order surviving through its cross-dock leg.
		{
			OrderID: "ord2", LegID: "leg1", IsPrimary: true,
			Status: domain.StatusCanceled, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "dock1", DropoffLocation: "dock1",
			StartMarket: "DFW", EndMarket: "DFW",
			CustomerID: "custA", CarrierID: "carr1",
			Revenue: 10, Cost: 5,
			ScheduledDropStart: 1704067200000,
		},
		// Order with no primary leg, lands on the NA lane.
		{
			OrderID: "ord3", LegID: "leg1", IsPrimary: false,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "c", DropoffLocation: "d",
			CustomerID: "custB", CarrierID: "carr2",
			Revenue: 50, Cost: 60,
			ScheduledDropStart: 1704067200000,
		},
	}
	if err := store.InsertBulk(context.Background(), events); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

func fixedClock() func() time.Time {
	at := time.Unix(1704153600, 0).UTC()
	return func() time.Time { return at }
}

func TestGenerator_Generate(t *testing.T) {
	g := NewGenerator(seedStore(t), reconcile.NewEngine()).WithClock(fixedClock())

	report, err := g.Generate(context.Background(),
		storage.EventFilter{IncludeCanceled: true},
		domain.DimensionLane,
		reconcile.RollupOptions{MinOrders: 1, SortWorstFirst: true},
	)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.Totals.CompletedOrders != 2 || report.Totals.CanceledOrders != 1 {
		t.Errorf("order counts = %d/%d, want 2/1",
			report.Totals.CompletedOrders, report.Totals.CanceledOrders)
	}
	if report.Totals.Revenue != 160 || report.Totals.Cost != 145 {
		t.Errorf("totals = %.2f/%.2f, want 160/145",
			report.Totals.Revenue, report.Totals.Cost)
	}
	if report.Totals.Profit != 15 {
		t.Errorf("profit = %.2f, want 15", report.Totals.Profit)
	}

	if report.Quality.Clean {
		t.Error("quality should flag the order without a primary leg")
	}
	if report.Quality.MissingPrimaryCount != 1 {
		t.Errorf("MissingPrimaryCount = %d, want 1", report.Quality.MissingPrimaryCount)
	}

	// Worst order first in the drill-down.
	if len(report.Details) != 3 {
		t.Fatalf("details = %d rows, want 3", len(report.Details))
	}
	if report.Details[0].OrderID != "ord3" || report.Details[0].Profit != -10 {
		t.Errorf("worst order = %s (%.2f), want ord3 (-10)",
			report.Details[0].OrderID, report.Details[0].Profit)
	}
	if report.Details[0].Lane != "NA → NA" {
		t.Errorf("missing-primary order lane = %s, want NA → NA", report.Details[0].Lane)
	}

	// One rollup row per lane, worst profit first.
	if len(report.Rollup) != 3 {
		t.Fatalf("rollup = %d rows, want 3", len(report.Rollup))
	}
	if report.Rollup[0].GroupKey != "NA → NA" {
		t.Errorf("first rollup row = %s, want NA → NA", report.Rollup[0].GroupKey)
	}
}

func TestGenerator_TotalsTonuMetrics(t *testing.T) {
	store := storemem.NewShipmentEventStore()
	events := []*domain.ShipmentEvent{
		{
			OrderID: "ord1", LegID: "leg1", IsPrimary: true,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "a", DropoffLocation: "b",
			StartMarket: "PHX", EndMarket: "ABQ",
			CustomerID: "custA", CarrierID: "carr1",
			Revenue: 1000, Cost: 800,
			ScheduledDropStart: 1704067200000,
		},
		{
			OrderID: "ord1", LegID: "leg2", IsPrimary: false,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "a", DropoffLocation: "b",
			CustomerID: "custA", CarrierID: "carr1",
			AccessorialType: "TONU",
			Revenue:         250,
			Cost:            50,
			ScheduledDropStart: 1704067200000,
		},
	}
	if err := store.InsertBulk(context.Background(), events); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	g := NewGenerator(store, reconcile.NewEngine()).WithClock(fixedClock())
	report, err := g.Generate(context.Background(),
		storage.EventFilter{}, domain.DimensionLane, reconcile.RollupOptions{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.Totals.TonuRevenue != 250 || report.Totals.TonuCost != 50 {
		t.Errorf("tonu totals = %.2f/%.2f, want 250/50",
			report.Totals.TonuRevenue, report.Totals.TonuCost)
	}
	if report.Totals.TonuProfit != 200 {
		t.Errorf("TonuProfit = %.2f, want 200", report.Totals.TonuProfit)
	}
	// 50 of 800 total cost.
	if report.Totals.TonuCostSharePct != 6.25 {
		t.Errorf("TonuCostSharePct = %.2f, want 6.25", report.Totals.TonuCostSharePct)
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "| TONU Profit | 200.00 |") {
		t.Error("markdown totals should include the TONU profit row")
	}
	if !strings.Contains(md, "| TONU % of Cost | 6.25 |") {
		t.Error("markdown totals should include the TONU cost share row")
	}
}

func TestGenerator_RollupUsesCache(t *testing.T) {
	store := &countingStore{ShipmentEventStore: seedStore(t)}
	g := NewGenerator(store, reconcile.NewEngine()).
		WithClock(fixedClock()).
		WithCache(cachemem.NewRollupCache(0))

	ctx := context.Background()
	filter := storage.EventFilter{IncludeCanceled: true}
	opts := reconcile.RollupOptions{MinOrders: 1, SortWorstFirst: true}

	first, err := g.Rollup(ctx, filter, domain.DimensionLane, opts)
	if err != nil {
		t.Fatalf("first Rollup failed: %v", err)
	}

	second, err := g.Rollup(ctx, filter, domain.DimensionLane, opts)
	if err != nil {
		t.Fatalf("second Rollup failed: %v", err)
	}

	if store.fetches != 1 {
		t.Errorf("store fetches = %d, want 1 (second call should hit the cache)", store.fetches)
	}
	if len(first.Rows) != len(second.Rows) {
		t.Errorf("cached snapshot differs: %d vs %d rows", len(first.Rows), len(second.Rows))
	}

	// A different dimension is a different query.
	if _, err := g.Rollup(ctx, filter, domain.DimensionCustomer, opts); err != nil {
		t.Fatalf("customer Rollup failed: %v", err)
	}
	if store.fetches != 2 {
		t.Errorf("store fetches = %d, want 2 after a new dimension", store.fetches)
	}
}

func TestRenderMarkdown_WarnsOnQuality(t *testing.T) {
	g := NewGenerator(seedStore(t), reconcile.NewEngine()).WithClock(fixedClock())

	report, err := g.Generate(context.Background(),
		storage.EventFilter{IncludeCanceled: true},
		domain.DimensionLane,
		reconcile.RollupOptions{MinOrders: 1, SortWorstFirst: true},
	)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "no primary leg") {
		t.Error("markdown should warn about orders without a primary leg")
	}
	if !strings.Contains(md, "| NA → NA |") {
		t.Error("markdown rollup should include the NA lane row")
	}
}

func TestRenderMarkdown_EmptyResult(t *testing.T) {
	g := NewGenerator(storemem.NewShipmentEventStore(), reconcile.NewEngine()).WithClock(fixedClock())

	report, err := g.Generate(context.Background(),
		storage.EventFilter{}, domain.DimensionLane, reconcile.RollupOptions{})
	if err != nil {
		t.Fatalf("Generate on empty store failed: %v", err)
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "No orders matched the query.") {
		t.Error("empty result should render as an informational message")
	}
}

func TestRenderRollupCSV(t *testing.T) {
	rows := []domain.RollupRow{
		{
			Dimension: domain.DimensionLane, GroupKey: "DFW → ATL",
			CompletedOrders: 2, Revenue: 200, Cost: 150, Profit: 50, MarginPct: 25,
		},
	}

	csv := RenderRollupCSV(rows)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "dimension,group_key,") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "DFW → ATL,2,0,200.00,150.00,50.00,25.00") {
		t.Errorf("unexpected row: %s", lines[1])
	}
}

func TestRenderDetailCSV_QuotesCommas(t *testing.T) {
	details := []DetailRow{
		{
			OrderID: "ord,1", Status: domain.StatusCompleted,
			Category: domain.CategoryParcel, Lane: "DFW → ATL",
			Revenue: 10, Cost: 5, Profit: 5,
			RevenueRule: domain.RulePrimaryStrategy, CostRule: domain.RulePrimaryStrategy,
		},
	}

	csv := RenderDetailCSV(details)
	if !strings.Contains(csv, `"ord,1"`) {
		t.Errorf("comma in order id should be quoted: %s", csv)
	}
}
