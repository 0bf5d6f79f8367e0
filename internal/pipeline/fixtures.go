package pipeline

import (
	"context"
	"time"

	"laneprofit/internal/domain"
	"laneprofit/internal/storage"
)

// LoadFixtures populates the event store with demonstration data. The
// set exercises every reconciliation branch: each LTL revenue and cost
// rule, FTL leg summing, parcel primary-only, the canceled cross-dock
// override, TONU accessorials, and a missing-primary quality flag.
func LoadFixtures(ctx context.Context, store storage.ShipmentEventStore) error {
	return store.InsertBulk(ctx, FixtureEvents())
}

// FixtureEvents returns the demonstration shipment events. Delivery
// times span the first week of January 2024.
func FixtureEvents() []*domain.ShipmentEvent {
	return []*domain.ShipmentEvent{
		// Plain LTL: a single primary leg carries everything.
		{
			OrderID: "ord_ltl_plain", LegID: "leg_1", IsPrimary: true,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "dfw-01", DropoffLocation: "atl-04",
			StartMarket: "DFW", EndMarket: "ATL",
			CustomerID: "cust_acme", CarrierID: "carr_eagle",
			Revenue: 1200, Cost: 900, Distance: ptrF(780.3),
			ScheduledDropStart: ms("2024-01-02"), ActualArrivalTime: ptrI(ms("2024-01-02") + 3*3600*1000),
		},

		// LTL with a zero-revenue primary: the secondary leg holds the money.
		{
			OrderID: "ord_ltl_secondary", LegID: "leg_1", IsPrimary: true,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "hou-02", DropoffLocation: "mia-01",
			StartMarket: "HOU", EndMarket: "MIA",
			CustomerID: "cust_acme", CarrierID: "carr_eagle",
			Revenue: 0, Cost: 0,
			ScheduledDropStart: ms("2024-01-02"),
		},
		{
			OrderID: "ord_ltl_secondary", LegID: "leg_2", IsPrimary: false,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "hou-02", DropoffLocation: "mia-01",
			StartMarket: "HOU", EndMarket: "MIA",
			CustomerID: "cust_acme", CarrierID: "carr_eagle",
			Revenue: 800, Cost: 600,
			ScheduledDropStart: ms("2024-01-02"),
		},

		// LTL where the secondary row duplicates the primary plus its
		// cross-dock component: the secondary is counted alone for revenue
		// and the duplicate cost row is dropped.
		{
			OrderID: "ord_ltl_superset", LegID: "leg_1", IsPrimary: true,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "dfw-01", DropoffLocation: "chi-02",
			StartMarket: "DFW", EndMarket: "CHI",
			CustomerID: "cust_borealis", CarrierID: "carr_summit",
			Revenue: 1000, Cost: 700,
			ScheduledDropStart: ms("2024-01-03"),
		},
		{
			OrderID: "ord_ltl_superset", LegID: "leg_2", IsPrimary: false,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "dock-chi", DropoffLocation: "dock-chi",
			StartMarket: "CHI", EndMarket: "CHI",
			CustomerID: "cust_borealis", CarrierID: "carr_summit",
			Revenue: 150, Cost: 90,
			ScheduledDropStart: ms("2024-01-03"),
		},
		{
			OrderID: "ord_ltl_superset", LegID: "leg_3", IsPrimary: false,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "dfw-01", DropoffLocation: "chi-02",
			StartMarket: "DFW", EndMarket: "CHI",
			CustomerID: "cust_borealis", CarrierID: "carr_summit",
			Revenue: 1000, Cost: 700,
			ScheduledDropStart: ms("2024-01-03"),
		},

		// LTL where the primary dominates a small accessorial secondary:
		// both charges are real, so revenue adds while the unexplained
		// secondary cost is discarded.
		{
			OrderID: "ord_ltl_dominant", LegID: "leg_1", IsPrimary: true,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "lax-03", DropoffLocation: "phx-01",
			StartMarket: "LAX", EndMarket: "PHX",
			CustomerID: "cust_borealis", CarrierID: "carr_eagle",
			Revenue: 2000, Cost: 1500,
			ScheduledDropStart: ms("2024-01-04"),
		},
		{
			OrderID: "ord_ltl_dominant", LegID: "leg_2", IsPrimary: false,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "lax-03", DropoffLocation: "phx-01",
			StartMarket: "LAX", EndMarket: "PHX",
			CustomerID: "cust_borealis", CarrierID: "carr_eagle",
			Revenue: 300, Cost: 100,
			ScheduledDropStart: ms("2024-01-04"),
		},

		// LTL falling through to the default branches: secondary revenue
		// wins, and the outsized secondary cost is a distinct bucket.
		{
			OrderID: "ord_ltl_rebilled", LegID: "leg_1", IsPrimary: true,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "sea-01", DropoffLocation: "den-02",
			StartMarket: "SEA", EndMarket: "DEN",
			CustomerID: "cust_crestline", CarrierID: "carr_summit",
			Revenue: 600, Cost: 400,
			ScheduledDropStart: ms("2024-01-04"),
		},
		{
			OrderID: "ord_ltl_rebilled", LegID: "leg_2", IsPrimary: false,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "sea-01", DropoffLocation: "den-02",
			StartMarket: "SEA", EndMarket: "DEN",
			CustomerID: "cust_crestline", CarrierID: "carr_summit",
			Revenue: 900, Cost: 2500,
			ScheduledDropStart: ms("2024-01-04"),
		},

		// LTL whose secondary cost nearly matches the primary in aggregate
		// but no single row duplicates it: the increment is additive.
		{
			OrderID: "ord_ltl_split", LegID: "leg_1", IsPrimary: true,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "atl-04", DropoffLocation: "clt-01",
			StartMarket: "ATL", EndMarket: "CLT",
			CustomerID: "cust_crestline", CarrierID: "carr_eagle",
			Revenue: 700, Cost: 500,
			ScheduledDropStart: ms("2024-01-05"),
		},
		{
			OrderID: "ord_ltl_split", LegID: "leg_2", IsPrimary: false,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "atl-04", DropoffLocation: "clt-01",
			StartMarket: "ATL", EndMarket: "CLT",
			CustomerID: "cust_crestline", CarrierID: "carr_eagle",
			Revenue: 50, Cost: 250,
			ScheduledDropStart: ms("2024-01-05"),
		},
		{
			OrderID: "ord_ltl_split", LegID: "leg_3", IsPrimary: false,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "atl-04", DropoffLocation: "clt-01",
			StartMarket: "ATL", EndMarket: "CLT",
			CustomerID: "cust_crestline", CarrierID: "carr_eagle",
			Revenue: 50, Cost: 260,
			ScheduledDropStart: ms("2024-01-05"),
		},

		// FTL: every completed leg is a distinct charge.
		{
			OrderID: "ord_ftl", LegID: "leg_1", IsPrimary: true,
			Status: domain.StatusCompleted, Category: domain.CategoryFullTruckload,
			PickupLocation: "dfw-01", DropoffLocation: "mem-02",
			StartMarket: "DFW", EndMarket: "MEM",
			CustomerID: "cust_acme", CarrierID: "carr_summit",
			Revenue: 3000, Cost: 2400, Distance: ptrF(452.0),
			ScheduledDropStart: ms("2024-01-05"),
		},
		{
			OrderID: "ord_ftl", LegID: "leg_2", IsPrimary: false,
			Status: domain.StatusCompleted, Category: domain.CategoryFullTruckload,
			PickupLocation: "mem-02", DropoffLocation: "mem-02",
			StartMarket: "MEM", EndMarket: "MEM",
			CustomerID: "cust_acme", CarrierID: "carr_summit",
			Revenue: 500, Cost: 400,
			ScheduledDropStart: ms("2024-01-05"),
		},

		// Parcel: the secondary row is an administrative artifact.
		{
			OrderID: "ord_parcel", LegID: "leg_1", IsPrimary: true,
			Status: domain.StatusCompleted, Category: domain.CategoryParcel,
			PickupLocation: "dfw-01", DropoffLocation: "okc-01",
			StartMarket: "DFW", EndMarket: "OKC",
			CustomerID: "cust_acme", CarrierID: "carr_eagle",
			Revenue: 45, Cost: 30,
			ScheduledDropStart: ms("2024-01-06"),
		},
		{
			OrderID: "ord_parcel", LegID: "leg_2", IsPrimary: false,
			Status: domain.StatusCompleted, Category: domain.CategoryParcel,
			PickupLocation: "dfw-01", DropoffLocation: "okc-01",
			StartMarket: "DFW", EndMarket: "OKC",
			CustomerID: "cust_acme", CarrierID: "carr_eagle",
			Revenue: 5, Cost: 5,
			ScheduledDropStart: ms("2024-01-06"),
		},

		// Canceled order whose cross-dock handling still cost money.
		{
			OrderID: "ord_canceled", LegID: "leg_1", IsPrimary: true,
			Status: domain.StatusCanceled, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "hou-02", DropoffLocation: "atl-04",
			StartMarket: "HOU", EndMarket: "ATL",
			CustomerID: "cust_borealis", CarrierID: "carr_summit",
			Revenue: 950, Cost: 720,
			ScheduledDropStart: ms("2024-01-06"),
		},
		{
			OrderID: "ord_canceled", LegID: "leg_2", IsPrimary: false,
			Status: domain.StatusCanceled, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "dock-hou", DropoffLocation: "dock-hou",
			StartMarket: "HOU", EndMarket: "HOU",
			CustomerID: "cust_borealis", CarrierID: "carr_summit",
			Revenue: 0, Cost: 75,
			ScheduledDropStart: ms("2024-01-06"),
		},

		// Completed order with a TONU accessorial on top of the haul.
		{
			OrderID: "ord_tonu", LegID: "leg_1", IsPrimary: true,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "phx-01", DropoffLocation: "abq-01",
			StartMarket: "PHX", EndMarket: "ABQ",
			CustomerID: "cust_crestline", CarrierID: "carr_summit",
			Revenue: 1100, Cost: 850,
			ScheduledDropStart: ms("2024-01-07"),
		},
		{
			OrderID: "ord_tonu", LegID: "leg_2", IsPrimary: false,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "phx-01", DropoffLocation: "abq-01",
			StartMarket: "PHX", EndMarket: "ABQ",
			CustomerID: "cust_crestline", CarrierID: "carr_summit",
			Revenue: 250, Cost: 50, AccessorialType: domain.AccessorialTONU,
			ScheduledDropStart: ms("2024-01-07"),
		},

		// Order with no primary leg: reports under the NA lane and raises
		// a data quality flag.
		{
			OrderID: "ord_no_primary", LegID: "leg_1", IsPrimary: false,
			Status: domain.StatusCompleted, Category: domain.CategoryLessThanTruckload,
			PickupLocation: "bna-01", DropoffLocation: "bna-02",
			CustomerID: "cust_borealis", CarrierID: "carr_eagle",
			Revenue: 320, Cost: 280,
			ScheduledDropStart: ms("2024-01-07"),
		},
	}
}

// ms converts a YYYY-MM-DD date to Unix milliseconds at midnight UTC.
// Fixture dates are compile-time constants so a parse failure is a bug.
func ms(date string) int64 {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic("bad fixture date: " + date)
	}
	return t.UnixMilli()
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }
