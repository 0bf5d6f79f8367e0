package domain

// Dimension selects the grouping key for profitability rollups.
type Dimension string

const (
	DimensionLane     Dimension = "lane"
	DimensionMarket   Dimension = "market" // start == end, NA excluded
	DimensionCustomer Dimension = "customer"
	DimensionCarrier  Dimension = "carrier"
)

// String returns the string representation of Dimension.
func (d Dimension) String() string {
	return string(d)
}

// IsValid checks if the dimension is a valid value.
func (d Dimension) IsValid() bool {
	switch d {
	case DimensionLane, DimensionMarket, DimensionCustomer, DimensionCarrier:
		return true
	}
	return false
}

// RollupRow is one profitability summary row per grouping key.
type RollupRow struct {
	Dimension Dimension
	GroupKey  string

	CompletedOrders int
	CanceledOrders  int

	Revenue       float64
	Cost          float64
	Profit        float64
	MarginPct     float64 // profit / revenue * 100, 0 when revenue is 0
	CrossdockCost float64
	CrossdockPct  float64 // crossdock_cost / cost * 100, 0 when cost is 0
	TonuRevenue   float64
	TonuCost      float64
}

// RollupSnapshot is a persisted set of rollup rows from one report run.
type RollupSnapshot struct {
	SnapshotID  string
	GeneratedAt int64 // Unix ms
	Dimension   Dimension
	Rows        []RollupRow
}
