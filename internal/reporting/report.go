package reporting

import (
	"time"

	"laneprofit/internal/domain"
)

// Report is the rendered view of one reconciliation run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Dimension   domain.Dimension

	// Query window, Unix ms, zero when unbounded.
	WindowStart int64
	WindowEnd   int64

	// Totals across every reconciled order in the result set.
	Totals Totals

	// Data quality findings from the aggregation pass.
	Quality QualitySection

	// Rollup rows, sorted by profit per the run options.
	Rollup []domain.RollupRow

	// Details holds the per-order drill-down rows.
	Details []DetailRow
}

// Totals summarizes the whole result set.
type Totals struct {
	CompletedOrders int
	CanceledOrders  int

	Revenue       float64
	Cost          float64
	Profit        float64
	MarginPct     float64
	CrossdockCost float64
	CrossdockPct  float64

	TonuRevenue float64
	TonuCost    float64
	TonuProfit  float64
	// TonuCostSharePct is TONU cost as a share of total cost.
	TonuCostSharePct float64
}

// QualitySection summarizes orders whose leg structure violated expectations.
type QualitySection struct {
	MissingPrimaryCount int
	MultiPrimaryCount   int
	Messages            []string
	Clean               bool
}

// DetailRow is one order in the drill-down table.
type DetailRow struct {
	OrderID    string
	Status     domain.Status
	Category   domain.Category
	Lane       string
	CustomerID string
	CarrierID  string

	Revenue       float64
	Cost          float64
	Profit        float64
	CrossdockCost float64

	RevenueRule string
	CostRule    string
}
