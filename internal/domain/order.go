package domain

// MarketNA is the sentinel lane endpoint used when an order has no
// primary leg or its market fields are empty.
const MarketNA = "NA"

// Lane is an ordered pair of geographic markets an order travels between.
type Lane struct {
	Start string
	End   string
}

// NewLane builds a Lane, substituting the NA sentinel for empty endpoints.
func NewLane(start, end string) Lane {
	if start == "" {
		start = MarketNA
	}
	if end == "" {
		end = MarketNA
	}
	return Lane{Start: start, End: end}
}

// Key returns the display form of the lane, e.g. "DFW → ATL".
func (l Lane) Key() string {
	return l.Start + " → " + l.End
}

// IsWithinMarket reports whether the lane starts and ends in the same
// real market (the NA sentinel never qualifies).
func (l Lane) IsWithinMarket() bool {
	return l.Start == l.End && l.Start != MarketNA
}

// OrderMetrics holds the per-order candidate sums the reconciliation
// rules choose between. One instance per order_id.
type OrderMetrics struct {
	OrderID    string
	Status     Status
	Category   Category
	Lane       Lane
	CustomerID string
	CarrierID  string

	PrimaryRevenue float64 // primary legs, Completed
	PrimaryCost    float64

	SecondaryRevenue float64 // non-primary legs, Completed
	SecondaryCost    float64

	SecondaryCrossdockRevenue float64 // secondary legs that are cross-dock, Completed
	SecondaryCrossdockCost    float64

	CanceledCrossdockRevenue float64 // cross-dock legs with status Canceled, any leg role
	CanceledCrossdockCost    float64

	TonuRevenue float64 // TONU accessorial legs, any status
	TonuCost    float64

	// HasMatchingSecondary is true when some secondary Completed leg's cost
	// nearly equals the summed primary Completed cost, signalling a
	// duplicate row rather than an incremental charge.
	HasMatchingSecondary bool

	PrimaryLegCount int // legs flagged primary, for data quality tracking
	LegCount        int
}

// Reconciliation rule identifiers recorded on each ReconciledOrder.
const (
	RuleCanceledCrossdock = "canceled_crossdock"
	RuleSumAllLegs        = "sum_all_legs"
	RulePrimaryStrategy   = "primary_strategy"

	RuleRevPrimaryOnly       = "rev_primary_only"
	RuleRevSecondaryOnly     = "rev_secondary_only"
	RuleRevSecondarySuperset = "rev_secondary_superset"
	RuleRevAdditive          = "rev_additive"
	RuleRevSecondaryDefault  = "rev_secondary_default"

	RuleCostPrimaryOnly       = "cost_primary_only"
	RuleCostSecondaryOnly     = "cost_secondary_only"
	RuleCostDuplicateDropped  = "cost_duplicate_dropped"
	RuleCostNearMatchAdditive = "cost_near_match_additive"
	RuleCostDistinctAdditive  = "cost_distinct_additive"
	RuleCostPrimaryPlusXdock  = "cost_primary_plus_crossdock"
)

// ReconciledOrder is the authoritative per-order financial result.
type ReconciledOrder struct {
	OrderID    string
	Status     Status
	Category   Category
	Lane       Lane
	CustomerID string
	CarrierID  string

	Revenue       float64
	Cost          float64
	CrossdockCost float64
	TonuRevenue   float64
	TonuCost      float64

	// RevenueRule and CostRule name the decision branch that produced
	// the amounts, for drill-down display.
	RevenueRule string
	CostRule    string
}

// Profit returns revenue minus cost.
func (r *ReconciledOrder) Profit() float64 {
	return r.Revenue - r.Cost
}
