package reconcile

import (
	"math"

	"laneprofit/internal/domain"
)

// Tolerances holds the absolute-difference constants used by the
// less-than-truckload decision trees. The defaults were tuned against
// this domain's rounding noise; change them only when retuning for a
// dataset with a different noise profile.
type Tolerances struct {
	Revenue float64 // near-equality bound for the revenue tree
	Cost    float64 // near-equality bound for the cost tree
}

// DefaultTolerances returns the standard tolerance constants.
func DefaultTolerances() Tolerances {
	return Tolerances{Revenue: 1.0, Cost: 20.0}
}

// Engine applies category-specific rules to per-order metrics and
// produces one authoritative financial result per order. It is pure and
// stateless; concurrent use is safe.
type Engine struct {
	tol Tolerances
}

// NewEngine creates an engine with default tolerances.
func NewEngine() *Engine {
	return &Engine{tol: DefaultTolerances()}
}

// WithTolerances sets custom tolerance constants.
func (e *Engine) WithTolerances(tol Tolerances) *Engine {
	e.tol = tol
	return e
}

// Reconcile resolves one order's metrics into its authoritative revenue,
// cost and cross-dock cost. Every order matches exactly one branch per
// decision tree; no order is left unclassified.
func (e *Engine) Reconcile(m *domain.OrderMetrics) *domain.ReconciledOrder {
	r := &domain.ReconciledOrder{
		OrderID:     m.OrderID,
		Status:      m.Status,
		Category:    m.Category,
		Lane:        m.Lane,
		CustomerID:  m.CustomerID,
		CarrierID:   m.CarrierID,
		TonuRevenue: m.TonuRevenue,
		TonuCost:    m.TonuCost,
	}

	// Canceled orders have no completed transport worth counting, but a
	// cross-dock handling event may still have occurred and cost money.
	if m.Status == domain.StatusCanceled {
		r.Revenue = m.CanceledCrossdockRevenue
		r.Cost = m.CanceledCrossdockCost
		r.CrossdockCost = m.CanceledCrossdockCost
		r.RevenueRule = domain.RuleCanceledCrossdock
		r.CostRule = domain.RuleCanceledCrossdock
		return r
	}

	r.CrossdockCost = m.SecondaryCrossdockCost

	switch m.Category {
	case domain.CategoryFullTruckload:
		// FTL orders legitimately carry multiple billable legs; every
		// completed leg is a distinct charge, so sum them all.
		r.Revenue = m.PrimaryRevenue + m.SecondaryRevenue
		r.Cost = m.PrimaryCost + m.SecondaryCost
		r.RevenueRule = domain.RuleSumAllLegs
		r.CostRule = domain.RuleSumAllLegs

	case domain.CategoryLessThanTruckload:
		r.Revenue, r.RevenueRule = e.reconcileLTLRevenue(m)
		r.Cost, r.CostRule = e.reconcileLTLCost(m)

	default:
		// Parcel and everything else: secondary rows are administrative
		// artifacts, only primary values count.
		r.Revenue = m.PrimaryRevenue
		r.Cost = m.PrimaryCost
		r.RevenueRule = domain.RulePrimaryStrategy
		r.CostRule = domain.RulePrimaryStrategy
	}

	return r
}

// ReconcileAll reconciles a batch of orders in input order.
func (e *Engine) ReconcileAll(metrics []*domain.OrderMetrics) []*domain.ReconciledOrder {
	out := make([]*domain.ReconciledOrder, len(metrics))
	for i, m := range metrics {
		out[i] = e.Reconcile(m)
	}
	return out
}

// reconcileLTLRevenue walks the LTL revenue decision tree, first match wins.
func (e *Engine) reconcileLTLRevenue(m *domain.OrderMetrics) (float64, string) {
	switch {
	case m.PrimaryRevenue > 0 && m.SecondaryRevenue == 0:
		return m.PrimaryRevenue, domain.RuleRevPrimaryOnly

	case m.PrimaryRevenue == 0:
		return m.SecondaryRevenue, domain.RuleRevSecondaryOnly

	case math.Abs((m.SecondaryRevenue-m.SecondaryCrossdockRevenue)-m.PrimaryRevenue) < e.tol.Revenue:
		// Secondary equals primary plus its cross-dock component: it is
		// the superset, counting it alone avoids a double count.
		return m.SecondaryRevenue, domain.RuleRevSecondarySuperset

	case m.PrimaryRevenue > 2*m.SecondaryRevenue:
		// Primary dominates; the small secondary is an independent
		// accessorial charge, both are real.
		return m.PrimaryRevenue + m.SecondaryRevenue, domain.RuleRevAdditive

	default:
		return m.SecondaryRevenue, domain.RuleRevSecondaryDefault
	}
}

// reconcileLTLCost walks the LTL cost decision tree, first match wins.
// Cost tolerances are wider than revenue because cost noise is larger.
func (e *Engine) reconcileLTLCost(m *domain.OrderMetrics) (float64, string) {
	switch {
	case m.PrimaryCost > 0 && m.SecondaryCost == 0:
		return m.PrimaryCost, domain.RuleCostPrimaryOnly

	case m.PrimaryCost == 0 && m.SecondaryCost > 0:
		return m.SecondaryCost, domain.RuleCostSecondaryOnly

	case math.Abs((m.SecondaryCost-m.SecondaryCrossdockCost)-m.PrimaryCost) < e.tol.Cost:
		if m.HasMatchingSecondary {
			// Confirmed duplicate of the primary row: drop it entirely.
			return m.PrimaryCost, domain.RuleCostDuplicateDropped
		}
		// Secondary carries the real cross-dock increment: additive.
		return m.PrimaryCost + m.SecondaryCost, domain.RuleCostNearMatchAdditive

	case m.SecondaryCost > 5*m.PrimaryCost:
		// Materially distinct cost bucket.
		return m.PrimaryCost + m.SecondaryCost, domain.RuleCostDistinctAdditive

	default:
		// Count primary plus only the cross-dock-attributable portion of
		// secondary, discarding unexplained noise.
		return m.PrimaryCost + m.SecondaryCrossdockCost, domain.RuleCostPrimaryPlusXdock
	}
}
