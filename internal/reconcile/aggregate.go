package reconcile

import (
	"fmt"
	"math"
	"sort"

	"laneprofit/internal/domain"
)

// matchingSecondaryTolerance is the absolute currency tolerance used to
// decide whether a secondary leg's cost duplicates the primary cost.
const matchingSecondaryTolerance = 1.0

// QualityReport tracks per-order data quality issues found while
// aggregating legs. Issues are surfaced, never silently dropped.
type QualityReport struct {
	// MissingPrimary maps order_id to leg count for orders with no primary leg.
	MissingPrimary map[string]int

	// MultiPrimary maps order_id to primary leg count for orders with
	// more than one leg flagged primary.
	MultiPrimary map[string]int
}

// NewQualityReport creates an empty quality report.
func NewQualityReport() *QualityReport {
	return &QualityReport{
		MissingPrimary: make(map[string]int),
		MultiPrimary:   make(map[string]int),
	}
}

// MissingPrimaryOrders returns the count of orders with no primary leg.
func (q *QualityReport) MissingPrimaryOrders() int {
	return len(q.MissingPrimary)
}

// MultiPrimaryOrders returns the count of orders with more than one primary leg.
func (q *QualityReport) MultiPrimaryOrders() int {
	return len(q.MultiPrimary)
}

// Errors returns data quality messages sorted by order_id for deterministic output.
func (q *QualityReport) Errors() []string {
	var msgs []string

	keys := make([]string, 0, len(q.MissingPrimary))
	for k := range q.MissingPrimary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, orderID := range keys {
		msgs = append(msgs, fmt.Sprintf("order %s has no primary leg (%d leg(s), lane NA → NA)", orderID, q.MissingPrimary[orderID]))
	}

	keys = keys[:0]
	for k := range q.MultiPrimary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, orderID := range keys {
		msgs = append(msgs, fmt.Sprintf("order %s has %d legs flagged primary", orderID, q.MultiPrimary[orderID]))
	}

	return msgs
}

// BuildOrderMetrics groups shipment events by order and reduces each
// group into the candidate sums the reconciliation rules operate on.
// Orders are returned sorted by order_id; legs within an order are
// processed in leg_id order so multi-primary ties resolve deterministically.
func BuildOrderMetrics(events []*domain.ShipmentEvent) ([]*domain.OrderMetrics, *QualityReport) {
	quality := NewQualityReport()

	byOrder := make(map[string][]*domain.ShipmentEvent)
	for _, e := range events {
		byOrder[e.OrderID] = append(byOrder[e.OrderID], e)
	}

	orderIDs := make([]string, 0, len(byOrder))
	for id := range byOrder {
		orderIDs = append(orderIDs, id)
	}
	sort.Strings(orderIDs)

	metrics := make([]*domain.OrderMetrics, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		legs := byOrder[orderID]
		sort.Slice(legs, func(i, j int) bool { return legs[i].LegID < legs[j].LegID })

		m := reduceOrder(orderID, legs)

		if m.PrimaryLegCount == 0 {
			quality.MissingPrimary[orderID] = len(legs)
		} else if m.PrimaryLegCount > 1 {
			quality.MultiPrimary[orderID] = m.PrimaryLegCount
		}

		metrics = append(metrics, m)
	}

	return metrics, quality
}

// reduceOrder computes OrderMetrics for one order's legs, which must be
// pre-sorted by leg_id.
func reduceOrder(orderID string, legs []*domain.ShipmentEvent) *domain.OrderMetrics {
	m := &domain.OrderMetrics{
		OrderID:  orderID,
		Lane:     domain.NewLane("", ""),
		LegCount: len(legs),
	}

	// Order attributes come from the last-sorted primary leg. Orders with
	// no primary fall back to the first leg and keep the NA lane.
	var attrLeg *domain.ShipmentEvent
	for _, leg := range legs {
		if leg.IsPrimary {
			m.PrimaryLegCount++
			attrLeg = leg
		}
	}
	hasPrimary := attrLeg != nil
	if attrLeg == nil && len(legs) > 0 {
		attrLeg = legs[0]
	}
	if attrLeg != nil {
		m.Status = attrLeg.Status
		m.Category = attrLeg.Category
		m.CustomerID = attrLeg.CustomerID
		m.CarrierID = attrLeg.CarrierID
		if hasPrimary {
			m.Lane = domain.NewLane(attrLeg.StartMarket, attrLeg.EndMarket)
		}
	}

	for _, leg := range legs {
		if leg.IsTONU() {
			m.TonuRevenue += leg.Revenue
			m.TonuCost += leg.Cost
		}

		switch leg.Status {
		case domain.StatusCompleted:
			if leg.IsPrimary {
				m.PrimaryRevenue += leg.Revenue
				m.PrimaryCost += leg.Cost
			} else {
				m.SecondaryRevenue += leg.Revenue
				m.SecondaryCost += leg.Cost
				if leg.IsCrossdock() {
					m.SecondaryCrossdockRevenue += leg.Revenue
					m.SecondaryCrossdockCost += leg.Cost
				}
			}
		case domain.StatusCanceled:
			if leg.IsCrossdock() {
				m.CanceledCrossdockRevenue += leg.Revenue
				m.CanceledCrossdockCost += leg.Cost
			}
		}
	}

	// A secondary Completed leg whose cost nearly equals the summed primary
	// cost is a duplicate row, not an incremental charge.
	for _, leg := range legs {
		if !leg.IsPrimary && leg.Status == domain.StatusCompleted &&
			math.Abs(leg.Cost-m.PrimaryCost) < matchingSecondaryTolerance {
			m.HasMatchingSecondary = true
			break
		}
	}

	return m
}
