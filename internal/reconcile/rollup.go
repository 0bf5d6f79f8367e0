package reconcile

import (
	"sort"

	"laneprofit/internal/domain"
)

// RollupOptions controls rollup filtering and ordering.
type RollupOptions struct {
	// MinOrders drops groups with fewer orders (completed plus canceled)
	// than the threshold. Zero disables the filter.
	MinOrders int

	// NegativeOnly keeps only groups with negative profit.
	NegativeOnly bool

	// SortWorstFirst orders groups by ascending profit for diagnostic
	// views; the default is descending profit for summary views.
	SortWorstFirst bool
}

// Rollup groups reconciled orders by the given dimension and sums them
// into summary rows. Orders that do not resolve to a group key for the
// dimension (e.g. cross-market lanes under the market dimension) are
// skipped. An empty input yields an empty, non-nil slice.
func Rollup(orders []*domain.ReconciledOrder, dim domain.Dimension, opts RollupOptions) []domain.RollupRow {
	groups := make(map[string]*domain.RollupRow)

	for _, o := range orders {
		key, ok := groupKey(o, dim)
		if !ok {
			continue
		}

		row, exists := groups[key]
		if !exists {
			row = &domain.RollupRow{Dimension: dim, GroupKey: key}
			groups[key] = row
		}

		switch o.Status {
		case domain.StatusCanceled:
			row.CanceledOrders++
		default:
			row.CompletedOrders++
		}

		row.Revenue += o.Revenue
		row.Cost += o.Cost
		row.CrossdockCost += o.CrossdockCost
		row.TonuRevenue += o.TonuRevenue
		row.TonuCost += o.TonuCost
	}

	rows := make([]domain.RollupRow, 0, len(groups))
	for _, row := range groups {
		if opts.MinOrders > 0 && row.CompletedOrders+row.CanceledOrders < opts.MinOrders {
			continue
		}

		row.Profit = row.Revenue - row.Cost
		row.MarginPct = safePct(row.Profit, row.Revenue)
		row.CrossdockPct = safePct(row.CrossdockCost, row.Cost)

		if opts.NegativeOnly && row.Profit >= 0 {
			continue
		}

		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Profit != rows[j].Profit {
			if opts.SortWorstFirst {
				return rows[i].Profit < rows[j].Profit
			}
			return rows[i].Profit > rows[j].Profit
		}
		return rows[i].GroupKey < rows[j].GroupKey
	})

	return rows
}

// groupKey resolves an order's group key for a dimension. The second
// return is false when the order does not belong to any group.
func groupKey(o *domain.ReconciledOrder, dim domain.Dimension) (string, bool) {
	switch dim {
	case domain.DimensionLane:
		return o.Lane.Key(), true
	case domain.DimensionMarket:
		if !o.Lane.IsWithinMarket() {
			return "", false
		}
		return o.Lane.Start, true
	case domain.DimensionCustomer:
		return o.CustomerID, true
	case domain.DimensionCarrier:
		return o.CarrierID, true
	}
	return "", false
}

// safePct returns part/whole*100, or 0 when whole is 0.
func safePct(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
