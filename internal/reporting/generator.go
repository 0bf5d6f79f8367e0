package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"laneprofit/internal/cache"
	"laneprofit/internal/domain"
	"laneprofit/internal/observability"
	"laneprofit/internal/reconcile"
	"laneprofit/internal/storage"
)

// Generator produces profitability reports from stored shipment events.
type Generator struct {
	events storage.ShipmentEventStore
	engine *reconcile.Engine
	cache  cache.RollupCache // optional rollup memoization
	now    func() time.Time  // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(events storage.ShipmentEventStore, engine *reconcile.Engine) *Generator {
	return &Generator{
		events: events,
		engine: engine,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithCache enables rollup memoization through the given cache.
func (g *Generator) WithCache(c cache.RollupCache) *Generator {
	g.cache = c
	return g
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Orders fetches, aggregates and reconciles every order matching the filter.
// An empty result set returns empty slices, not an error.
func (g *Generator) Orders(ctx context.Context, filter storage.EventFilter) ([]*domain.ReconciledOrder, *reconcile.QualityReport, error) {
	events, err := g.events.GetByFilter(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch shipment events: %w", err)
	}

	metrics, quality := reconcile.BuildOrderMetrics(events)
	orders := g.engine.ReconcileAll(metrics)

	observability.RecordOrdersReconciled(len(orders))
	for _, o := range orders {
		observability.RecordRuleApplied("revenue", o.RevenueRule)
		observability.RecordRuleApplied("cost", o.CostRule)
	}
	for i := 0; i < quality.MissingPrimaryOrders(); i++ {
		observability.RecordQualityFlag("missing_primary")
	}
	for i := 0; i < quality.MultiPrimaryOrders(); i++ {
		observability.RecordQualityFlag("multi_primary")
	}

	return orders, quality, nil
}

// Rollup returns the rollup snapshot for the query, reusing a memoized
// result when the cache holds one for the identical query.
func (g *Generator) Rollup(ctx context.Context, filter storage.EventFilter, dim domain.Dimension, opts reconcile.RollupOptions) (*domain.RollupSnapshot, error) {
	key := rollupCacheKey(filter, dim, opts)

	if g.cache != nil {
		if snap, err := g.cache.Get(ctx, key); err == nil {
			observability.RecordCacheHit()
			return snap, nil
		}
		observability.RecordCacheMiss()
	}

	orders, _, err := g.Orders(ctx, filter)
	if err != nil {
		return nil, err
	}

	snap := g.computeRollup(orders, dim, opts)
	if g.cache != nil {
		_ = g.cache.Set(ctx, key, snap)
	}
	return snap, nil
}

// Generate produces a complete report for the query.
func (g *Generator) Generate(ctx context.Context, filter storage.EventFilter, dim domain.Dimension, opts reconcile.RollupOptions) (*Report, error) {
	orders, quality, err := g.Orders(ctx, filter)
	if err != nil {
		return nil, err
	}

	snap := g.computeRollup(orders, dim, opts)
	if g.cache != nil {
		_ = g.cache.Set(ctx, rollupCacheKey(filter, dim, opts), snap)
	}

	return &Report{
		GeneratedAt: g.now(),
		Dimension:   dim,
		WindowStart: filter.Start,
		WindowEnd:   filter.End,
		Totals:      buildTotals(orders),
		Quality:     buildQuality(quality),
		Rollup:      snap.Rows,
		Details:     buildDetails(orders),
	}, nil
}

// computeRollup runs the rollup and wraps the rows in a snapshot.
func (g *Generator) computeRollup(orders []*domain.ReconciledOrder, dim domain.Dimension, opts reconcile.RollupOptions) *domain.RollupSnapshot {
	started := time.Now()
	rows := reconcile.Rollup(orders, dim, opts)
	observability.RecordRollup(string(dim), len(rows), time.Since(started).Seconds())

	return &domain.RollupSnapshot{
		GeneratedAt: g.now().UnixMilli(),
		Dimension:   dim,
		Rows:        rows,
	}
}

// rollupCacheKey extends the filter key with the rollup options so every
// distinct query memoizes separately.
func rollupCacheKey(filter storage.EventFilter, dim domain.Dimension, opts reconcile.RollupOptions) string {
	return cache.Key(filter, dim) + fmt.Sprintf("|min=%d|neg=%t|worst=%t",
		opts.MinOrders, opts.NegativeOnly, opts.SortWorstFirst)
}

// buildTotals sums every reconciled order into the report totals.
func buildTotals(orders []*domain.ReconciledOrder) Totals {
	var t Totals
	for _, o := range orders {
		if o.Status == domain.StatusCanceled {
			t.CanceledOrders++
		} else {
			t.CompletedOrders++
		}
		t.Revenue += o.Revenue
		t.Cost += o.Cost
		t.CrossdockCost += o.CrossdockCost
		t.TonuRevenue += o.TonuRevenue
		t.TonuCost += o.TonuCost
	}

	t.Profit = t.Revenue - t.Cost
	t.MarginPct = pct(t.Profit, t.Revenue)
	t.CrossdockPct = pct(t.CrossdockCost, t.Cost)
	t.TonuProfit = t.TonuRevenue - t.TonuCost
	t.TonuCostSharePct = pct(t.TonuCost, t.Cost)
	return t
}

// buildQuality flattens the quality report into the rendered section.
func buildQuality(q *reconcile.QualityReport) QualitySection {
	missing := q.MissingPrimaryOrders()
	multi := q.MultiPrimaryOrders()

	return QualitySection{
		MissingPrimaryCount: missing,
		MultiPrimaryCount:   multi,
		Messages:            q.Errors(),
		Clean:               missing == 0 && multi == 0,
	}
}

// buildDetails builds the drill-down rows, worst profit first.
func buildDetails(orders []*domain.ReconciledOrder) []DetailRow {
	rows := make([]DetailRow, len(orders))
	for i, o := range orders {
		rows[i] = DetailRow{
			OrderID:       o.OrderID,
			Status:        o.Status,
			Category:      o.Category,
			Lane:          o.Lane.Key(),
			CustomerID:    o.CustomerID,
			CarrierID:     o.CarrierID,
			Revenue:       o.Revenue,
			Cost:          o.Cost,
			Profit:        o.Profit(),
			CrossdockCost: o.CrossdockCost,
			RevenueRule:   o.RevenueRule,
			CostRule:      o.CostRule,
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Profit != rows[j].Profit {
			return rows[i].Profit < rows[j].Profit
		}
		return rows[i].OrderID < rows[j].OrderID
	})

	return rows
}

// pct returns part/whole as a percentage, 0 when whole is 0.
func pct(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
