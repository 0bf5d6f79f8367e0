package reporting

import (
	"fmt"
	"strings"

	"laneprofit/internal/domain"
)

// RenderRollupCSV renders rollup rows as a CSV string.
func RenderRollupCSV(rows []domain.RollupRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("dimension,group_key,completed_orders,canceled_orders,")
	sb.WriteString("revenue,cost,profit,margin_pct,")
	sb.WriteString("crossdock_cost,crossdock_pct,tonu_revenue,tonu_cost\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f\n",
			r.Dimension,
			csvField(r.GroupKey),
			r.CompletedOrders,
			r.CanceledOrders,
			r.Revenue,
			r.Cost,
			r.Profit,
			r.MarginPct,
			r.CrossdockCost,
			r.CrossdockPct,
			r.TonuRevenue,
			r.TonuCost,
		))
	}

	return sb.String()
}

// RenderDetailCSV renders the per-order drill-down rows as a CSV string.
func RenderDetailCSV(details []DetailRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("order_id,status,category,lane,customer_id,carrier_id,")
	sb.WriteString("revenue,cost,profit,crossdock_cost,revenue_rule,cost_rule\n")

	// Rows
	for _, d := range details {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%.2f,%.2f,%.2f,%.2f,%s,%s\n",
			csvField(d.OrderID),
			d.Status,
			csvField(string(d.Category)),
			csvField(d.Lane),
			csvField(d.CustomerID),
			csvField(d.CarrierID),
			d.Revenue,
			d.Cost,
			d.Profit,
			d.CrossdockCost,
			d.RevenueRule,
			d.CostRule,
		))
	}

	return sb.String()
}

// csvField quotes a value when it contains a comma or a quote.
func csvField(v string) string {
	if strings.ContainsAny(v, ",\"\n") {
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return v
}
