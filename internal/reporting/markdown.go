package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Profitability Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Dimension: %s\n\n", r.Dimension))
	if r.WindowStart != 0 || r.WindowEnd != 0 {
		sb.WriteString(fmt.Sprintf("Window (ms): %d to %d\n\n", r.WindowStart, r.WindowEnd))
	}

	// Totals
	sb.WriteString("## Totals\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Completed Orders | %d |\n", r.Totals.CompletedOrders))
	sb.WriteString(fmt.Sprintf("| Canceled Orders | %d |\n", r.Totals.CanceledOrders))
	sb.WriteString(fmt.Sprintf("| Revenue | %.2f |\n", r.Totals.Revenue))
	sb.WriteString(fmt.Sprintf("| Cost | %.2f |\n", r.Totals.Cost))
	sb.WriteString(fmt.Sprintf("| Profit | %.2f |\n", r.Totals.Profit))
	sb.WriteString(fmt.Sprintf("| Margin %% | %.2f |\n", r.Totals.MarginPct))
	sb.WriteString(fmt.Sprintf("| Cross-dock Cost | %.2f |\n", r.Totals.CrossdockCost))
	sb.WriteString(fmt.Sprintf("| Cross-dock %% of Cost | %.2f |\n", r.Totals.CrossdockPct))
	sb.WriteString(fmt.Sprintf("| TONU Revenue | %.2f |\n", r.Totals.TonuRevenue))
	sb.WriteString(fmt.Sprintf("| TONU Cost | %.2f |\n", r.Totals.TonuCost))
	sb.WriteString(fmt.Sprintf("| TONU Profit | %.2f |\n", r.Totals.TonuProfit))
	sb.WriteString(fmt.Sprintf("| TONU %% of Cost | %.2f |\n", r.Totals.TonuCostSharePct))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if r.Quality.Clean {
		sb.WriteString("No leg structure problems found.\n\n")
	} else {
		if r.Quality.MissingPrimaryCount > 0 {
			sb.WriteString(fmt.Sprintf("**Warning:** %d order(s) have no primary leg and report under the NA lane.\n\n",
				r.Quality.MissingPrimaryCount))
		}
		if r.Quality.MultiPrimaryCount > 0 {
			sb.WriteString(fmt.Sprintf("**Warning:** %d order(s) carry more than one primary leg.\n\n",
				r.Quality.MultiPrimaryCount))
		}
		for _, msg := range r.Quality.Messages {
			sb.WriteString(fmt.Sprintf("- %s\n", msg))
		}
		sb.WriteString("\n")
	}

	// Rollup
	sb.WriteString(fmt.Sprintf("## Profitability by %s\n\n", r.Dimension))
	if len(r.Rollup) > 0 {
		sb.WriteString("| Group | Completed | Canceled | Revenue | Cost | Profit | Margin% | XDock Cost | XDock% | TONU Rev | TONU Cost |\n")
		sb.WriteString("|-------|-----------|----------|---------|------|--------|---------|------------|--------|----------|----------|\n")
		for _, row := range r.Rollup {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f |\n",
				row.GroupKey, row.CompletedOrders, row.CanceledOrders,
				row.Revenue, row.Cost, row.Profit, row.MarginPct,
				row.CrossdockCost, row.CrossdockPct, row.TonuRevenue, row.TonuCost))
		}
	} else {
		sb.WriteString("No orders matched the query.\n")
	}
	sb.WriteString("\n")

	// Worst performers
	sb.WriteString("## Worst Orders\n\n")
	if len(r.Details) > 0 {
		sb.WriteString("| Order | Status | Category | Lane | Revenue | Cost | Profit | Revenue Rule | Cost Rule |\n")
		sb.WriteString("|-------|--------|----------|------|---------|------|--------|--------------|----------|\n")
		limit := len(r.Details)
		if limit > 20 {
			limit = 20
		}
		for _, d := range r.Details[:limit] {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f | %.2f | %.2f | %s | %s |\n",
				d.OrderID, d.Status, d.Category, d.Lane,
				d.Revenue, d.Cost, d.Profit, d.RevenueRule, d.CostRule))
		}
	} else {
		sb.WriteString("No order details available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
