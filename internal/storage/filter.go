package storage

import (
	"sort"
	"strconv"
	"strings"

	"laneprofit/internal/domain"
)

// EventFilter is the typed query predicate for shipment events. All
// values bind as query parameters in SQL backends; filter values are
// never interpolated into query text.
type EventFilter struct {
	// Start and End bound the resolved delivery timestamp, inclusive,
	// in Unix ms. Zero values leave the bound open.
	Start int64
	End   int64

	// Categories restricts legs to the given shipment categories.
	// Empty means all categories.
	Categories []domain.Category

	// Customers restricts legs to the given customer IDs. Empty means all.
	Customers []string

	// ExcludeCustomers drops legs belonging to the given customer IDs.
	ExcludeCustomers []string

	// Lanes restricts results to orders whose primary leg matches one
	// of the given lane keys (e.g. "DFW → ATL"). Empty means all.
	Lanes []string

	// IncludeCanceled additionally returns canceled legs of orders that
	// have at least one cross-dock leg. Completed legs are always
	// returned; removed legs never are.
	IncludeCanceled bool

	// RequireMarkets drops orders whose primary leg is missing either
	// market endpoint. Used by within-market analysis.
	RequireMarkets bool
}

// Key returns a deterministic string form of the filter, suitable as a
// memoization cache key. Slice order does not affect the key.
func (f EventFilter) Key() string {
	var sb strings.Builder

	sb.WriteString("s=")
	sb.WriteString(strconv.FormatInt(f.Start, 10))
	sb.WriteString("|e=")
	sb.WriteString(strconv.FormatInt(f.End, 10))

	cats := make([]string, len(f.Categories))
	for i, c := range f.Categories {
		cats[i] = string(c)
	}
	writeSorted(&sb, "cat", cats)
	writeSorted(&sb, "cust", f.Customers)
	writeSorted(&sb, "xcust", f.ExcludeCustomers)
	writeSorted(&sb, "lane", f.Lanes)

	sb.WriteString("|canceled=")
	sb.WriteString(strconv.FormatBool(f.IncludeCanceled))
	sb.WriteString("|markets=")
	sb.WriteString(strconv.FormatBool(f.RequireMarkets))

	return sb.String()
}

func writeSorted(sb *strings.Builder, label string, values []string) {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)

	sb.WriteString("|")
	sb.WriteString(label)
	sb.WriteString("=")
	sb.WriteString(strings.Join(sorted, ","))
}
