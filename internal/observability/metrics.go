// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingest metrics
	EventsInserted prometheus.Counter
	InsertErrors   prometheus.Counter

	// Reconciliation metrics
	OrdersReconciled prometheus.Counter
	RulesApplied     *prometheus.CounterVec
	QualityFlags     *prometheus.CounterVec

	// Rollup metrics
	RollupRowsEmitted *prometheus.CounterVec
	RollupDuration    *prometheus.HistogramVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Report metrics
	ReportRunsTotal prometheus.Counter
	ReportErrors    prometheus.Counter
	ReportDuration  prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulReport prometheus.Gauge
	UptimeSeconds        prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "laneprofit"
	}

	return &Metrics{
		EventsInserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_inserted_total",
			Help:      "Total number of shipment events inserted",
		}),
		InsertErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "insert_errors_total",
			Help:      "Total number of failed event inserts",
		}),

		OrdersReconciled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "orders_reconciled_total",
			Help:      "Total number of orders run through the reconciliation rules",
		}),
		RulesApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "rules_applied_total",
			Help:      "Total number of rule applications by side and rule",
		}, []string{"side", "rule"}),
		QualityFlags: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "quality_flags_total",
			Help:      "Total number of data quality findings by kind",
		}, []string{"kind"}),

		RollupRowsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rollup",
			Name:      "rows_emitted_total",
			Help:      "Total number of rollup rows emitted by dimension",
		}, []string{"dimension"}),
		RollupDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rollup",
			Name:      "duration_seconds",
			Help:      "Rollup computation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"dimension"}),

		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of rollup cache lookups by result",
		}, []string{"result"}),

		ReportRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "runs_total",
			Help:      "Total number of report runs",
		}),
		ReportErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "errors_total",
			Help:      "Total number of failed report runs",
		}),
		ReportDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "duration_seconds",
			Help:      "Report generation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulReport: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_report_timestamp",
			Help:      "Unix timestamp of last successful report run",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventsInserted adds to the inserted events counter.
func RecordEventsInserted(n int) {
	DefaultMetrics.EventsInserted.Add(float64(n))
}

// RecordInsertError increments the insert error counter.
func RecordInsertError() {
	DefaultMetrics.InsertErrors.Inc()
}

// RecordOrdersReconciled adds to the reconciled orders counter.
func RecordOrdersReconciled(n int) {
	DefaultMetrics.OrdersReconciled.Add(float64(n))
}

// RecordRuleApplied records one rule application on a side ("revenue" or "cost").
func RecordRuleApplied(side, rule string) {
	DefaultMetrics.RulesApplied.WithLabelValues(side, rule).Inc()
}

// RecordQualityFlag records a data quality finding by kind.
func RecordQualityFlag(kind string) {
	DefaultMetrics.QualityFlags.WithLabelValues(kind).Inc()
}

// RecordRollup records rollup output size and duration for a dimension.
func RecordRollup(dimension string, rows int, seconds float64) {
	DefaultMetrics.RollupRowsEmitted.WithLabelValues(dimension).Add(float64(rows))
	DefaultMetrics.RollupDuration.WithLabelValues(dimension).Observe(seconds)
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	DefaultMetrics.CacheLookups.WithLabelValues("hit").Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	DefaultMetrics.CacheLookups.WithLabelValues("miss").Inc()
}

// RecordReportRun records a report run and its duration.
func RecordReportRun(seconds float64, err error) {
	DefaultMetrics.ReportRunsTotal.Inc()
	DefaultMetrics.ReportDuration.Observe(seconds)
	if err != nil {
		DefaultMetrics.ReportErrors.Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordReportSuccess stamps the last successful report gauge.
func RecordReportSuccess(unixSeconds float64) {
	DefaultMetrics.LastSuccessfulReport.Set(unixSeconds)
}

// TrackUptime increments the uptime counter once per second until the
// context is canceled.
func TrackUptime(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			DefaultMetrics.UptimeSeconds.Inc()
		}
	}
}
