package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// panel analytics service.
type Metrics struct {
	// Recompute metrics, labeled by query kind: enrich, compare, rank.
	RecomputeTotal    *prometheus.CounterVec
	RecomputeDuration *prometheus.HistogramVec

	// Memoization metrics. labels: result={hit,miss}
	CacheLookups *prometheus.CounterVec

	// Dataset snapshot metrics.
	SnapshotRecords     prometheus.Gauge
	SnapshotRefreshes   prometheus.Counter
	SnapshotRejected    prometheus.Counter
	SnapshotParseErrors prometheus.Counter

	// RefreshRunning is 1 while the snapshot refresh consumer loop is active.
	RefreshRunning prometheus.Gauge

	// Alert counts for the latest month at the default threshold,
	// labeled by level.
	ActiveAlerts *prometheus.GaugeVec
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RecomputeTotal,
		m.RecomputeDuration,
		m.CacheLookups,
		m.SnapshotRecords,
		m.SnapshotRefreshes,
		m.SnapshotRejected,
		m.SnapshotParseErrors,
		m.RefreshRunning,
		m.ActiveAlerts,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecomputeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "theft_panel",
			Name:      "recompute_total",
			Help:      "Engine recomputations by query kind.",
		}, []string{"query"}),
		RecomputeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "theft_panel",
			Name:      "recompute_duration_seconds",
			Help:      "Duration of a full engine recomputation.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"query"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "theft_panel",
			Name:      "cache_lookups_total",
			Help:      "Enrichment cache lookups by result.",
		}, []string{"result"}),
		SnapshotRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "theft_panel",
			Name:      "snapshot_records",
			Help:      "Panel records in the current dataset snapshot.",
		}),
		SnapshotRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "theft_panel",
			Name:      "snapshot_refreshes_total",
			Help:      "Dataset snapshots applied to the store.",
		}),
		SnapshotRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "theft_panel",
			Name:      "snapshot_rejected_total",
			Help:      "Dataset snapshots rejected as staler than the current one.",
		}),
		SnapshotParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "theft_panel",
			Name:      "snapshot_parse_errors_total",
			Help:      "Refresh messages that failed snapshot validation.",
		}),
		RefreshRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "theft_panel",
			Name:      "refresh_running",
			Help:      "Whether the snapshot refresh consumer is running (1) or not (0).",
		}),
		ActiveAlerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "theft_panel",
			Name:      "active_alerts",
			Help:      "Areas per alert level in the latest month at the default threshold.",
		}, []string{"level"}),
	}
}
