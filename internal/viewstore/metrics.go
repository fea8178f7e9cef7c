package viewstore

import "github.com/prometheus/client_golang/prometheus"

// refresh outcomes
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeTimeout = "timeout"
	outcomeSkipped = "skipped"
)

var (
	RefreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "insights",
			Name:      "view_refresh_duration_seconds",
			Help:      "Time taken to recompute and publish a view.",
			Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"view", "outcome"},
	)
	RefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "insights",
			Name:      "view_refresh_total",
			Help:      "Refresh attempts by outcome.",
		},
		[]string{"view", "outcome"},
	)
)

// gauges
var (
	OrphanedEvents = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "insights",
			Name:      "view_orphaned_events",
			Help:      "Events skipped by the last successful refresh for missing dimensions.",
		},
		[]string{"view"},
	)
	SnapshotAsOf = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "insights",
			Name:      "view_snapshot_as_of_seconds",
			Help:      "Unix time the published snapshot reflects.",
		},
		[]string{"view"},
	)
	SnapshotRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "insights",
			Name:      "view_snapshot_rows",
			Help:      "Rows in the published snapshot.",
		},
		[]string{"view"},
	)
)

func init() {
	prometheus.DefaultRegisterer.MustRegister(
		RefreshDuration,
		RefreshTotal,
		OrphanedEvents,
		SnapshotAsOf,
		SnapshotRows,
	)
}
