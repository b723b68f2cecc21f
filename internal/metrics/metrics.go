package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quakewatch_feed_fetches_total",
			Help: "Total USGS feed fetch attempts by HTTP status (or 'error')",
		},
		[]string{"status"},
	)

	FeedFetchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quakewatch_feed_fetch_latency_seconds",
			Help:    "USGS feed fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	EventsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quakewatch_events_fetched_total",
			Help: "Total seismic events parsed from the feed",
		},
	)

	ViewComputations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quakewatch_view_computations_total",
			Help: "Total filter/aggregate recomputations",
		},
	)

	MarkerReconciles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quakewatch_marker_reconciles_total",
			Help: "Total marker layer reconciliations by result",
		},
		[]string{"result"},
	)
)
