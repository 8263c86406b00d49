package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "discovery"

// Search Prometheus metrics.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Provider search duration in seconds, cache lookups included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"status"},
	)

	SearchResultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_results_total",
			Help:      "Total providers returned by searches",
		},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_total",
			Help:      "Search cache lookups by result",
		},
		[]string{"result"}, // "hit" / "miss" / "shared" / "store_error"
	)

	IndexEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_entries",
			Help:      "Number of provider entries stored in the search index",
		},
	)
)

// Projection Prometheus metrics.
var (
	ProjectionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_events_total",
			Help:      "Provider lifecycle events handled by the index projector",
		},
		[]string{"kind", "status"},
	)

	ProjectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "projection_duration_seconds",
			Help:      "Index projection duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"kind"},
	)
)

var discoveryMetricsRegistered bool

// RegisterDiscoveryMetrics registers search, cache and projection metrics. Must be called once from main.
func RegisterDiscoveryMetrics() {
	if discoveryMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchResultsTotal)
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(IndexEntries)
	prometheus.MustRegister(ProjectionEventsTotal)
	prometheus.MustRegister(ProjectionDuration)
	discoveryMetricsRegistered = true
}
