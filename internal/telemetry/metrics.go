// Package telemetry provides observability primitives for the pendla service.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ActiveRequests   prometheus.Gauge
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	RefreshErrors    *prometheus.CounterVec
	SearchIterations prometheus.Histogram
	SearchTrips      prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pendla",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "pendla",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pendla",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "pendla",
			Name:                            "upstream_duration_seconds",
			Help:                            "Upstream service call duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"service"}),

		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pendla",
			Name:      "upstream_errors_total",
			Help:      "Total upstream service errors.",
		}, []string{"service"}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pendla",
			Name:      "cache_hits_total",
			Help:      "Cache reads answered from a fresh entry.",
		}, []string{"key_type"}),

		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pendla",
			Name:      "cache_misses_total",
			Help:      "Cache reads that needed an upstream sync (absent or stale).",
		}, []string{"key_type"}),

		RefreshErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pendla",
			Name:      "cache_refresh_errors_total",
			Help:      "Upstream fetches that failed during a cache refresh.",
		}, []string{"key_type"}),

		SearchIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pendla",
			Name:      "trip_search_iterations",
			Help:      "Planner queries issued per trip search.",
			Buckets:   prometheus.LinearBuckets(1, 1, 15),
		}),

		SearchTrips: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pendla",
			Name:      "trip_search_results",
			Help:      "Itineraries returned per trip search after dedup.",
			Buckets:   prometheus.LinearBuckets(0, 5, 13),
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.UpstreamDuration,
		m.UpstreamErrors,
		m.CacheHits,
		m.CacheMisses,
		m.RefreshErrors,
		m.SearchIterations,
		m.SearchTrips,
	)
	return m
}
