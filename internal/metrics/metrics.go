package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── HTTP request metrics (RED method) ──────────────────────────────────

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tokenflow",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tokenflow",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tokenflow",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being processed.",
	})
)

// ── Upstream fetch metrics ─────────────────────────────────────────────

var (
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tokenflow",
		Subsystem: "fetch",
		Name:      "total",
		Help:      "Total number of upstream fetch attempts per data type.",
	}, []string{"data_type", "status"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tokenflow",
		Subsystem: "fetch",
		Name:      "duration_seconds",
		Help:      "Duration of upstream fetch per data type in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"data_type"})

	FetchLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tokenflow",
		Subsystem: "fetch",
		Name:      "last_success_timestamp",
		Help:      "Unix timestamp of the last successful fetch per data type.",
	}, []string{"data_type"})
)

// ── Cache metrics ──────────────────────────────────────────────────────

var (
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tokenflow",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits per data type.",
	}, []string{"data_type"})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tokenflow",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses (absent or stale) per data type.",
	}, []string{"data_type"})

	CacheStoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tokenflow",
		Subsystem: "cache",
		Name:      "store_errors_total",
		Help:      "Total cache backend errors per operation.",
	}, []string{"operation"})

	CacheEntryAge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tokenflow",
		Subsystem: "cache",
		Name:      "entry_age_seconds",
		Help:      "Age of the most recently served cache entry per data type.",
	}, []string{"data_type"})
)
