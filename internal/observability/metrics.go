package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeMalformed = "malformed"
	OutcomeTimeout   = "timeout"
)

var (
	// UpstreamRequests counts calls to external APIs by upstream and outcome.
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of upstream API calls.",
		},
		[]string{"upstream", "outcome"},
	)

	// UpstreamLatency records upstream call duration in seconds.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of upstream API calls in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream"},
	)

	// CacheLookups counts edge cache lookups by result (hit|miss|error).
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_cache_lookups_total",
			Help: "Total number of edge cache lookups.",
		},
		[]string{"result"},
	)

	// HTTPRequests counts served requests by method, route and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration records request duration in seconds. Status is left out
	// to keep histogram cardinality low.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// HTTPInflight gauges requests currently being served.
	HTTPInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// HTTPResponseSize captures response sizes in bytes. Feed payloads are
	// the largest the gateway sends, a few KiB.
	HTTPResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes.",
			Buckets: []float64{64, 256, 1 << 10, 4 << 10, 16 << 10, 64 << 10, 256 << 10},
		},
		[]string{"method", "path"},
	)

	// RateLimitRejections counts requests refused by a limiter.
	RateLimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_rejections_total",
			Help: "Total number of requests rejected by a rate limiter.",
		},
		[]string{"limiter"},
	)
)

func init() {
	prometheus.MustRegister(
		UpstreamRequests, UpstreamLatency, CacheLookups, RateLimitRejections,
		HTTPRequests, HTTPDuration, HTTPInflight, HTTPResponseSize,
	)
}

// ObserveUpstream records one upstream call.
func ObserveUpstream(upstream, outcome string, seconds float64) {
	UpstreamRequests.WithLabelValues(upstream, outcome).Inc()
	UpstreamLatency.WithLabelValues(upstream).Observe(seconds)
}

// ObserveHTTP records one served request. size < 0 means no body was written
// and is not observed.
func ObserveHTTP(method, path string, status int, seconds float64, size int) {
	HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, path).Observe(seconds)
	if size >= 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
	}
}
