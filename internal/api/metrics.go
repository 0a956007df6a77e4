package api

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/org/authgate/internal/stats"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "authgate_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	statsSource atomic.Pointer[stats.Aggregator]
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, &statsCollector{})
}

// registerStatsSource points the engine metrics collector at agg. The
// collector itself is registered once; swapping the source keeps repeated
// server construction from tripping duplicate registration.
func registerStatsSource(agg *stats.Aggregator) {
	statsSource.Store(agg)
}

// MetricsHandler returns the Prometheus metrics HTTP handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// metricsMiddleware records request metrics.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rr := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rr, r)

		dur := time.Since(start).Seconds()
		status := strconv.Itoa(rr.statusCode)
		requestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		requestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(dur)
	})
}

// statsCollector exposes engine counters as Prometheus metrics.
type statsCollector struct{}

var (
	descAttemptsTotal = prometheus.NewDesc(
		"authgate_auth_attempts_total",
		"Authentication attempts by method and outcome.",
		[]string{"method", "outcome"}, nil)
	descDecisionsTotal = prometheus.NewDesc(
		"authgate_decisions_total",
		"Total method selection decisions computed.",
		nil, nil)
	descFallbacksTotal = prometheus.NewDesc(
		"authgate_fallbacks_total",
		"Total requests that fell back past the primary method.",
		nil, nil)
	descCacheHitsTotal = prometheus.NewDesc(
		"authgate_cache_hits_total",
		"Cache hits by cache name.",
		[]string{"cache"}, nil)
	descCacheMissesTotal = prometheus.NewDesc(
		"authgate_cache_misses_total",
		"Cache misses by cache name.",
		[]string{"cache"}, nil)
	descSecurityEventsTotal = prometheus.NewDesc(
		"authgate_security_events_total",
		"Security events by kind.",
		[]string{"kind"}, nil)
)

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descAttemptsTotal
	ch <- descDecisionsTotal
	ch <- descFallbacksTotal
	ch <- descCacheHitsTotal
	ch <- descCacheMissesTotal
	ch <- descSecurityEventsTotal
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	agg := statsSource.Load()
	if agg == nil {
		return
	}
	snap := agg.Snapshot()
	for method, ms := range snap.Methods {
		ch <- prometheus.MustNewConstMetric(descAttemptsTotal, prometheus.CounterValue,
			float64(ms.Successes), method, "success")
		ch <- prometheus.MustNewConstMetric(descAttemptsTotal, prometheus.CounterValue,
			float64(ms.Attempts-ms.Successes), method, "failure")
	}
	ch <- prometheus.MustNewConstMetric(descDecisionsTotal, prometheus.CounterValue,
		float64(snap.Decisions))
	ch <- prometheus.MustNewConstMetric(descFallbacksTotal, prometheus.CounterValue,
		float64(snap.Fallbacks))
	for name, cs := range snap.Caches {
		ch <- prometheus.MustNewConstMetric(descCacheHitsTotal, prometheus.CounterValue,
			float64(cs.Hits), name)
		ch <- prometheus.MustNewConstMetric(descCacheMissesTotal, prometheus.CounterValue,
			float64(cs.Misses), name)
	}
	for kind, n := range snap.Events {
		ch <- prometheus.MustNewConstMetric(descSecurityEventsTotal, prometheus.CounterValue,
			float64(n), kind)
	}
}
