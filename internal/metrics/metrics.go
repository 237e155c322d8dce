// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ingestPagesTotal           *prometheus.CounterVec
	ingestPapersTotal          *prometheus.CounterVec
	ingestSourceRunsTotal      *prometheus.CounterVec
	ingestFetchDurationSeconds *prometheus.HistogramVec
	ingestActiveSources        prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ingestPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papercrawler_pages_total",
				Help: "Total number of listing pages fetched, labeled by source.",
			},
			[]string{"source"},
		)

		ingestPapersTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papercrawler_papers_total",
				Help: "Total number of papers merged, labeled by source and disposition.",
			},
			[]string{"source", "disposition"},
		)

		ingestSourceRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papercrawler_source_runs_total",
				Help: "Total number of per-source ingest runs, labeled by source, method and status.",
			},
			[]string{"source", "method", "status"},
		)

		ingestFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "papercrawler_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by source.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"source"},
		)

		ingestActiveSources = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "papercrawler_active_sources",
				Help: "Number of sources currently being ingested.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePages adds fetched pages for a source.
func ObservePages(source string, pages int) {
	if pages > 0 {
		ingestPagesTotal.WithLabelValues(source).Add(float64(pages))
	}
}

// ObserveMerge records merge dispositions for a source.
func ObserveMerge(source string, inserted, skipped int) {
	if inserted > 0 {
		ingestPapersTotal.WithLabelValues(source, "inserted").Add(float64(inserted))
	}
	if skipped > 0 {
		ingestPapersTotal.WithLabelValues(source, "skipped").Add(float64(skipped))
	}
}

// ObserveSourceRun increments the per-source run counter.
func ObserveSourceRun(source, method, status string) {
	ingestSourceRunsTotal.WithLabelValues(source, method, status).Inc()
}

// ObserveFetchDuration records one page fetch latency.
func ObserveFetchDuration(source string, duration time.Duration) {
	ingestFetchDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// IncActiveSources increments the active sources gauge.
func IncActiveSources() {
	ingestActiveSources.Inc()
}

// DecActiveSources decrements the active sources gauge.
func DecActiveSources() {
	ingestActiveSources.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
