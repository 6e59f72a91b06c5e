// Package observability exposes Prometheus metrics for the pipeline and the
// HTTP delivery layer.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "descargo"

// Metrics holds every collector the application registers.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	fetchesTotal  *prometheus.CounterVec
	fetchDuration prometheus.Histogram

	segmentsProduced prometheus.Counter
	activeJobs       prometheus.Gauge
}

// New registers all collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status code.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		fetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Fetch pipeline outcomes.",
		}, []string{"status"}),
		fetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "End-to-end fetch pipeline latency.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		segmentsProduced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_produced_total",
			Help:      "Segments produced by the splitter.",
		}),
		activeJobs: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_jobs",
			Help:      "Fetch pipelines currently running.",
		}),
	}
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, took time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(took.Seconds())
}

// RecordFetch records one finished fetch pipeline.
func (m *Metrics) RecordFetch(status string, took time.Duration) {
	m.fetchesTotal.WithLabelValues(status).Inc()
	m.fetchDuration.Observe(took.Seconds())
}

// RecordSegments adds produced segments to the running total.
func (m *Metrics) RecordSegments(count int) {
	m.segmentsProduced.Add(float64(count))
}

// JobStarted marks one pipeline as running.
func (m *Metrics) JobStarted() { m.activeJobs.Inc() }

// JobFinished marks one pipeline as done.
func (m *Metrics) JobFinished() { m.activeJobs.Dec() }

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
