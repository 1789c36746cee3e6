package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the coverage service.
type Metrics struct {
	// Ingestion metrics
	IngestBatches    *prometheus.CounterVec
	ValidationErrors prometheus.Counter
	ValidationWarns  prometheus.Counter

	// Computation metrics
	MetricsComputed *prometheus.CounterVec
	ComputeLatency  prometheus.Histogram

	// Snapshot history metrics
	SnapshotRowsWritten prometheus.Counter
	SnapshotWritesLost  prometheus.Counter
	SnapshotQueries     *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		IngestBatches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_batches_total",
				Help:      "Ingestion batches by outcome",
			},
			[]string{"status"}, // adopted, rejected, failed
		),
		ValidationErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_errors_total",
				Help:      "Blocking validation errors across all batches",
			},
		),
		ValidationWarns: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_warnings_total",
				Help:      "Advisory validation warnings across all batches",
			},
		),
		MetricsComputed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metrics_computations_total",
				Help:      "Metric computations by kind",
			},
			[]string{"kind"}, // events, drilldown, summary, deltas
		),
		ComputeLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compute_latency_seconds",
				Help:      "Metric computation latency in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
		SnapshotRowsWritten: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_rows_written_total",
				Help:      "Snapshot rows persisted to history",
			},
		),
		SnapshotWritesLost: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_writes_lost_total",
				Help:      "Snapshot batches dropped because the backing store failed",
			},
		),
		SnapshotQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_queries_total",
				Help:      "Closest-snapshot lookups by outcome",
			},
			[]string{"outcome"}, // hit, miss, error
		),
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by path and status",
			},
			[]string{"path", "status"},
		),
		HTTPLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_latency_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"path"},
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"path"},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordIngest records one ingestion batch outcome.
func (m *Metrics) RecordIngest(status string, hardErrors, warnings int) {
	m.IngestBatches.WithLabelValues(status).Inc()
	m.ValidationErrors.Add(float64(hardErrors))
	m.ValidationWarns.Add(float64(warnings))
}

// RecordCompute records one metric computation.
func (m *Metrics) RecordCompute(kind string, latency time.Duration) {
	m.MetricsComputed.WithLabelValues(kind).Inc()
	m.ComputeLatency.Observe(latency.Seconds())
}

// RecordSnapshotWrite records a snapshot write outcome.
func (m *Metrics) RecordSnapshotWrite(rows int, lost bool) {
	if lost {
		m.SnapshotWritesLost.Inc()
		return
	}
	m.SnapshotRowsWritten.Add(float64(rows))
}

// RecordSnapshotQuery records a closest-snapshot lookup outcome.
func (m *Metrics) RecordSnapshotQuery(outcome string) {
	m.SnapshotQueries.WithLabelValues(outcome).Inc()
}

// RecordHTTP records one served request.
func (m *Metrics) RecordHTTP(path, status string, latency time.Duration) {
	m.HTTPRequests.WithLabelValues(path, status).Inc()
	m.HTTPLatency.WithLabelValues(path).Observe(latency.Seconds())
}

// RecordRateLimitHit records a rate limit rejection.
func (m *Metrics) RecordRateLimitHit(path string) {
	m.RateLimitHits.WithLabelValues(path).Inc()
}
