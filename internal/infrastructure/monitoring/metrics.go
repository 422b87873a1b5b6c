package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Preview metrics
	PreviewRuns     prometheus.Counter
	PreviewFailures prometheus.Counter

	// Console bridge metrics
	ConsoleEvents    *prometheus.CounterVec
	ConsoleDiscarded prometheus.Counter

	// Store metrics
	StoreOps    *prometheus.CounterVec
	StoreErrors *prometheus.CounterVec

	// Session metrics
	ProjectsSaved    prometheus.Counter
	SnapshotsCreated prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time
}

// NewMetrics creates a new metrics collector registered on the default
// Prometheus registry. Construct once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webpad_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webpad_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		PreviewRuns: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webpad_preview_runs_total",
				Help: "Total number of preview executions started",
			},
		),
		PreviewFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webpad_preview_failures_total",
				Help: "Total number of preview executions ending in an uncaught error",
			},
		),

		ConsoleEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webpad_console_events_total",
				Help: "Console bridge events accepted, by severity",
			},
			[]string{"level"},
		),
		ConsoleDiscarded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webpad_console_discarded_total",
				Help: "Console bridge events discarded due to stale channel",
			},
		),

		StoreOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webpad_store_operations_total",
				Help: "Persistence store operations",
			},
			[]string{"op"},
		),
		StoreErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webpad_store_errors_total",
				Help: "Persistence store errors",
			},
			[]string{"op"},
		),

		ProjectsSaved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webpad_projects_saved_total",
				Help: "Total number of project saves",
			},
		),
		SnapshotsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webpad_snapshots_created_total",
				Help: "Total number of version snapshots created",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "webpad_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webpad_ws_messages_total",
				Help: "WebSocket messages processed, by type",
			},
			[]string{"type"},
		),
	}
}

// RecordHTTPRequest records metrics for an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Uptime returns time since metrics initialization
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}
