// Package monitoring provides Prometheus metrics for the webpad backend.
//
// Collected metrics cover the HTTP surface (request counts, durations),
// the preview loop (runs, console events, discarded stale events), the
// persistence store (operations, errors), and WebSocket connections.
//
// Example Usage:
//
//	metrics := monitoring.NewMetrics()
//	router.Use(monitoring.Middleware(metrics))
//	metrics.PreviewRuns.Inc()
package monitoring
