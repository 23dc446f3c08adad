// Package metrics provides Prometheus metrics for the OrgDesk server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgdesk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orgdesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Action layer metrics
	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgdesk_actions_total",
			Help: "Total multiplexed file actions dispatched",
		},
		[]string{"action", "status"},
	)

	// Drive service metrics
	driveOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orgdesk_drive_operation_duration_seconds",
			Help:    "Drive service operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	driveOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgdesk_drive_operations_total",
			Help: "Total drive service operations",
		},
		[]string{"operation", "status"},
	)

	// Auth metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgdesk_auth_attempts_total",
			Help: "Total authentication attempts",
		},
		[]string{"result"},
	)

	activeTokens = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orgdesk_active_tokens",
			Help: "Number of active (non-revoked) tokens",
		},
	)

	// Management record metrics
	recordOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgdesk_record_operations_total",
			Help: "Total management record operations",
		},
		[]string{"operation", "status"},
	)

	orphanPhotoDeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgdesk_photo_cleanup_total",
			Help: "Best-effort photo deletes attempted during record deletion",
		},
		[]string{"status"},
	)

	// Database metrics
	dbConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orgdesk_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAction records a dispatched file action.
func RecordAction(action string, success bool) {
	actionsTotal.WithLabelValues(action, statusLabel(success)).Inc()
}

// RecordDriveOperation records a drive service operation.
func RecordDriveOperation(operation string, duration time.Duration, success bool) {
	driveOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	driveOperationsTotal.WithLabelValues(operation, statusLabel(success)).Inc()
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// SetActiveTokens sets the number of active tokens.
func SetActiveTokens(count int64) {
	activeTokens.Set(float64(count))
}

// RecordRecordOperation records a management record operation.
func RecordRecordOperation(operation string, success bool) {
	recordOperationsTotal.WithLabelValues(operation, statusLabel(success)).Inc()
}

// RecordPhotoCleanup records a best-effort photo delete during record deletion.
func RecordPhotoCleanup(success bool) {
	orphanPhotoDeletesTotal.WithLabelValues(statusLabel(success)).Inc()
}

// SetDBConnectionsOpen sets the number of open database connections.
func SetDBConnectionsOpen(count int) {
	dbConnectionsOpen.Set(float64(count))
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}
