package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Model invocation metrics
	modelInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_invocations_total",
			Help: "Total number of generative model invocations",
		},
		[]string{"model", "status"},
	)

	modelInvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_invocation_duration_seconds",
			Help:    "Duration of generative model invocations in seconds",
			Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"model"},
	)

	// Ledger metrics
	historyAppendConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "history_append_conflicts_total",
			Help: "Number of version conflicts observed while appending history entries",
		},
	)

	// Authentication metrics
	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"role", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		modelInvocationsTotal,
		modelInvocationDuration,
		historyAppendConflicts,
		authAttemptsTotal,
	)
}

// RecordHTTPRequest records metrics for an HTTP request
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordModelInvocation records metrics for one model invocation attempt
func RecordModelInvocation(model, status string, duration time.Duration) {
	modelInvocationsTotal.WithLabelValues(model, status).Inc()
	if status == "ok" || status == "failed" {
		modelInvocationDuration.WithLabelValues(model).Observe(duration.Seconds())
	}
}

// RecordAppendConflict records one version conflict on a history append
func RecordAppendConflict() {
	historyAppendConflicts.Inc()
}

// RecordAuthAttempt records one login attempt
func RecordAuthAttempt(role, status string) {
	authAttemptsTotal.WithLabelValues(role, status).Inc()
}

// Handler returns the prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
