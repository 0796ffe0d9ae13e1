package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costpilot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "costpilot",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// Detection metrics
	detectionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costpilot",
			Subsystem: "detection",
			Name:      "runs_total",
			Help:      "Total number of detection runs",
		},
		[]string{"status"},
	)

	detectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "costpilot",
			Subsystem: "detection",
			Name:      "run_duration_seconds",
			Help:      "Duration of a detection run in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	anomaliesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costpilot",
			Subsystem: "detection",
			Name:      "anomalies_total",
			Help:      "Total number of detected anomalies",
		},
		[]string{"issue_type"},
	)

	// Remediation metrics
	pipelineStagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costpilot",
			Subsystem: "remediation",
			Name:      "stages_total",
			Help:      "Total number of executed pipeline stages",
		},
		[]string{"stage", "status"},
	)

	pipelineAnomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costpilot",
			Subsystem: "remediation",
			Name:      "anomalies_total",
			Help:      "Total number of anomalies processed by the remediation pipeline",
		},
		[]string{"status"},
	)

	proposalsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "costpilot",
			Subsystem: "remediation",
			Name:      "proposals_total",
			Help:      "Total number of change proposals created",
		},
	)

	estimatedSavings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "costpilot",
			Subsystem: "remediation",
			Name:      "estimated_savings_usd",
			Help:      "Estimated monthly savings from the latest run in USD",
		},
	)

	// Provider metrics
	providerQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costpilot",
			Subsystem: "provider",
			Name:      "queries_total",
			Help:      "Total number of cost source queries",
		},
		[]string{"provider", "status"},
	)

	providerQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "costpilot",
			Subsystem: "provider",
			Name:      "query_duration_seconds",
			Help:      "Duration of cost source queries in seconds",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		// Get route pattern from chi
		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDetectionRun records a completed detection run
func RecordDetectionRun(status string, duration time.Duration) {
	detectionRunsTotal.WithLabelValues(status).Inc()
	detectionDuration.Observe(duration.Seconds())
}

// RecordAnomaly records a detected anomaly by issue type
func RecordAnomaly(issueType string) {
	anomaliesDetectedTotal.WithLabelValues(issueType).Inc()
}

// RecordPipelineStage records the outcome of one pipeline stage
func RecordPipelineStage(stage, status string) {
	pipelineStagesTotal.WithLabelValues(stage, status).Inc()
}

// RecordPipelineAnomaly records the terminal outcome of one anomaly
func RecordPipelineAnomaly(status string) {
	pipelineAnomaliesTotal.WithLabelValues(status).Inc()
}

// RecordProposalCreated records a created change proposal
func RecordProposalCreated() {
	proposalsCreatedTotal.Inc()
}

// SetEstimatedSavings sets the estimated savings gauge for the latest run
func SetEstimatedSavings(usd float64) {
	estimatedSavings.Set(usd)
}

// RecordProviderQuery records a cost source query
func RecordProviderQuery(provider, status string, duration time.Duration) {
	providerQueryTotal.WithLabelValues(provider, status).Inc()
	providerQueryDuration.WithLabelValues(provider).Observe(duration.Seconds())
}
