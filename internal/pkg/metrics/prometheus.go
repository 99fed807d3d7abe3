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
			Namespace: "spendlens",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spendlens",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// Pipeline metrics
	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spendlens",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of analysis pipeline runs",
		},
		[]string{"provider", "status"},
	)

	pipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spendlens",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of analysis pipeline runs in seconds",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"provider"},
	)

	// Provider fetch metrics
	providerFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spendlens",
			Subsystem: "provider",
			Name:      "fetch_total",
			Help:      "Total number of provider fetches by outcome",
		},
		[]string{"provider", "outcome"},
	)

	normalizeWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spendlens",
			Subsystem: "normalize",
			Name:      "warnings_total",
			Help:      "Raw records dropped during normalization",
		},
		[]string{"provider"},
	)

	anomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spendlens",
			Subsystem: "analytics",
			Name:      "anomalies_total",
			Help:      "Anomalies flagged on trend series",
		},
		[]string{"provider", "severity"},
	)

	snapshotWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spendlens",
			Subsystem: "snapshot",
			Name:      "writes_total",
			Help:      "Snapshot store writes by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordPipelineRun records one analyze/aggregate run.
func RecordPipelineRun(provider, status string, duration time.Duration) {
	pipelineRunsTotal.WithLabelValues(provider, status).Inc()
	pipelineDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordProviderFetch records one upstream fetch outcome ("ok" or an error kind).
func RecordProviderFetch(provider, outcome string) {
	providerFetchTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordNormalizeWarnings adds dropped-record counts for a provider.
func RecordNormalizeWarnings(provider string, n int) {
	if n > 0 {
		normalizeWarningsTotal.WithLabelValues(provider).Add(float64(n))
	}
}

// RecordAnomaly counts one flagged anomaly.
func RecordAnomaly(provider, severity string) {
	anomaliesDetected.WithLabelValues(provider, severity).Inc()
}

// RecordSnapshotWrite counts one snapshot save attempt.
func RecordSnapshotWrite(outcome string) {
	snapshotWritesTotal.WithLabelValues(outcome).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware instruments HTTP requests with count and duration.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := strconv.Itoa(ww.status)
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
