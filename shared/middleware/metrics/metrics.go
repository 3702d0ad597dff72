// Package metrics provides Prometheus HTTP metrics middleware and board event counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	boardEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anonboard_events_total",
			Help: "Thread and reply operations by outcome",
		},
		[]string{"entity", "action", "outcome"},
	)
)

// Label values for RecordEvent
const (
	EntityThread = "thread"
	EntityReply  = "reply"

	ActionCreate = "create"
	ActionReport = "report"
	ActionDelete = "delete"

	OutcomeOK            = "ok"
	OutcomeNotFound      = "not_found"
	OutcomeWrongPassword = "wrong_password"
	OutcomeInvalid       = "invalid"
	OutcomeError         = "error"
	OutcomeGC            = "gc"
)

// RecordEvent counts one thread/reply operation.
func RecordEvent(entity, action, outcome string) {
	boardEventsTotal.WithLabelValues(entity, action, outcome).Inc()
}

// EventCounter exposes a single event series, mainly for assertions in tests.
func EventCounter(entity, action, outcome string) prometheus.Counter {
	return boardEventsTotal.WithLabelValues(entity, action, outcome)
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that records Prometheus metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := newResponseWriter(w)
		next.ServeHTTP(wrapped, r)

		// Use chi's route pattern if available to avoid high cardinality
		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}
