package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/recall-go/internal/rag"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// Pipeline outcome label values.
const (
	outcomeOK        = "ok"
	outcomeTimeout   = "timeout"
	outcomeNoContext = "no_context"
	outcomeError     = "error"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// pipelineRequestsTotal counts completed upload, prompt and quiz
	// requests, partitioned by op and outcome.
	pipelineRequestsTotal *prometheus.CounterVec

	// pipelineDurationSeconds records the wall-clock duration of each
	// pipeline operation.
	pipelineDurationSeconds *prometheus.HistogramVec

	// indexPassages is the number of passages in the corpus after the most
	// recent upload, or as read at startup.
	indexPassages prometheus.Gauge

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, path pattern, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) registers into the provided
// registry rather than the global default, keeping unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		pipelineRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Total number of pipeline operations completed, partitioned by op and outcome.",
		}, []string{"op", "outcome"}),

		pipelineDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recall",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of upload, prompt and quiz operations.",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"op"}),

		indexPassages: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "recall",
			Subsystem: "index",
			Name:      "passages",
			Help:      "Number of passages currently indexed.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recall",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recall",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// observe records one pipeline operation.
func (m *serverMetrics) observe(op string, start time.Time, err error) {
	m.pipelineRequestsTotal.WithLabelValues(op, outcomeOf(err)).Inc()
	m.pipelineDurationSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// outcomeOf maps a pipeline error to its outcome label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, rag.ErrServiceTimeout), errors.Is(err, context.DeadlineExceeded):
		return outcomeTimeout
	case errors.Is(err, rag.ErrEmptyCorpus):
		return outcomeNoContext
	default:
		return outcomeError
	}
}

// instrument wraps next so every request is counted and timed under the
// given handler name.
func (m *serverMetrics) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw, ok := w.(*responseWriter)
		if !ok {
			rw = &responseWriter{ResponseWriter: w, status: http.StatusOK}
		}
		start := time.Now()
		next.ServeHTTP(rw, r)
		m.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		m.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
	})
}
