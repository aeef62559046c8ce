package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/recall-go/internal/assistant"
	"github.com/54b3r/recall-go/internal/generate"
	"github.com/54b3r/recall-go/internal/ingestion"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// cover a full quiz generation.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on the pipeline
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all /api/* pipeline routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// CORSOrigins lists browser origins allowed to call the API. "*" allows any.
	CORSOrigins []string
	// MaxUploadBytes caps the multipart upload size (default: 32 MiB).
	MaxUploadBytes int64
	// Corpus, if set, feeds the recall_index_passages gauge.
	Corpus Counter
	// MetricsRegistry receives the server's metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer serves GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// service is the set of pipeline operations the handlers call.
// *assistant.Assistant satisfies it; tests inject a fake.
type service interface {
	Ingest(ctx context.Context, data []byte, displayName string) (*ingestion.Report, error)
	Ask(ctx context.Context, prompt string) (*assistant.Answer, error)
	Quiz(ctx context.Context) ([]generate.QuizItem, error)
}

// Counter reports the number of indexed passages.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Server is the HTTP server that exposes the assistant.
type Server struct {
	// svc handles every pipeline request.
	svc service
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// Response status values.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// errorResponse is the JSON body for middleware rejections.
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// uploadResponse is the JSON response for POST /api/upload.
type uploadResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	// Splits is the number of passages indexed.
	Splits int `json:"splits"`
	// Document is the normalised document name.
	Document string `json:"document,omitempty"`
}

// promptRequest is the JSON body for POST /api/prompt.
type promptRequest struct {
	// Prompt is the user's question.
	Prompt string `json:"prompt"`
}

// promptResponse is the JSON response for POST /api/prompt.
type promptResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Response string `json:"response"`
	Context  string `json:"context"`
}

// quizResponse is the JSON response for POST /api/quiz. Questions is always
// a list, empty on failure.
type quizResponse struct {
	Status    string              `json:"status"`
	Message   string              `json:"message,omitempty"`
	Questions []generate.QuizItem `json:"questions"`
}
