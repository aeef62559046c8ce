// Package server implements the HTTP API that exposes the study assistant:
// document upload, question answering and quiz generation, plus liveness,
// readiness and Prometheus endpoints.
// The server is started by the `recall serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/recall-go/internal/generate"
	"github.com/54b3r/recall-go/internal/logging"
	"github.com/54b3r/recall-go/internal/rag"
)

// Pipeline op label values.
const (
	opUpload = "upload"
	opPrompt = "prompt"
	opQuiz   = "quiz"
)

const (
	// defaultMaxUploadBytes bounds multipart uploads when not configured.
	defaultMaxUploadBytes = 32 << 20
	// maxJSONBodyBytes bounds the JSON request bodies.
	maxJSONBodyBytes = 1 << 20
	// multipartMemory is the part of a multipart form kept in memory; the
	// rest spills to temporary files.
	multipartMemory = 8 << 20
)

// msgNoContext is returned by /api/prompt when retrieval finds nothing.
const msgNoContext = "No relevant context found for the prompt"

// New constructs a Server from the provided service and config.
func New(svc service, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("server: service must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Long enough for a quiz over a large corpus.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	s := &Server{
		svc:     svc,
		cfg:     cfg,
		log:     log,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stop := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stop

	// pipeline applies auth and the rate limit to the routes that reach the model.
	pipeline := func(name string, h http.HandlerFunc) http.Handler {
		return s.metrics.instrument(name, authMiddleware(cfg.APIKey, rl.middleware(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/upload", pipeline(opUpload, s.handleUpload))
	mux.Handle("POST /api/prompt", pipeline(opPrompt, s.handlePrompt))
	mux.Handle("POST /api/quiz", pipeline(opQuiz, s.handleQuiz))
	mux.Handle("GET /api/health", s.metrics.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.metrics.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /{$}", s.handleRoot)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, corsMiddleware(cfg.CORSOrigins, mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	if s.cfg.APIKey == "" {
		s.log.Warn("server: RECALL_API_KEY is not set, authentication disabled")
	}
	s.refreshPassages(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("recall server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.log.Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleRoot handles GET / with a static banner.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{
		"status":  "online",
		"message": "API is running",
	})
}

// handleUpload handles POST /api/upload. The multipart field "file" holds the
// document; its contents replace the corpus.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeUploadError(ctx, w, uploadFormStatus(err), fmt.Sprintf("invalid upload: %v", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeUploadError(ctx, w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeUploadError(ctx, w, uploadFormStatus(err), fmt.Sprintf("read upload: %v", err))
		return
	}
	if len(data) == 0 {
		writeUploadError(ctx, w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	report, err := s.svc.Ingest(ctx, data, hdr.Filename)
	s.metrics.observe(opUpload, start, err)
	if err != nil {
		status := statusFor(err)
		logging.FromContext(ctx).Error("upload failed",
			slog.String("file", hdr.Filename),
			slog.Int("status", status),
			slog.Any("error", err),
		)
		writeUploadError(ctx, w, status, err.Error())
		return
	}
	s.metrics.indexPassages.Set(float64(report.Passages))

	writeJSON(ctx, w, http.StatusOK, uploadResponse{
		Status:   statusSuccess,
		Message:  "File processed successfully",
		Splits:   report.Passages,
		Document: report.Document,
	})
}

// handlePrompt handles POST /api/prompt.
func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req promptRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&req); err != nil {
		writeJSON(ctx, w, http.StatusBadRequest, promptResponse{Status: statusError, Message: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(ctx, w, http.StatusBadRequest, promptResponse{Status: statusError, Message: "prompt is required"})
		return
	}

	ans, err := s.svc.Ask(ctx, req.Prompt)
	s.metrics.observe(opPrompt, start, err)
	if err != nil {
		status := statusFor(err)
		msg := err.Error()
		if errors.Is(err, rag.ErrEmptyCorpus) {
			msg = msgNoContext
		}
		logging.FromContext(ctx).Warn("prompt failed", slog.Int("status", status), slog.Any("error", err))
		writeJSON(ctx, w, status, promptResponse{Status: statusError, Message: msg})
		return
	}

	writeJSON(ctx, w, http.StatusOK, promptResponse{
		Status:   statusSuccess,
		Response: ans.Answer,
		Context:  ans.Context,
	})
}

// handleQuiz handles POST /api/quiz. The request body is ignored.
func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	items, err := s.svc.Quiz(ctx)
	s.metrics.observe(opQuiz, start, err)
	if err != nil {
		status := statusFor(err)
		logging.FromContext(ctx).Warn("quiz failed", slog.Int("status", status), slog.Any("error", err))
		writeJSON(ctx, w, status, quizResponse{
			Status:    statusError,
			Message:   err.Error(),
			Questions: []generate.QuizItem{},
		})
		return
	}

	writeJSON(ctx, w, http.StatusOK, quizResponse{Status: statusSuccess, Questions: items})
}

// statusFor maps a pipeline error to its HTTP status.
func statusFor(err error) int {
	var (
		extractErr *rag.ExtractionError
		embedErr   *rag.EmbeddingServiceError
		chatErr    *rag.ChatServiceError
		quizErr    *rag.MalformedQuizError
	)
	switch {
	case errors.Is(err, rag.ErrServiceTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, rag.ErrEmptyCorpus):
		return http.StatusNotFound
	case errors.As(err, &extractErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &embedErr), errors.As(err, &chatErr), errors.As(err, &quizErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// uploadFormStatus distinguishes an oversized upload from a malformed one.
func uploadFormStatus(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// writeUploadError writes the upload error envelope.
func writeUploadError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, uploadResponse{Status: statusError, Message: msg})
}

// writeError writes the generic error envelope.
func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, errorResponse{Status: statusError, Message: msg})
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(ctx).Error("response encode error", slog.Any("error", err))
	}
}
