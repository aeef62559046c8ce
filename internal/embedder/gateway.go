// Package embedder is the embedding gateway: it turns passage and query text
// into dense vectors by calling an embedding service once per text. Backends
// (Ollama over plain HTTP, OpenAI and Azure OpenAI through go-openai) only
// implement a single-text Client; the Gateway adds ordering, per-request
// timeouts, bounded retry and the all-or-nothing failure contract.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/54b3r/recall-go/internal/logging"
	"github.com/54b3r/recall-go/internal/rag"
)

// Gateway defaults.
const (
	DefaultTimeout       = 60 * time.Second
	DefaultMaxRetries    = 2
	DefaultRetryInterval = 500 * time.Millisecond

	// previewRunes bounds the text quoted in errors.
	previewRunes = 80
)

// ErrMissingEmbedding is returned by a Client when the service answered
// successfully but the response carried no vector.
var ErrMissingEmbedding = errors.New("embedder: response has no embedding")

// StatusError is a non-success response from an embedding service.
type StatusError struct {
	// Code is the HTTP status code.
	Code int
	// Message is the service's error text, if any.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("embedder: HTTP %d", e.Code)
	}
	return fmt.Sprintf("embedder: HTTP %d: %s", e.Code, e.Message)
}

// Client embeds a single text. Implementations must be safe for concurrent use.
type Client interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// GatewayConfig controls request timing.
type GatewayConfig struct {
	// Timeout bounds each individual request (default: 60s).
	Timeout time.Duration

	// MaxRetries is the number of retries per text after the first attempt
	// (default: 2). Negative disables retries.
	MaxRetries int

	// RetryInterval is the initial backoff between attempts (default: 500ms).
	RetryInterval time.Duration

	// Model and Backend are informational, for logs and readiness output.
	Model   string
	Backend string
}

// Gateway implements rag.Embedder on top of a single-text Client.
type Gateway struct {
	client Client
	cfg    GatewayConfig
}

var _ rag.Embedder = (*Gateway)(nil)

// NewGateway wraps client with the embedding contract.
func NewGateway(client Client, cfg GatewayConfig) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	return &Gateway{client: client, cfg: cfg}
}

// Model returns the configured embedding model name.
func (g *Gateway) Model() string { return g.cfg.Model }

// Backend returns the configured backend name.
func (g *Gateway) Backend() string { return g.cfg.Backend }

// Embed returns one vector per text, in input order. Texts are sent one
// request at a time. The first text that cannot be embedded aborts the call
// with a *rag.EmbeddingServiceError and no vectors are returned.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	log := logging.FromContext(ctx)
	start := time.Now()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, status, err := g.embedOne(ctx, text)
		if err != nil {
			log.Warn("embedding failed",
				slog.Int("index", i),
				slog.Int("total", len(texts)),
				slog.String("backend", g.cfg.Backend),
				slog.String("error", err.Error()),
			)
			return nil, &rag.EmbeddingServiceError{
				Index:      i,
				Text:       rag.Preview(text, previewRunes),
				StatusCode: status,
				Err:        err,
			}
		}
		out[i] = vec
	}

	log.Debug("texts embedded",
		slog.Int("count", len(texts)),
		slog.String("model", g.cfg.Model),
		slog.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// embedOne runs one text through the retry loop.
func (g *Gateway) embedOne(ctx context.Context, text string) ([]float32, int, error) {
	var (
		vec    []float32
		status int
	)
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()

		v, err := g.client.EmbedOne(callCtx, text)
		if err == nil && len(v) == 0 {
			err = ErrMissingEmbedding
		}
		if err == nil {
			vec, status = v, 0
			return nil
		}

		status = 0
		var se *StatusError
		if errors.As(err, &se) {
			status = se.Code
		}
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %v", rag.ErrServiceTimeout, g.cfg.Timeout, err)
		}
		if ctx.Err() != nil || !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(g.cfg.RetryInterval),
		backoff.WithMaxElapsedTime(0),
	)
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(g.cfg.MaxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		logging.FromContext(ctx).Debug("retrying embedding request",
			slog.String("error", err.Error()),
			slog.Duration("wait", wait),
		)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, status, err
	}
	return vec, 0, nil
}

// retryable reports whether err is worth another attempt: timeouts, transport
// failures, rate limiting and server errors. Missing embeddings and other
// client errors are final.
func retryable(err error) bool {
	if errors.Is(err, ErrMissingEmbedding) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}
