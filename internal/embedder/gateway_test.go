package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/recall-go/internal/rag"
)

// ollamaServer starts a fake Ollama whose behaviour per request is decided by
// handle. It returns the server and a request counter.
func ollamaServer(t *testing.T, handle func(w http.ResponseWriter, prompt string, n int64)) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/embeddings" {
			http.Error(w, "unexpected route", http.StatusNotFound)
			return
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Model != "nomic-embed-text" {
			http.Error(w, "wrong model "+req.Model, http.StatusBadRequest)
			return
		}
		handle(w, req.Prompt, calls.Add(1))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newOllamaGateway(url string, cfg GatewayConfig) *Gateway {
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = time.Millisecond
	}
	cfg.Model = "nomic-embed-text"
	cfg.Backend = "ollama"
	return NewGateway(NewOllamaClient(&OllamaConfig{Host: url + "/", Model: "nomic-embed-text"}), cfg)
}

func writeEmbedding(w http.ResponseWriter, prompt string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{float32(len(prompt)), 1}})
}

func TestGateway_OneRequestPerTextInOrder(t *testing.T) {
	t.Parallel()
	srv, calls := ollamaServer(t, func(w http.ResponseWriter, prompt string, _ int64) {
		writeEmbedding(w, prompt)
	})
	g := newOllamaGateway(srv.URL, GatewayConfig{})

	got, err := g.Embed(context.Background(), []string{"a", "bbb", "cc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {3, 1}, {2, 1}}, got)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGateway_EmptyInput(t *testing.T) {
	t.Parallel()
	srv, calls := ollamaServer(t, func(w http.ResponseWriter, prompt string, _ int64) {
		writeEmbedding(w, prompt)
	})
	g := newOllamaGateway(srv.URL, GatewayConfig{})

	got, err := g.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, calls.Load())
}

func TestGateway_MissingEmbeddingIsFinal(t *testing.T) {
	t.Parallel()
	srv, calls := ollamaServer(t, func(w http.ResponseWriter, _ string, _ int64) {
		_, _ = w.Write([]byte(`{}`))
	})
	g := newOllamaGateway(srv.URL, GatewayConfig{MaxRetries: 3})

	got, err := g.Embed(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.Nil(t, got)

	var ee *rag.EmbeddingServiceError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 0, ee.Index)
	assert.Equal(t, "hello", ee.Text)
	assert.ErrorIs(t, err, ErrMissingEmbedding)
	assert.EqualValues(t, 1, calls.Load(), "a 200 without embedding must not be retried")
}

func TestGateway_AbortsWithoutPartialResults(t *testing.T) {
	t.Parallel()
	srv, calls := ollamaServer(t, func(w http.ResponseWriter, prompt string, _ int64) {
		if prompt == "bad" {
			http.Error(w, `{"error":"model exploded"}`, http.StatusBadRequest)
			return
		}
		writeEmbedding(w, prompt)
	})
	g := newOllamaGateway(srv.URL, GatewayConfig{})

	got, err := g.Embed(context.Background(), []string{"ok", "bad", "never sent"})
	require.Error(t, err)
	assert.Nil(t, got)

	var ee *rag.EmbeddingServiceError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 1, ee.Index)
	assert.Equal(t, http.StatusBadRequest, ee.StatusCode)
	assert.Contains(t, err.Error(), "model exploded")
	assert.EqualValues(t, 2, calls.Load(), "4xx is final and later texts are not sent")
}

func TestGateway_RetriesServerErrors(t *testing.T) {
	t.Parallel()
	srv, calls := ollamaServer(t, func(w http.ResponseWriter, prompt string, n int64) {
		if n < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		writeEmbedding(w, prompt)
	})
	g := newOllamaGateway(srv.URL, GatewayConfig{MaxRetries: 2})

	got, err := g.Embed(context.Background(), []string{"abcd"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{4, 1}}, got)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGateway_RetriesExhausted(t *testing.T) {
	t.Parallel()
	srv, calls := ollamaServer(t, func(w http.ResponseWriter, _ string, _ int64) {
		http.Error(w, "down", http.StatusInternalServerError)
	})
	g := newOllamaGateway(srv.URL, GatewayConfig{MaxRetries: 2})

	_, err := g.Embed(context.Background(), []string{"x"})
	var ee *rag.EmbeddingServiceError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, http.StatusInternalServerError, ee.StatusCode)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGateway_Timeout(t *testing.T) {
	t.Parallel()
	srv, _ := ollamaServer(t, func(w http.ResponseWriter, prompt string, _ int64) {
		time.Sleep(300 * time.Millisecond)
		writeEmbedding(w, prompt)
	})
	g := newOllamaGateway(srv.URL, GatewayConfig{Timeout: 20 * time.Millisecond, MaxRetries: -1})

	_, err := g.Embed(context.Background(), []string{"slow"})
	require.ErrorIs(t, err, rag.ErrServiceTimeout)
	var ee *rag.EmbeddingServiceError
	require.ErrorAs(t, err, &ee)
	assert.Zero(t, ee.StatusCode)
}

func TestGateway_CallerCancellationIsNotRetried(t *testing.T) {
	t.Parallel()
	srv, calls := ollamaServer(t, func(w http.ResponseWriter, prompt string, _ int64) {
		writeEmbedding(w, prompt)
	})
	g := newOllamaGateway(srv.URL, GatewayConfig{MaxRetries: 5})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Embed(ctx, []string{"x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NotErrorIs(t, err, rag.ErrServiceTimeout)
	assert.Zero(t, calls.Load())
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"missing embedding", ErrMissingEmbedding, false},
		{"bad request", &StatusError{Code: 400}, false},
		{"not found", &StatusError{Code: 404}, false},
		{"rate limited", &StatusError{Code: 429}, true},
		{"server error", &StatusError{Code: 502}, true},
		{"transport", errors.New("connection refused"), true},
		{"timeout", rag.ErrServiceTimeout, true},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		if got := retryable(tt.err); got != tt.want {
			t.Errorf("%s: retryable = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestStatusError_Message(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "embedder: HTTP 500", (&StatusError{Code: 500}).Error())
	assert.Equal(t, "embedder: HTTP 404: model not found", (&StatusError{Code: 404, Message: "model not found"}).Error())
}
