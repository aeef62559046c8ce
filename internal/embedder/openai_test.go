package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/recall-go/internal/rag"
)

func openAIServer(t *testing.T, status int, body string) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var requests []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
			return
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		requests = append(requests, req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestOpenAIClient_SingleInputPerRequest(t *testing.T) {
	srv, requests := openAIServer(t, http.StatusOK, `{
		"object": "list",
		"data": [{"object": "embedding", "index": 0, "embedding": [0.25, -0.5, 1]}],
		"model": "text-embedding-3-small",
		"usage": {"prompt_tokens": 2, "total_tokens": 2}
	}`)

	c := NewOpenAIClient(&OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Model: "text-embedding-3-small"})
	g := NewGateway(c, GatewayConfig{RetryInterval: time.Millisecond})

	got, err := g.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.25, -0.5, 1}, {0.25, -0.5, 1}}, got)

	require.Len(t, *requests, 2)
	assert.Equal(t, []any{"first"}, (*requests)[0]["input"])
	assert.Equal(t, []any{"second"}, (*requests)[1]["input"])
	assert.Equal(t, "text-embedding-3-small", (*requests)[0]["model"])
}

func TestOpenAIClient_EmptyDataIsMissingEmbedding(t *testing.T) {
	srv, _ := openAIServer(t, http.StatusOK, `{"object": "list", "data": [], "model": "m"}`)

	c := NewOpenAIClient(&OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Model: "m"})
	_, err := c.EmbedOne(context.Background(), "x")
	require.ErrorIs(t, err, ErrMissingEmbedding)
}

func TestOpenAIClient_APIErrorMapsToStatus(t *testing.T) {
	srv, requests := openAIServer(t, http.StatusUnauthorized,
		`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`)

	c := NewOpenAIClient(&OpenAIConfig{BaseURL: srv.URL, APIKey: "bad", Model: "m"})
	g := NewGateway(c, GatewayConfig{MaxRetries: 3, RetryInterval: time.Millisecond})

	_, err := g.Embed(context.Background(), []string{"x"})
	var ee *rag.EmbeddingServiceError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, http.StatusUnauthorized, ee.StatusCode)
	assert.Contains(t, err.Error(), "Incorrect API key")
	assert.Len(t, *requests, 1, "401 must not be retried")
}
