package embedder

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func clearEmbeddingEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_ENDPOINT", "EMBEDDING_API_KEY",
		"EMBEDDING_DIMENSIONS", "EMBEDDING_TIMEOUT", "EMBEDDING_MAX_RETRIES",
		"MODEL_PROVIDER", "OLLAMA_HOST", "OPENAI_API_KEY", "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT",
	} {
		t.Setenv(k, "")
	}
}

func TestBackend_Resolution(t *testing.T) {
	tests := []struct {
		name      string
		embedding string
		model     string
		want      string
	}{
		{"default", "", "", "ollama"},
		{"explicit", "OpenAI", "", "openai"},
		{"inherits openai", "", "openai", "openai"},
		{"inherits azure", "", "azure", "azure"},
		{"gemini chat falls back to ollama", "", "gemini", "ollama"},
		{"explicit wins", "ollama", "openai", "ollama"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEmbeddingEnv(t)
			t.Setenv("EMBEDDING_PROVIDER", tt.embedding)
			t.Setenv("MODEL_PROVIDER", tt.model)
			if got := Backend(); got != tt.want {
				t.Errorf("Backend() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultDimensions(t *testing.T) {
	clearEmbeddingEnv(t)
	if got := DefaultDimensions("ollama"); got != 768 {
		t.Errorf("ollama: want 768, got %d", got)
	}
	if got := DefaultDimensions("openai"); got != 1536 {
		t.Errorf("openai: want 1536, got %d", got)
	}
	t.Setenv("EMBEDDING_DIMENSIONS", "1024")
	if got := DefaultDimensions("ollama"); got != 1024 {
		t.Errorf("override: want 1024, got %d", got)
	}
}

func TestNewFromEnv_OllamaDefaults(t *testing.T) {
	clearEmbeddingEnv(t)
	t.Setenv("EMBEDDING_TIMEOUT", "90s")
	t.Setenv("EMBEDDING_MAX_RETRIES", "0")

	g, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if g.Model() != "nomic-embed-text" || g.Backend() != "ollama" {
		t.Errorf("unexpected gateway: model=%q backend=%q", g.Model(), g.Backend())
	}
	if g.cfg.Timeout != 90*time.Second {
		t.Errorf("timeout: want 90s, got %s", g.cfg.Timeout)
	}
	if g.cfg.MaxRetries != 0 {
		t.Errorf("explicit zero retries: got %d", g.cfg.MaxRetries)
	}
	c, ok := g.client.(*OllamaClient)
	if !ok {
		t.Fatalf("want *OllamaClient, got %T", g.client)
	}
	if c.host != "http://localhost:11434" {
		t.Errorf("host: got %q", c.host)
	}
}

func TestNewFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"EMBEDDING_PROVIDER": "bedrock"}},
		{"openai without key", map[string]string{"EMBEDDING_PROVIDER": "openai"}},
		{"azure without key", map[string]string{"EMBEDDING_PROVIDER": "azure", "AZURE_OPENAI_ENDPOINT": "https://x"}},
		{"azure without endpoint", map[string]string{"EMBEDDING_PROVIDER": "azure", "AZURE_OPENAI_API_KEY": "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEmbeddingEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := NewFromEnv(); err == nil {
				t.Error("expected error")
			}
			if err := ValidateForRAG(slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
				t.Error("expected ValidateForRAG error")
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("X_DUR", "15")
	if got := getEnvDuration("X_DUR", time.Second); got != 15*time.Second {
		t.Errorf("bare seconds: got %s", got)
	}
	t.Setenv("X_DUR", "nonsense")
	if got := getEnvDuration("X_DUR", time.Second); got != time.Second {
		t.Errorf("fallback: got %s", got)
	}
}

func TestLooksLikeChatModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model string
		want  bool
	}{
		{"nomic-embed-text", false},
		{"text-embedding-3-small", false},
		{"mxbai-embed-large", false},
		{"llama3.2:3b", true},
		{"gpt-4o", true},
		{"mistral:7b", true},
	}
	for _, tt := range tests {
		if got := looksLikeChatModel(tt.model); got != tt.want {
			t.Errorf("looksLikeChatModel(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}
