package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Index backends selectable with RECALL_STORE.
const (
	StoreSQLite = "sqlite"
	StoreQdrant = "qdrant"
	StoreMemory = "memory"
)

// Defaults for the pipeline settings.
const (
	DefaultCollection  = "recall"
	DefaultQdrantPort  = 6334
	DefaultMaxUploadMB = 32
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 8080
)

// Settings are the resolved, typed pipeline settings. Model and embedding
// settings are resolved by their own packages (provider, embedder).
type Settings struct {
	// ChunkSize and ChunkOverlap size passages; zero means the chunker default.
	ChunkSize    int
	ChunkOverlap int

	// Store is the index backend: sqlite, qdrant or memory.
	Store string
	// IndexPath is the SQLite file; empty means the default location.
	IndexPath string
	// Collection names the Qdrant collection.
	Collection string

	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string
	QdrantTLS    bool

	// TopK is the number of passages retrieved per question; zero means default.
	TopK int
	// QuizMaxContextTokens is the quiz prompt budget; zero means default.
	QuizMaxContextTokens int

	// Host and Port are the HTTP bind address.
	Host string
	Port int
	// APIKey enables bearer auth on the API when set.
	APIKey string
	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string
	// MaxUploadBytes caps upload size.
	MaxUploadBytes int64

	// TracingEnabled reports whether Langfuse keys are configured.
	TracingEnabled bool
}

// FromEnv resolves Settings from environment variables (after Load and
// LoadDotEnv have filled them in). Malformed numeric values are reported
// rather than silently replaced.
func FromEnv() (*Settings, error) {
	var errs []string
	num := func(key string, fallback int) int {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return fallback
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Sprintf("%s must be a non-negative integer, got %q", key, v))
			return fallback
		}
		return n
	}

	s := &Settings{
		ChunkSize:            num("CHUNK_SIZE", 0),
		ChunkOverlap:         num("CHUNK_OVERLAP", 0),
		Store:                strings.ToLower(envOr("RECALL_STORE", StoreSQLite)),
		IndexPath:            os.Getenv("RECALL_INDEX_PATH"),
		Collection:           envOr("RECALL_COLLECTION", DefaultCollection),
		QdrantHost:           os.Getenv("QDRANT_HOST"),
		QdrantPort:           num("QDRANT_PORT", DefaultQdrantPort),
		QdrantAPIKey:         os.Getenv("QDRANT_API_KEY"),
		QdrantTLS:            os.Getenv("QDRANT_TLS") == "true",
		TopK:                 num("RETRIEVAL_TOP_K", 0),
		QuizMaxContextTokens: num("QUIZ_MAX_CONTEXT_TOKENS", 0),
		Host:                 envOr("RECALL_HOST", DefaultHost),
		Port:                 num("RECALL_PORT", DefaultPort),
		APIKey:               os.Getenv("RECALL_API_KEY"),
		CORSOrigins:          splitList(os.Getenv("RECALL_CORS_ORIGINS")),
		MaxUploadBytes:       int64(num("RECALL_MAX_UPLOAD_MB", DefaultMaxUploadMB)) << 20,
		TracingEnabled:       os.Getenv("LANGFUSE_PUBLIC_KEY") != "" && os.Getenv("LANGFUSE_SECRET_KEY") != "",
	}

	switch s.Store {
	case StoreSQLite, StoreMemory:
	case StoreQdrant:
		if s.QdrantHost == "" {
			errs = append(errs, "QDRANT_HOST is required when RECALL_STORE=qdrant")
		}
	default:
		errs = append(errs, fmt.Sprintf("RECALL_STORE must be sqlite, qdrant or memory, got %q", s.Store))
	}
	if s.MaxUploadBytes == 0 {
		s.MaxUploadBytes = DefaultMaxUploadMB << 20
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return s, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
