package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/recall-go/internal/assistant"
	"github.com/54b3r/recall-go/internal/chunker"
	"github.com/54b3r/recall-go/internal/config"
	"github.com/54b3r/recall-go/internal/embedder"
	"github.com/54b3r/recall-go/internal/extract"
	"github.com/54b3r/recall-go/internal/generate"
	"github.com/54b3r/recall-go/internal/ingestion"
	"github.com/54b3r/recall-go/internal/logging"
	"github.com/54b3r/recall-go/internal/provider"
	"github.com/54b3r/recall-go/internal/rag"
	"github.com/54b3r/recall-go/internal/server"
	"github.com/54b3r/recall-go/internal/store"
	"github.com/54b3r/recall-go/internal/tracing"
	"github.com/54b3r/recall-go/internal/version"
)

// app is the wired pipeline shared by the subcommands.
type app struct {
	settings *config.Settings
	index    *rag.Index
	// qdrant is set only when RECALL_STORE=qdrant.
	qdrant   *rag.QdrantStore
	pipeline *ingestion.Pipeline

	// The fields below are nil unless the app was built with a chat model.
	assistant   *assistant.Assistant
	chatModel   model.BaseChatModel
	providerCfg *provider.Config

	closers []func()
}

// newApp resolves settings, opens the index and builds the ingestion
// pipeline. With withModel it also initialises the chat provider, the
// generators and the assistant.
func newApp(ctx context.Context, withModel bool) (_ *app, err error) {
	log := logging.FromContext(ctx)

	settings, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	a := &app{settings: settings}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := embedder.ValidateForRAG(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised",
		slog.String("backend", emb.Backend()),
		slog.String("model", emb.Model()),
	)

	vs, err := a.openStore(ctx, log)
	if err != nil {
		return nil, err
	}
	a.index, err = rag.NewIndex(vs, emb)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = a.index.Close() })

	a.pipeline, err = ingestion.NewPipeline(
		extract.New(),
		chunker.New(chunker.Config{ChunkSize: settings.ChunkSize, ChunkOverlap: settings.ChunkOverlap}),
		emb,
		a.index,
	)
	if err != nil {
		return nil, err
	}
	if !withModel {
		return a, nil
	}

	flush, traced := tracing.Install(tracing.ConfigFromEnv(version.Version))
	a.closers = append(a.closers, flush)
	log.Info("langfuse tracing", slog.Bool("enabled", traced))

	a.chatModel, a.providerCfg, err = provider.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Info("provider initialised",
		slog.String("provider", string(a.providerCfg.Backend)),
		slog.String("model", a.providerCfg.ModelName()),
	)

	genCfg := &generate.Config{
		ChatModel:        a.chatModel,
		Timeout:          a.providerCfg.Tuning.Timeout,
		MaxContextTokens: settings.QuizMaxContextTokens,
	}
	answerer, err := generate.NewAnswerer(ctx, genCfg)
	if err != nil {
		return nil, err
	}
	quizzer, err := generate.NewQuizzer(ctx, a.index, genCfg)
	if err != nil {
		return nil, err
	}
	retriever, err := rag.NewRetriever(a.index, settings.TopK)
	if err != nil {
		return nil, err
	}

	a.assistant, err = assistant.New(&assistant.Config{
		Ingester:  a.pipeline,
		Retriever: retriever,
		Answerer:  answerer,
		Quizzer:   quizzer,
		TopK:      settings.TopK,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// openStore opens the vector backend selected by RECALL_STORE.
func (a *app) openStore(ctx context.Context, log *slog.Logger) (rag.VectorStore, error) {
	s := a.settings
	switch s.Store {
	case config.StoreMemory:
		log.Warn("index: using in-memory store, the corpus is lost on exit")
		return rag.NewMemoryStore(), nil

	case config.StoreQdrant:
		vectorSize := uint64(embedder.DefaultDimensions(embedder.Backend())) //nolint:gosec // dimensions are bounded
		qs, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
			Host:       s.QdrantHost,
			Port:       s.QdrantPort,
			Collection: s.Collection,
			VectorSize: vectorSize,
			APIKey:     s.QdrantAPIKey,
			UseTLS:     s.QdrantTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", s.QdrantHost, s.QdrantPort, err)
		}
		a.qdrant = qs
		log.Info("index: qdrant store ready",
			slog.String("host", s.QdrantHost),
			slog.Int("port", s.QdrantPort),
			slog.String("collection", s.Collection),
		)
		return qs, nil

	default:
		path := s.IndexPath
		if path == "" {
			var err error
			if path, err = store.DefaultDBPath(); err != nil {
				return nil, err
			}
		}
		ss, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		log.Info("index: sqlite store opened", slog.String("path", path))
		return ss, nil
	}
}

// pingers returns the readiness probes for the wired dependencies.
func (a *app) pingers() []server.Pinger {
	ps := []server.Pinger{server.NewIndexPinger(a.index)}
	if a.qdrant != nil {
		ps = append(ps, server.NewQdrantPinger(a.qdrant.Client()))
	}
	if a.chatModel != nil {
		ps = append(ps, server.NewLLMPinger(a.chatModel, provider.HealthCheckFor(a.providerCfg), string(a.providerCfg.Backend)))
	}
	return ps
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
