package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/54b3r/recall-go/internal/logging"
)

// Index is the single-corpus index store. It owns the vector backend and the
// embedder used to turn query text into vectors. One Index is constructed at
// startup and shared by ingestion, retrieval and quiz generation.
type Index struct {
	// store persists passages and vectors.
	store VectorStore

	// embedder converts query text to a dense vector.
	embedder Embedder
}

// NewIndex constructs an Index over the given backend and embedder.
func NewIndex(store VectorStore, embedder Embedder) (*Index, error) {
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	return &Index{store: store, embedder: embedder}, nil
}

// ReplaceAll discards the whole corpus and stores passages in its place,
// keyed "{documentName}_{i}". vectors[i] must be the embedding of
// passages[i]. It returns the number of passages stored.
func (x *Index) ReplaceAll(ctx context.Context, passages []Passage, vectors [][]float32, documentName string) (int, error) {
	if len(passages) != len(vectors) {
		return 0, fmt.Errorf("rag: %d passages but %d vectors", len(passages), len(vectors))
	}

	docs := make([]Document, len(passages))
	for i, p := range passages {
		docs[i] = Document{Passage: p, ID: PassageID(documentName, i), Seq: i}
	}

	log := logging.FromContext(ctx)

	if r, ok := x.store.(Replacer); ok {
		if err := r.ReplaceAll(ctx, docs, vectors); err != nil {
			return 0, fmt.Errorf("rag: replace corpus: %w", err)
		}
		log.Info("index replaced", slog.String("document", documentName), slog.Int("passages", len(docs)))
		return len(docs), nil
	}

	ids, err := x.store.IDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("rag: list existing ids: %w", err)
	}
	if len(ids) > 0 {
		if err := x.store.Delete(ctx, ids); err != nil {
			return 0, fmt.Errorf("rag: delete %d existing passages: %w", len(ids), err)
		}
	}
	if len(docs) > 0 {
		if err := x.store.Upsert(ctx, docs, vectors); err != nil {
			return 0, fmt.Errorf("rag: insert passages: %w", err)
		}
	}

	log.Info("index replaced",
		slog.String("document", documentName),
		slog.Int("deleted", len(ids)),
		slog.Int("passages", len(docs)),
	)
	return len(docs), nil
}

// Query embeds text and returns at most topK passages, most similar first.
// An empty corpus yields an empty result.
func (x *Index) Query(ctx context.Context, text string, topK int) (*Result, error) {
	embeddings, err := x.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}

	docs, err := x.store.Search(ctx, embeddings[0], topK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search: %w", err)
	}
	return &Result{Documents: docs}, nil
}

// GetAll returns every stored passage in sequence order.
func (x *Index) GetAll(ctx context.Context) ([]Document, error) {
	docs, err := x.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("rag: read corpus: %w", err)
	}
	return docs, nil
}

// Count returns the number of stored passages.
func (x *Index) Count(ctx context.Context) (int, error) {
	n, err := x.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("rag: count corpus: %w", err)
	}
	return n, nil
}

// Ping reports whether the backend answers. It satisfies server.Pinger.
func (x *Index) Ping(ctx context.Context) error {
	_, err := x.Count(ctx)
	return err
}

// Close releases the backend.
func (x *Index) Close() error {
	return x.store.Close()
}
