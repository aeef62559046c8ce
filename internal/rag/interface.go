// Package rag defines the retrieval-augmented generation core: passages, the
// index store that holds exactly one document corpus, and the retriever that
// turns a question into grounding context.
// Concrete vector backends (SQLite, Qdrant, in-memory) satisfy VectorStore so
// the pipeline never depends on a specific engine.
package rag

import (
	"context"
	"strconv"
)

// Passage is a contiguous span of document text produced by the chunker.
// Passages are immutable once created.
type Passage struct {
	// Content is the passage text.
	Content string

	// Source is the display name of the document the passage was cut from.
	Source string

	// Page is the 1-based page number the passage came from. Zero means the
	// source had no page structure.
	Page int

	// Offset is the rune offset of the passage within its page.
	Offset int

	// Metadata holds extra key-value pairs propagated from extraction.
	Metadata map[string]string
}

// Document is a passage as stored in, or returned from, the index.
type Document struct {
	Passage

	// ID is the passage identifier, "{document}_{sequence}".
	ID string

	// Seq is the passage's position in the ingested document.
	Seq int

	// Score is the cosine similarity to the query (1.0 = identical).
	// Zero value means the score was not computed.
	Score float32
}

// Distance returns the cosine distance derived from Score.
func (d Document) Distance() float32 {
	return 1 - d.Score
}

// PassageID builds the identifier of the i-th passage of a document.
func PassageID(documentName string, i int) string {
	return documentName + "_" + strconv.Itoa(i)
}

// Result is the ordered output of a similarity query, most similar first.
type Result struct {
	Documents []Document
}

// Len returns the number of documents in the result. A nil result is empty.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Documents)
}

// Texts returns the passage texts in result order.
func (r *Result) Texts() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.Documents))
	for i, d := range r.Documents {
		out[i] = d.Content
	}
	return out
}

// Distances returns the cosine distances in result order.
func (r *Result) Distances() []float32 {
	if r == nil {
		return nil
	}
	out := make([]float32, len(r.Documents))
	for i, d := range r.Documents {
		out[i] = d.Distance()
	}
	return out
}

// VectorStore is the persistence backend behind the Index.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// IDs lists the identifiers of every stored passage.
	IDs(ctx context.Context) ([]string, error)

	// Delete removes passages by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Upsert stores a batch of documents with their pre-computed embeddings.
	// embeddings[i] is the vector for docs[i].
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns at most topK documents ordered by descending cosine
	// similarity to the query embedding. An empty store yields no documents.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error)

	// All returns every stored document ordered by Seq.
	All(ctx context.Context) ([]Document, error)

	// Count returns the number of stored passages.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// Replacer is implemented by stores that can swap the whole corpus in one
// atomic step. Index.ReplaceAll prefers it when available.
type Replacer interface {
	ReplaceAll(ctx context.Context, docs []Document, embeddings [][]float32) error
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
