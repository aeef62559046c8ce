package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is a process-local VectorStore. Contents are lost on exit.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]Document
	vectors map[string][]float32
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:    make(map[string]Document),
		vectors: make(map[string][]float32),
	}
}

// IDs lists stored passage ids in sequence order.
func (s *MemoryStore) IDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.docs))
	for _, d := range s.sortedLocked() {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// Delete removes passages by id. Unknown ids are ignored.
func (s *MemoryStore) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.docs, id)
		delete(s.vectors, id)
	}
	return nil
}

// Upsert stores documents with their embeddings, replacing equal ids.
func (s *MemoryStore) Upsert(_ context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("memory: %d documents but %d embeddings", len(docs), len(embeddings))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range docs {
		s.docs[d.ID] = d
		s.vectors[d.ID] = embeddings[i]
	}
	return nil
}

// Search ranks every stored passage by cosine similarity.
func (s *MemoryStore) Search(_ context.Context, queryEmbedding []float32, topK int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.sortedLocked()
	vectors := make([][]float32, len(docs))
	for i, d := range docs {
		vectors[i] = s.vectors[d.ID]
	}
	return RankByCosine(queryEmbedding, docs, vectors, topK), nil
}

// All returns every stored document ordered by Seq.
func (s *MemoryStore) All(_ context.Context) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(), nil
}

// Count returns the number of stored passages.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) sortedLocked() []Document {
	out := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seq == out[j].Seq {
			return out[i].ID < out[j].ID
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}
