// Package ingestion implements the document ingestion pipeline: extract the
// uploaded bytes into text segments, chunk them into passages, embed every
// passage and replace the indexed corpus with the result. It backs both the
// `recall ingest` command and the upload endpoint.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/54b3r/recall-go/internal/extract"
	"github.com/54b3r/recall-go/internal/logging"
	"github.com/54b3r/recall-go/internal/rag"
)

// Extractor turns raw document bytes into ordered text segments.
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) ([]extract.Segment, error)
}

// Splitter cuts text segments into passages.
type Splitter interface {
	Split(segments []extract.Segment) []rag.Passage
}

// Report summarises one successful ingestion.
type Report struct {
	// Document is the normalised name used as the passage id prefix.
	Document string

	// Passages is the number of passages now in the corpus.
	Passages int

	// Segments is the number of extracted segments (pages for a PDF).
	Segments int

	// Duration is the wall-clock time of the whole pipeline.
	Duration time.Duration
}

// Pipeline orchestrates the extract → chunk → embed → replace flow.
type Pipeline struct {
	// extractor parses the uploaded bytes.
	extractor Extractor

	// splitter produces passages from segments.
	splitter Splitter

	// embedder converts passages into dense vectors.
	embedder rag.Embedder

	// index receives the new corpus.
	index *rag.Index

	// mu serialises Ingest so two uploads never interleave their
	// delete and insert phases.
	mu sync.Mutex
}

// NewPipeline constructs a Pipeline from the provided dependencies.
func NewPipeline(extractor Extractor, splitter Splitter, embedder rag.Embedder, index *rag.Index) (*Pipeline, error) {
	if extractor == nil {
		return nil, fmt.Errorf("ingestion: extractor must not be nil")
	}
	if splitter == nil {
		return nil, fmt.Errorf("ingestion: splitter must not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}
	return &Pipeline{extractor: extractor, splitter: splitter, embedder: embedder, index: index}, nil
}

// Ingest indexes data as the only document in the corpus. displayName is
// normalised with NormalizeName to form the passage id prefix.
//
// Extraction failures are *rag.ExtractionError and embedding failures are
// *rag.EmbeddingServiceError; in both cases the existing corpus is left
// untouched because nothing is deleted until every passage is embedded.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, displayName string) (*Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	name := NormalizeName(displayName)
	ctx = logging.With(ctx, slog.String("document", name))
	log := logging.FromContext(ctx)

	segments, err := p.extractor.Extract(ctx, displayName, data)
	if err != nil {
		return nil, err
	}
	annotate(segments, DocumentMetadata(displayName))

	passages := p.splitter.Split(segments)
	if len(passages) == 0 {
		return nil, &rag.ExtractionError{Name: displayName, Err: fmt.Errorf("document produced no passages")}
	}
	log.Info("document chunked", slog.Int("segments", len(segments)), slog.Int("passages", len(passages)))

	texts := make([]string, len(passages))
	for i, ps := range passages {
		texts[i] = ps.Content
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ingestion: embed %s: %w", name, err)
	}

	n, err := p.index.ReplaceAll(ctx, passages, vectors, name)
	if err != nil {
		return nil, fmt.Errorf("ingestion: index %s: %w", name, err)
	}

	report := &Report{
		Document: name,
		Passages: n,
		Segments: len(segments),
		Duration: time.Since(start),
	}
	log.Info("document ingested",
		slog.Int("passages", report.Passages),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

// annotate merges meta into every segment's metadata without overwriting
// keys the extractor already set.
func annotate(segments []extract.Segment, meta map[string]string) {
	for i := range segments {
		if segments[i].Metadata == nil {
			segments[i].Metadata = make(map[string]string, len(meta))
		}
		for k, v := range meta {
			if _, ok := segments[i].Metadata[k]; !ok {
				segments[i].Metadata[k] = v
			}
		}
	}
}
