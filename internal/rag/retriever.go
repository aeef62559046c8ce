package rag

import (
	"context"
	"fmt"
	"strings"
)

// DefaultTopK is the number of passages retrieved when the caller passes 0.
const DefaultTopK = 10

// contextSeparator joins retrieved passages into one context block.
const contextSeparator = "\n\n"

// Context is the grounding material assembled for one question.
type Context struct {
	// Text is the retrieved passages joined in rank order.
	Text string

	// Documents are the retrieved passages, most similar first.
	Documents []Document
}

// Retriever fetches grounding context for a question from the Index.
type Retriever struct {
	// index is the corpus being searched.
	index *Index

	// defaultTopK is the number of results to return when the caller passes 0.
	defaultTopK int
}

// NewRetriever constructs a Retriever over index.
// defaultTopK sets the fallback result count when Retrieve is called with topK=0.
func NewRetriever(index *Index, defaultTopK int) (*Retriever, error) {
	if index == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &Retriever{index: index, defaultTopK: defaultTopK}, nil
}

// Retrieve returns the top-k passages for query joined into one context.
// It returns ErrNoContext when nothing is indexed, so callers never generate
// from an empty context.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (*Context, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	res, err := r.index.Query(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	if res.Len() == 0 {
		return nil, ErrNoContext
	}

	return &Context{
		Text:      strings.Join(res.Texts(), contextSeparator),
		Documents: res.Documents,
	}, nil
}
