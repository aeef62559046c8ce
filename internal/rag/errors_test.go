package rag

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, Cosine([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-6)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 2}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 2}))
}

func TestErrorTaxonomy_Unwrap(t *testing.T) {
	t.Parallel()

	base := errors.New("connection refused")

	emb := &EmbeddingServiceError{Index: 3, Text: "hello", StatusCode: 500, Err: base}
	assert.ErrorIs(t, emb, base)
	assert.Contains(t, emb.Error(), "item 3")
	assert.Contains(t, emb.Error(), "status 500")

	chat := &ChatServiceError{Op: "answer", Err: ErrServiceTimeout}
	assert.ErrorIs(t, chat, ErrServiceTimeout)

	ext := &ExtractionError{Name: "a.pdf", Err: base}
	assert.ErrorIs(t, ext, base)
	assert.Contains(t, ext.Error(), `"a.pdf"`)
}

func TestMalformedQuizError_ListsProblems(t *testing.T) {
	t.Parallel()

	err := &MalformedQuizError{Problems: []QuizProblem{
		{Item: -1, Reason: "reply is empty"},
		{Item: 0, Field: "choices", Reason: "want 4, got 3"},
		{Item: 2, Reason: "not an object"},
	}}
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "rag: malformed quiz: "))
	assert.Contains(t, msg, "reply is empty")
	assert.Contains(t, msg, "item 0: choices: want 4, got 3")
	assert.Contains(t, msg, "item 2: not an object")
}

func TestPreview(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", Preview("short", 10))
	assert.Equal(t, "héll...", Preview("héllo world", 4))
}

func TestPassageID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "report_pdf_5", PassageID("report_pdf", 5))
}
