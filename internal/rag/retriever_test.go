package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRetriever_Defaults(t *testing.T) {
	t.Parallel()

	_, err := NewRetriever(nil, 0)
	assert.Error(t, err)

	idx, _, _ := newTestIndex(t)
	r, err := NewRetriever(idx, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, r.defaultTopK)
}

func TestRetriever_EmptyCorpusSignalsNoContext(t *testing.T) {
	t.Parallel()
	idx, _, _ := newTestIndex(t)
	r, err := NewRetriever(idx, 10)
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "what is this?", 0)
	require.ErrorIs(t, err, ErrNoContext)
	assert.True(t, errors.Is(err, ErrEmptyCorpus))
}

func TestRetriever_JoinsPassagesInRankOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx, _, _ := newTestIndex(t)

	ps, vs := passages("cats purr", "dogs bark", "cats and cats")
	_, err := idx.ReplaceAll(ctx, ps, vs, "pets")
	require.NoError(t, err)

	r, err := NewRetriever(idx, 2)
	require.NoError(t, err)

	got, err := r.Retrieve(ctx, "cats", 0)
	require.NoError(t, err)
	require.Len(t, got.Documents, 2)
	assert.Equal(t, got.Documents[0].Content+"\n\n"+got.Documents[1].Content, got.Text)
	for _, d := range got.Documents {
		assert.Contains(t, got.Text, d.Content)
	}
}

func TestRetriever_EmbeddingErrorPassesThrough(t *testing.T) {
	t.Parallel()
	idx, _, emb := newTestIndex(t)
	emb.err = &EmbeddingServiceError{Err: ErrServiceTimeout}

	r, err := NewRetriever(idx, 0)
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "q", 0)
	require.ErrorIs(t, err, ErrServiceTimeout)
	assert.NotErrorIs(t, err, ErrNoContext)
}
