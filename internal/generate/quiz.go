package generate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/recall-go/internal/budget"
	"github.com/54b3r/recall-go/internal/logging"
	"github.com/54b3r/recall-go/internal/rag"
)

// quizContextSeparator joins unrelated stretches of corpus text in the quiz
// context.
const quizContextSeparator = "\n\n"

// Corpus is the bulk-read view of the index used for quizzes.
type Corpus interface {
	GetAll(ctx context.Context) ([]rag.Document, error)
}

// Quizzer generates validated quizzes from the whole corpus.
type Quizzer struct {
	corpus    Corpus
	chain     chain
	timeout   time.Duration
	maxTokens int

	// fixed approximates the prompt without context, for budgeting.
	fixed []*schema.Message
	// examples is the rendered few-shot block.
	examples string
}

// NewQuizzer compiles the quiz chain over corpus.
func NewQuizzer(ctx context.Context, corpus Corpus, cfg *Config) (*Quizzer, error) {
	if corpus == nil {
		return nil, fmt.Errorf("generate: corpus must not be nil")
	}
	if cfg == nil || cfg.ChatModel == nil {
		return nil, fmt.Errorf("generate: ChatModel must not be nil")
	}
	r, err := compileChain(ctx, cfg.ChatModel, quizSystemTemplate, quizUserTemplate)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxTokens := cfg.MaxContextTokens
	if maxTokens <= 0 {
		maxTokens = budget.DefaultMaxContextTokens
	}

	examples := examplesJSON()
	return &Quizzer{
		corpus:    corpus,
		chain:     r,
		timeout:   timeout,
		maxTokens: maxTokens,
		examples:  examples,
		fixed: []*schema.Message{
			schema.SystemMessage(strings.Replace(quizSystemTemplate, "{{.examples}}", examples, 1)),
			schema.UserMessage(strings.Replace(quizUserTemplate, "{{.context}}", "", 1)),
		},
	}, nil
}

// GenerateQuiz builds a quiz from every indexed passage. It returns
// rag.ErrEmptyCorpus when nothing is indexed, *rag.ChatServiceError when the
// model call fails and *rag.MalformedQuizError when the reply is unusable.
func (q *Quizzer) GenerateQuiz(ctx context.Context) ([]QuizItem, error) {
	log := logging.FromContext(ctx)

	docs, err := q.corpus.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate: read corpus: %w", err)
	}
	if len(docs) == 0 {
		return nil, rag.ErrEmptyCorpus
	}

	pieces := contextPieces(docs)
	kept := budget.TrimPieces(q.fixed, pieces, quizContextSeparator, q.maxTokens)
	if dropped := len(pieces) - kept; dropped > 0 {
		log.Warn("budget: dropped corpus text to fit quiz context window",
			slog.Int("dropped_pieces", dropped),
			slog.Int("retained_pieces", kept),
			slog.Int("max_tokens", q.maxTokens),
		)
	}

	start := time.Now()
	reply, err := invoke(ctx, q.chain, "quiz", q.timeout, map[string]any{
		"examples": q.examples,
		"context":  budget.JoinPieces(pieces[:kept], quizContextSeparator),
	})
	if err != nil {
		return nil, err
	}

	items, err := ParseQuiz(reply)
	if err != nil {
		log.Warn("quiz reply rejected",
			slog.String("error", err.Error()),
			slog.String("reply_preview", rag.Preview(reply, 200)),
		)
		return nil, err
	}

	log.Info("quiz generated",
		slog.Int("questions", len(items)),
		slog.Int("passages", len(docs)),
		slog.Duration("duration", time.Since(start)),
	)
	return items, nil
}

// contextPieces rebuilds the corpus text with the chunk overlap removed, so
// each character of a page reaches the quiz prompt once. A passage continues
// the current piece when it comes from the same source and page, starts
// later in the page than the previous passage and repeats the tail of the
// text built so far; only its new runes are kept. Any other passage starts
// a new piece.
func contextPieces(docs []rag.Document) []budget.Piece {
	pieces := make([]budget.Piece, 0, len(docs))
	var (
		prev  *rag.Document
		run   []rune // page text rebuilt so far
		start int    // page offset of run[0]
	)
	for i := range docs {
		d := &docs[i]
		text := []rune(d.Content)
		if prev != nil && d.Source == prev.Source && d.Page == prev.Page &&
			d.Offset > prev.Offset && d.Offset <= start+len(run) {
			from := d.Offset - start
			n := min(len(run)-from, len(text))
			if slices.Equal(run[from:from+n], text[:n]) {
				if n < len(text) {
					run = append(run, text[n:]...)
					pieces = append(pieces, budget.Piece{Text: string(text[n:]), Continues: true})
				}
				prev = d
				continue
			}
		}
		run, start = text, d.Offset
		pieces = append(pieces, budget.Piece{Text: d.Content})
		prev = d
	}
	return pieces
}
