// Package assistant is the entry point shared by the CLI and the HTTP server.
// It composes the ingestion pipeline, the retriever and the two generators
// into the three user-facing operations: ingest a document, ask a question
// about it and build a quiz from it.
package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/54b3r/recall-go/internal/generate"
	"github.com/54b3r/recall-go/internal/ingestion"
	"github.com/54b3r/recall-go/internal/logging"
	"github.com/54b3r/recall-go/internal/rag"
)

// Ingester indexes a document.
type Ingester interface {
	Ingest(ctx context.Context, data []byte, displayName string) (*ingestion.Report, error)
}

// Retriever fetches grounding context for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (*rag.Context, error)
}

// AnswerGenerator answers a prompt from context.
type AnswerGenerator interface {
	Generate(ctx context.Context, contextText, prompt string) (string, error)
}

// QuizGenerator builds a quiz from the corpus.
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context) ([]generate.QuizItem, error)
}

// Config holds the dependencies required to construct an Assistant.
type Config struct {
	// Ingester runs the extract → chunk → embed → replace pipeline.
	Ingester Ingester

	// Retriever supplies context for Ask.
	Retriever Retriever

	// Answerer produces the answer text.
	Answerer AnswerGenerator

	// Quizzer produces quizzes.
	Quizzer QuizGenerator

	// TopK is the number of passages retrieved per question.
	// Defaults to rag.DefaultTopK if zero.
	TopK int
}

// Answer is the result of Ask.
type Answer struct {
	// Answer is the model's reply, verbatim.
	Answer string `json:"response"`

	// Context is the retrieved text the answer was grounded on.
	Context string `json:"context"`

	// Sources are the retrieved passages, most similar first.
	Sources []rag.Document `json:"-"`
}

// Assistant answers questions about, and builds quizzes from, the single
// indexed document.
type Assistant struct {
	ingester  Ingester
	retriever Retriever
	answerer  AnswerGenerator
	quizzer   QuizGenerator
	topK      int
}

// New constructs an Assistant from the provided Config.
func New(cfg *Config) (*Assistant, error) {
	if cfg == nil {
		return nil, fmt.Errorf("assistant: config must not be nil")
	}
	if cfg.Ingester == nil {
		return nil, fmt.Errorf("assistant: Ingester must not be nil")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("assistant: Retriever must not be nil")
	}
	if cfg.Answerer == nil {
		return nil, fmt.Errorf("assistant: Answerer must not be nil")
	}
	if cfg.Quizzer == nil {
		return nil, fmt.Errorf("assistant: Quizzer must not be nil")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	return &Assistant{
		ingester:  cfg.Ingester,
		retriever: cfg.Retriever,
		answerer:  cfg.Answerer,
		quizzer:   cfg.Quizzer,
		topK:      topK,
	}, nil
}

// Ingest replaces the corpus with the given document and returns the
// ingestion report. See ingestion.Pipeline.Ingest for the error contract.
func (a *Assistant) Ingest(ctx context.Context, data []byte, displayName string) (*ingestion.Report, error) {
	return a.ingester.Ingest(ctx, data, displayName)
}

// Ask answers prompt from the configured number of retrieved passages.
func (a *Assistant) Ask(ctx context.Context, prompt string) (*Answer, error) {
	return a.AskTopK(ctx, prompt, a.topK)
}

// AskTopK answers prompt from at most topK retrieved passages. It returns
// rag.ErrNoContext when nothing relevant is indexed; the model is not called
// in that case.
func (a *Assistant) AskTopK(ctx context.Context, prompt string, topK int) (*Answer, error) {
	if topK <= 0 {
		topK = a.topK
	}
	log := logging.FromContext(ctx)

	rc, err := a.retriever.Retrieve(ctx, prompt, topK)
	if err != nil {
		return nil, err
	}
	log.Debug("context retrieved", slog.Int("passages", len(rc.Documents)), slog.Int("top_k", topK))

	reply, err := a.answerer.Generate(ctx, rc.Text, prompt)
	if err != nil {
		return nil, err
	}
	return &Answer{Answer: reply, Context: rc.Text, Sources: rc.Documents}, nil
}

// Quiz generates a quiz from the whole corpus. Failures are returned as-is;
// transports decide how to render them.
func (a *Assistant) Quiz(ctx context.Context) ([]generate.QuizItem, error) {
	return a.quizzer.GenerateQuiz(ctx)
}
