package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/54b3r/recall-go/internal/budget"
	"github.com/54b3r/recall-go/internal/logging"
	"github.com/54b3r/recall-go/internal/rag"
)

// Answerer produces a free-text answer grounded in retrieved context.
type Answerer struct {
	chain   chain
	timeout time.Duration
}

// NewAnswerer compiles the answer chain.
func NewAnswerer(ctx context.Context, cfg *Config) (*Answerer, error) {
	if cfg == nil || cfg.ChatModel == nil {
		return nil, fmt.Errorf("generate: ChatModel must not be nil")
	}
	r, err := compileChain(ctx, cfg.ChatModel, answerSystemPrompt, answerUserTemplate)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Answerer{chain: r, timeout: timeout}, nil
}

// Generate asks the chat model to answer prompt using only contextText and
// returns the reply verbatim. An empty context is refused with
// rag.ErrNoContext so the model is never asked to answer from nothing.
func (a *Answerer) Generate(ctx context.Context, contextText, prompt string) (string, error) {
	if strings.TrimSpace(contextText) == "" {
		return "", rag.ErrNoContext
	}

	log := logging.FromContext(ctx)
	start := time.Now()

	reply, err := invoke(ctx, a.chain, "answer", a.timeout, map[string]any{
		"context": contextText,
		"prompt":  prompt,
	})
	if err != nil {
		return "", err
	}

	log.Info("answer generated",
		slog.Int("context_tokens_est", budget.Estimate(contextText)),
		slog.Int("answer_chars", len(reply)),
		slog.Duration("duration", time.Since(start)),
	)
	return reply, nil
}
