// Package generate drives the chat model for the two generation tasks: a
// plain-text answer grounded in retrieved context, and a structured quiz
// built from the whole indexed corpus. Both are single-exchange eino chains
// (prompt template -> chat model); the quiz reply is validated strictly.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/recall-go/internal/rag"
)

// DefaultTimeout bounds one chat exchange when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Minute

// Config holds the dependencies shared by the generators.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel model.BaseChatModel

	// Timeout bounds each chat exchange (default: 5m).
	Timeout time.Duration

	// MaxContextTokens is the estimated token budget for a quiz prompt.
	// Defaults to budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// chain is a compiled template -> chat model pipeline.
type chain = compose.Runnable[map[string]any, *schema.Message]

// compileChain builds a single-exchange chain from system and user templates.
func compileChain(ctx context.Context, cm model.BaseChatModel, system, user string) (chain, error) {
	tpl := prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)
	c := compose.NewChain[map[string]any, *schema.Message]()
	c.AppendChatTemplate(tpl).AppendChatModel(cm)
	r, err := c.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate: compile chain: %w", err)
	}
	return r, nil
}

// invoke runs one exchange under timeout and maps failures onto
// *rag.ChatServiceError.
func invoke(ctx context.Context, r chain, op string, timeout time.Duration, vars map[string]any) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := r.Invoke(callCtx, vars)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %v", rag.ErrServiceTimeout, timeout, err)
		}
		return "", &rag.ChatServiceError{Op: op, Err: err}
	}
	if msg == nil {
		return "", &rag.ChatServiceError{Op: op, Err: errors.New("model returned no message")}
	}
	return msg.Content, nil
}
