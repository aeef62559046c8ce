// Package budget provides token budget estimation and context trimming for
// prompts sent to the chat model. Because several LLM backends with different
// tokenizers are supported, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose).
package budget

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Sized to fit 8k-context models (Llama 3.2 3B, GPT-3.5) with room left
	// for the output. Override via QUIZ_MAX_CONTEXT_TOKENS.
	DefaultMaxContextTokens = 6000

	// messageOverhead is the per-message framing cost in most chat APIs.
	messageOverhead = 4
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += messageOverhead
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// Piece is a span of context text. A piece with Continues set extends the
// previous piece directly; any other piece is joined to it with a separator.
type Piece struct {
	Text      string
	Continues bool
}

// TrimPassages keeps the longest leading run of passages whose estimated
// size, added to the fixed prompt messages, fits within maxTokens. Passages
// are dropped from the end so the kept context stays in document order.
//
// fixed holds the messages that are always sent (system prompt, instruction).
// If fixed alone exceeds the budget the first passage is still kept, so the
// model always has something to work from; callers should warn separately.
func TrimPassages(fixed []*schema.Message, passages []string, sep string, maxTokens int) []string {
	pieces := make([]Piece, len(passages))
	for i, p := range passages {
		pieces[i] = Piece{Text: p}
	}
	return passages[:TrimPieces(fixed, pieces, sep, maxTokens)]
}

// TrimPieces returns how many leading pieces fit within maxTokens after the
// fixed messages. The separator is charged only before pieces that do not
// continue the previous one. As with TrimPassages the first piece is always
// kept.
func TrimPieces(fixed []*schema.Message, pieces []Piece, sep string, maxTokens int) int {
	if len(pieces) == 0 || maxTokens <= 0 {
		return len(pieces)
	}

	used := EstimateMessages(fixed)
	sepTokens := Estimate(sep)
	for i, p := range pieces {
		cost := Estimate(p.Text)
		if i > 0 && !p.Continues {
			cost += sepTokens
		}
		if used+cost > maxTokens {
			return max(i, 1)
		}
		used += cost
	}
	return len(pieces)
}

// JoinPieces concatenates pieces, writing sep before every piece after the
// first that does not continue its predecessor.
func JoinPieces(pieces []Piece, sep string) string {
	var b strings.Builder
	for i, p := range pieces {
		if i > 0 && !p.Continues {
			b.WriteString(sep)
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
