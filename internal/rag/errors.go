package rag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCorpus is returned when an operation needs indexed content and the
// index holds none.
var ErrEmptyCorpus = errors.New("rag: no content indexed")

// ErrNoContext is returned by the Retriever when a query matches nothing.
// It satisfies errors.Is(err, ErrEmptyCorpus).
var ErrNoContext = fmt.Errorf("%w: no relevant context found", ErrEmptyCorpus)

// ErrServiceTimeout marks a model service call that exceeded its deadline.
// It is wrapped inside EmbeddingServiceError and ChatServiceError.
var ErrServiceTimeout = errors.New("rag: model service timed out")

// ExtractionError reports that a document's text could not be obtained.
type ExtractionError struct {
	// Name is the display name of the document.
	Name string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("rag: extract %q: %v", e.Name, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingServiceError reports a failed embedding request. The whole batch
// is aborted; Index identifies the item that failed.
type EmbeddingServiceError struct {
	// Index is the position of the failing text in the batch.
	Index int

	// Text is a short preview of the failing text.
	Text string

	// StatusCode is the HTTP status returned by the service, or 0 when the
	// request never produced a response.
	StatusCode int

	Err error
}

func (e *EmbeddingServiceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rag: embedding item %d", e.Index)
	if e.Text != "" {
		fmt.Fprintf(&b, " (%q)", e.Text)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// ChatServiceError reports a failed chat completion.
type ChatServiceError struct {
	// Op names the generation step, e.g. "answer" or "quiz".
	Op  string
	Err error
}

func (e *ChatServiceError) Error() string {
	return fmt.Sprintf("rag: chat %s: %v", e.Op, e.Err)
}

func (e *ChatServiceError) Unwrap() error { return e.Err }

// QuizProblem is one validation failure found in a generated quiz.
type QuizProblem struct {
	// Item is the 0-based index of the offending item, or -1 for problems
	// with the reply as a whole.
	Item   int
	Field  string
	Reason string
}

func (p QuizProblem) String() string {
	if p.Item < 0 {
		return p.Reason
	}
	if p.Field == "" {
		return fmt.Sprintf("item %d: %s", p.Item, p.Reason)
	}
	return fmt.Sprintf("item %d: %s: %s", p.Item, p.Field, p.Reason)
}

// MalformedQuizError reports that the model's quiz reply could not be used.
// No partial quiz accompanies it.
type MalformedQuizError struct {
	Problems []QuizProblem

	// Err is the underlying decode error, if any.
	Err error
}

func (e *MalformedQuizError) Error() string {
	parts := make([]string, 0, len(e.Problems)+1)
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	for _, p := range e.Problems {
		parts = append(parts, p.String())
	}
	return "rag: malformed quiz: " + strings.Join(parts, "; ")
}

func (e *MalformedQuizError) Unwrap() error { return e.Err }

// Preview shortens s to at most n runes for error messages and logs.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
