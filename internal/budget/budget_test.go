package budget

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcde", 1},    // 5 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_EstimateMessages(t *testing.T) {
	t.Parallel()
	msgs := []*schema.Message{
		schema.UserMessage("hello world"),
		schema.UserMessage("hello world"),
	}
	// Each message: 4 overhead + Estimate("user")=1 + Estimate("hello world")=2 = 7
	if got := EstimateMessages(msgs); got != 14 {
		t.Errorf("EstimateMessages = %d, want 14", got)
	}
}

func Test_TrimPassages_NoTrimNeeded(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{schema.SystemMessage("sys")}
	passages := []string{"first passage", "second passage"}

	got := TrimPassages(fixed, passages, " ", DefaultMaxContextTokens)
	if len(got) != 2 {
		t.Errorf("want 2 passages, got %d", len(got))
	}
}

func Test_TrimPassages_DropsFromEnd(t *testing.T) {
	t.Parallel()
	// fixed: 4 overhead + 1 (role "system") = 5 tokens; separator " " costs 1
	fixed := []*schema.Message{schema.SystemMessage("")}
	passages := []string{
		strings.Repeat("a", 40), // 10 tokens
		strings.Repeat("b", 40), // 10 tokens + 1 separator
		strings.Repeat("c", 40), // 10 tokens
	}

	got := TrimPassages(fixed, passages, " ", 27)
	if len(got) != 2 {
		t.Fatalf("want 2 passages kept, got %d", len(got))
	}
	if got[0] != passages[0] || got[1] != passages[1] {
		t.Error("kept passages must be the leading ones in order")
	}
}

func Test_TrimPassages_AlwaysKeepsFirst(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{schema.SystemMessage(strings.Repeat("s", 400))}
	passages := []string{strings.Repeat("a", 400), "b"}

	got := TrimPassages(fixed, passages, "\n\n", 10)
	if len(got) != 1 || got[0] != passages[0] {
		t.Errorf("want only the first passage, got %d", len(got))
	}
}

func Test_TrimPassages_Empty(t *testing.T) {
	t.Parallel()
	if got := TrimPassages(nil, nil, " ", 100); len(got) != 0 {
		t.Errorf("want empty, got %v", got)
	}
}

func Test_TrimPieces_ContinuationsSkipSeparator(t *testing.T) {
	t.Parallel()
	// fixed: 5 tokens; each piece 10 tokens; separator "\n\n\n\n" costs 1
	fixed := []*schema.Message{schema.SystemMessage("")}
	pieces := []Piece{
		{Text: strings.Repeat("a", 40)},
		{Text: strings.Repeat("b", 40), Continues: true},
		{Text: strings.Repeat("c", 40)},
	}

	if got := TrimPieces(fixed, pieces, "\n\n\n\n", 25); got != 2 {
		t.Errorf("want 2 pieces kept, got %d", got)
	}
	// The third piece needs 10 + 1 separator token.
	if got := TrimPieces(fixed, pieces, "\n\n\n\n", 35); got != 2 {
		t.Errorf("want 2 pieces kept at 35, got %d", got)
	}
	if got := TrimPieces(fixed, pieces, "\n\n\n\n", 36); got != 3 {
		t.Errorf("want 3 pieces kept at 36, got %d", got)
	}
}

func Test_JoinPieces(t *testing.T) {
	t.Parallel()
	pieces := []Piece{
		{Text: "The quick"},
		{Text: " brown fox", Continues: true},
		{Text: "Page two"},
	}
	if got, want := JoinPieces(pieces, "\n\n"), "The quick brown fox\n\nPage two"; got != want {
		t.Errorf("JoinPieces = %q, want %q", got, want)
	}
}
