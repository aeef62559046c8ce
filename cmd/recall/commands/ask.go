package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/recall-go/internal/rag"
)

// NewAskCmd constructs the `recall ask` command, which answers a question
// from the indexed document.
func NewAskCmd() *cobra.Command {
	var topK int
	var showContext bool

	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask a question about the indexed document",
		Long: `Retrieve the passages most similar to the question and have the model
answer from them.

Examples:
  recall ask "what is the main finding of chapter 2?"
  recall ask --top-k 4 --show-context "define entropy"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			a, err := newApp(ctx, true)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer a.Close()

			question := strings.Join(args, " ")
			ans, err := a.assistant.AskTopK(ctx, question, topK)
			if errors.Is(err, rag.ErrEmptyCorpus) {
				return fmt.Errorf("ask: no relevant context found, ingest a document first")
			}
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Fprintln(out, ans.Answer)
			if showContext {
				fmt.Fprintln(out, "\n--- context ---")
				for _, d := range ans.Sources {
					fmt.Fprintf(out, "[%s page %d, score %.3f]\n%s\n\n", d.ID, d.Page, d.Score, d.Content)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of passages to retrieve (default: RETRIEVAL_TOP_K or 10)")
	cmd.Flags().BoolVar(&showContext, "show-context", false, "Print the retrieved passages after the answer")

	return cmd
}
