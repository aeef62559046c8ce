package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/54b3r/recall-go/internal/generate"
	"github.com/54b3r/recall-go/internal/rag"
)

// NewQuizCmd constructs the `recall quiz` command, which generates a quiz
// from the indexed document.
func NewQuizCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Generate a quiz from the indexed document",
		Long: `Generate multiple-choice and true/false questions covering the indexed
document. Use --json for the machine-readable form served by /api/quiz.

Examples:
  recall quiz
  recall quiz --json > quiz.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, true)
			if err != nil {
				return fmt.Errorf("quiz: %w", err)
			}
			defer a.Close()

			items, err := a.assistant.Quiz(ctx)
			if errors.Is(err, rag.ErrEmptyCorpus) {
				return fmt.Errorf("quiz: nothing indexed, ingest a document first")
			}
			if err != nil {
				return fmt.Errorf("quiz: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			printQuiz(cmd.OutOrStdout(), items)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the quiz as JSON")

	return cmd
}

// printQuiz renders items as numbered questions with lettered choices.
// Choices the model already labelled are printed as they are.
func printQuiz(w io.Writer, items []generate.QuizItem) {
	for i, it := range items {
		fmt.Fprintf(w, "%d. %s\n", i+1, it.Question)
		for j, c := range it.Choices {
			if _, labelled := generate.ChoiceLabel(c); labelled {
				fmt.Fprintf(w, "   %s\n", c)
				continue
			}
			fmt.Fprintf(w, "   %c) %s\n", 'A'+j, c)
		}
		fmt.Fprintf(w, "   Answer: %s\n", it.Answer)
		if it.Explanation != "" {
			fmt.Fprintf(w, "   %s\n", it.Explanation)
		}
		fmt.Fprintln(w)
	}
}
