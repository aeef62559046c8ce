package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

// NewIngestCmd constructs the `recall ingest` command, which indexes a local
// document in place of whatever was indexed before.
func NewIngestCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Index a document, replacing the current one",
		Long: `Extract, chunk and embed a document and store it in the index.

PDF, plain text and Markdown are supported. The previous document is removed
only once the new one has been fully embedded, so a failed ingest leaves the
index unchanged.

Examples:
  recall ingest ./lecture-notes.pdf
  recall ingest ./chapter3.md --name "Chapter 3.md"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			if name == "" {
				name = filepath.Base(path)
			}

			a, err := newApp(ctx, false)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer a.Close()

			report, err := a.pipeline.Ingest(ctx, data, name)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s: %d passages from %d segments in %s\n",
				report.Document, report.Passages, report.Segments, report.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name for the document (default: the file name)")

	return cmd
}
