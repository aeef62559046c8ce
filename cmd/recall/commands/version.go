package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/recall-go/internal/version"
)

// NewVersionCmd constructs the `recall version` subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the recall version, git commit, and build date",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
