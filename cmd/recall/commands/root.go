// Package commands defines all Cobra CLI commands for the recall binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/recall-go/internal/audit"
	"github.com/54b3r/recall-go/internal/config"
	"github.com/54b3r/recall-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "recall",
		Short: "Recall: ask questions about a document and quiz yourself on it",
		Long: `Recall indexes one document (PDF, text or Markdown) and uses a language
model to answer questions grounded in it or to generate study quizzes.

Each ingest replaces the indexed document. The chat model is selected via
MODEL_PROVIDER, embeddings via EMBEDDING_PROVIDER, and the index backend via
RECALL_STORE. Values may also come from ./.env or a YAML config file
(~/.recall/config.yaml); environment variables always win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env first so LOG_LEVEL and LOG_FORMAT from it take effect.
			if err := config.LoadDotEnv(logging.Discard()); err != nil {
				return err
			}
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			ctx := logging.WithLogger(cmd.Context(), log)
			cmd.SetContext(ctx)

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(ctx, log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.recall/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewAskCmd(),
		NewQuizCmd(),
		NewVersionCmd(),
	)

	return root
}
