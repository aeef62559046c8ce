package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/recall-go/internal/logging"
	"github.com/54b3r/recall-go/internal/server"
)

// NewServeCmd constructs the `recall serve` command, which starts the HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the recall HTTP API",
		Long: `Start the recall HTTP API.

Routes:
  POST /api/upload   multipart field "file", replaces the indexed document
  POST /api/prompt   {"prompt": "..."} answered from the indexed document
  POST /api/quiz     generate a quiz from the indexed document
  GET  /api/health   liveness
  GET  /api/ready    dependency readiness
  GET  /metrics      Prometheus metrics

Set RECALL_API_KEY to require a bearer token on the /api pipeline routes.

Examples:
  recall serve
  recall serve --port 9090
  MODEL_PROVIDER=openai RECALL_STORE=qdrant QDRANT_HOST=localhost recall serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			a, err := newApp(ctx, true)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.Close()

			s := a.settings
			if cmd.Flags().Changed("host") {
				s.Host = host
			}
			if cmd.Flags().Changed("port") {
				s.Port = port
			}

			srv, err := server.New(a.assistant, &server.Config{
				Host:           s.Host,
				Port:           s.Port,
				Logger:         log,
				Pingers:        a.pingers(),
				APIKey:         s.APIKey,
				CORSOrigins:    s.CORSOrigins,
				MaxUploadBytes: s.MaxUploadBytes,
				Corpus:         a.index,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (overrides RECALL_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on (overrides RECALL_PORT)")

	return cmd
}
