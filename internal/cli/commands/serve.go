package commands

import (
	"github.com/leapstack-labs/promgen/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve generated files and metrics over HTTP",
		Long: `Start a read-only HTTP server exposing the generated files:

  GET /api/v1/targets   probe URL targets
  GET /api/v1/config    exporter targets (?service= and ?project= filters)
  GET /api/v1/rules     rule file
  GET /metrics          promgen's own metrics
  GET /-/healthy        liveness

The server stops gracefully on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			renderer, err := cc.RuleRenderer()
			if err != nil {
				return err
			}

			srv := server.New(server.Config{
				Exporter: cc.Exporter(),
				Renderer: renderer,
				Listen:   cc.Cfg.Server.Listen,
				Logger:   cc.Logger,
			})
			cc.Renderer.Println("Serving on " + cc.Cfg.Server.Listen)
			cc.Renderer.Muted("Press Ctrl+C to stop")
			return srv.Serve(cmd.Context())
		},
	}
	cmd.Flags().String("listen", "", "Address to listen on, overriding server.listen")
	return cmd
}
