package commands

import (
	"github.com/spf13/cobra"
)

// NewReloadCommand creates the reload command.
func NewReloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask Prometheus to reload its configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContextWithoutStore(cmd)
			if err != nil {
				return err
			}
			if err := cc.Monitor().Reload(cmd.Context()); err != nil {
				return err
			}
			cc.Renderer.Success("reloaded Prometheus")
			return nil
		},
	}
}
