package commands

import (
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command group. Exports always print
// the JSON document Prometheus reads, whatever the output mode.
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print service discovery documents generated from the inventory",
	}
	cmd.AddCommand(newExportTargetsCommand())
	cmd.AddCommand(newExportConfigCommand())
	return cmd
}

func newExportTargetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "Print probe URLs grouped by project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := cc.Exporter().ExportTargets(cmd.Context())
			if err != nil {
				return err
			}
			cc.Renderer.Raw(doc)
			return nil
		},
	}
}

func newExportConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print exporter scrape targets",
		Long: `Print one discovery entry per enabled exporter whose project is linked
to a farm. The targets are every host of the farm at the exporter's port.`,
		Example: `  promgen export config
  promgen export config --service api --project checkout`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := cc.Exporter().ExportExporterConfig(cmd.Context(),
				optionalFlag(cmd, "service"), optionalFlag(cmd, "project"))
			if err != nil {
				return err
			}
			cc.Renderer.Raw(doc)
			return nil
		},
	}
	cmd.Flags().String("service", "", "Only exporters of this service")
	cmd.Flags().String("project", "", "Only exporters of this project")
	return cmd
}
