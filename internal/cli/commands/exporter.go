package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/promgen/internal/cli/output"
	"github.com/leapstack-labs/promgen/pkg/core"
	"github.com/spf13/cobra"
)

// NewExporterCommand creates the exporter command group.
func NewExporterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exporter",
		Short: "List, enable and disable exporters",
	}
	cmd.AddCommand(newExporterListCommand())
	cmd.AddCommand(newExporterToggleCommand("enable", true))
	cmd.AddCommand(newExporterToggleCommand("disable", false))
	return cmd
}

// exporterJSON is the JSON shape of an exporter listing.
type exporterJSON struct {
	ID      string `json:"id"`
	Job     string `json:"job"`
	Port    int    `json:"port"`
	Path    string `json:"path,omitempty"`
	Enabled bool   `json:"enabled"`
	Project string `json:"project"`
	Service string `json:"service"`
	Shard   string `json:"shard"`
	Farm    string `json:"farm,omitempty"`
}

func newExporterListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List exporters with their project and farm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			exporters, err := cc.Store.ListExporterTargets(cmd.Context())
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(exportersJSON(exporters))
			}
			return listExportersText(r, exporters)
		},
	}
}

func exportersJSON(exporters []core.ExporterTarget) []exporterJSON {
	out := make([]exporterJSON, 0, len(exporters))
	for _, e := range exporters {
		out = append(out, exporterJSON{
			ID:      e.ID,
			Job:     e.Job,
			Port:    e.Port,
			Path:    e.Path,
			Enabled: e.Enabled,
			Project: e.ProjectName,
			Service: e.ServiceName,
			Shard:   e.ShardName,
			Farm:    e.FarmName,
		})
	}
	return out
}

// listExportersText outputs exporters as a table.
func listExportersText(r *output.Renderer, exporters []core.ExporterTarget) error {
	r.Header(1, fmt.Sprintf("Exporters (%d total)", len(exporters)))
	if len(exporters) == 0 {
		r.Muted("No exporters")
		return nil
	}

	rows := make([][]string, 0, len(exporters))
	for _, e := range exporters {
		farm := e.FarmName
		if farm == "" {
			farm = "-"
		}
		rows = append(rows, []string{
			e.ID,
			e.Job,
			strconv.Itoa(e.Port),
			e.ServiceName + "/" + e.ProjectName,
			farm,
			strconv.FormatBool(e.Enabled),
		})
	}
	r.Table([]string{"ID", "Job", "Port", "Project", "Farm", "Enabled"}, rows)
	return nil
}

func newExporterToggleCommand(verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: fmt.Sprintf("%s an exporter in the generated scrape configuration", capitalizeFirst(verb)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cc.Store.SetExporterEnabled(cmd.Context(), args[0], enabled); err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("exporter %s %sd", args[0], verb))
			return nil
		},
	}
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
