package commands

import (
	"strconv"

	"github.com/leapstack-labs/promgen/internal/cli/output"
	"github.com/leapstack-labs/promgen/pkg/core"
	"github.com/spf13/cobra"
)

// statusKinds is the display order of inventory counts.
var statusKinds = []core.Kind{
	core.KindShard,
	core.KindService,
	core.KindFarm,
	core.KindProject,
	core.KindHost,
	core.KindExporter,
	core.KindURL,
	core.KindRule,
}

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show inventory size and configured outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			counts, err := cc.Store.Counts(cmd.Context())
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(counts)
			}

			r.Header(1, "Inventory")
			rows := make([][]string, 0, len(statusKinds))
			for _, k := range statusKinds {
				rows = append(rows, []string{string(k), strconv.Itoa(counts[k])})
			}
			r.Table([]string{"Kind", "Count"}, rows)
			r.Println("")

			r.Header(2, "Configuration")
			r.KeyValue("Database", cc.Cfg.DatabasePath)
			r.KeyValue("Targets file", orUnset(cc.Cfg.URLWriter.Path))
			r.KeyValue("Config file", orUnset(cc.Cfg.ConfigWriter.Path))
			r.KeyValue("Rules file", orUnset(cc.Cfg.RuleWriter.Path))
			r.KeyValue("Prometheus", orUnset(cc.Cfg.Prometheus.URL))
			r.KeyValue("Alertmanager", orUnset(cc.Cfg.Alertmanager.URL))
			return nil
		},
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
