package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/promgen/internal/writer"
	"github.com/leapstack-labs/promgen/pkg/core"
	"github.com/spf13/cobra"
)

// writeTarget is one file the write command can produce.
type writeTarget struct {
	name  string
	short string
	write func(w *writer.Writer, ctx context.Context, path string, reload bool) error
	path  func(p writer.Paths) string
}

var writeTargets = []writeTarget{
	{
		name:  "targets",
		short: "Write the probe URL target file (url_writer.path)",
		write: (*writer.Writer).WriteTargets,
		path:  func(p writer.Paths) string { return p.Targets },
	},
	{
		name:  "config",
		short: "Write the exporter target file (config_writer.path)",
		write: (*writer.Writer).WriteConfig,
		path:  func(p writer.Paths) string { return p.Config },
	},
	{
		name:  "rules",
		short: "Validate and write the rule file (rule_writer.path)",
		write: (*writer.Writer).WriteRules,
		path:  func(p writer.Paths) string { return p.Rules },
	},
}

// NewWriteCommand creates the write command group.
func NewWriteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write generated files and reload Prometheus",
		Long: `Render generated files from the inventory and replace them atomically.
Prometheus is reloaded afterwards unless --no-reload is given. A rule file
that fails validation is never written.`,
	}
	cmd.PersistentFlags().Bool("no-reload", false, "Do not reload Prometheus after writing")
	cmd.PersistentFlags().Bool("no-check", false, "Write rules without running the validator")
	cmd.PersistentFlags().String("promtool", "", "Validator binary, overriding rule_writer.promtool_path")

	for _, t := range writeTargets {
		cmd.AddCommand(newWriteFileCommand(t))
	}
	cmd.AddCommand(newWriteAllCommand())
	return cmd
}

func newWriteFileCommand(t writeTarget) *cobra.Command {
	cmd := &cobra.Command{
		Use:   t.name,
		Short: t.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("path")
			return runWrite(cmd, func(ctx context.Context, w *writer.Writer, reload bool) (string, error) {
				dest := path
				if dest == "" {
					dest = t.path(w.Paths())
				}
				return dest, t.write(w, ctx, path, reload)
			})
		},
	}
	cmd.Flags().String("path", "", "Destination overriding the configured path")
	return cmd
}

func newWriteAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Write every configured file, then reload once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWrite(cmd, func(ctx context.Context, w *writer.Writer, reload bool) (string, error) {
				p := w.Paths()
				var written []string
				for _, dest := range []string{p.Targets, p.Config, p.Rules} {
					if dest != "" {
						written = append(written, dest)
					}
				}
				return strings.Join(written, ", "), w.WriteAll(ctx, reload)
			})
		},
	}
}

func runWrite(cmd *cobra.Command, write func(ctx context.Context, w *writer.Writer, reload bool) (string, error)) error {
	noReload, _ := cmd.Flags().GetBool("no-reload")
	noCheck, _ := cmd.Flags().GetBool("no-check")

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	w, err := cc.Writer(!noCheck)
	if err != nil {
		return err
	}

	dest, err := write(cmd.Context(), w, !noReload)
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		cc.Renderer.Error("rule validation failed, file not written")
		cc.Renderer.Raw(verr.Output)
		return fmt.Errorf("rule validation failed: %w", verr.Err)
	}
	if err != nil {
		return err
	}

	cc.Renderer.Success("wrote " + dest)
	if !noReload {
		cc.Renderer.Success("reloaded Prometheus")
	}
	return nil
}
