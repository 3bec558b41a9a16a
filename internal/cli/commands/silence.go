package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/promgen/internal/cli/output"
	"github.com/leapstack-labs/promgen/internal/silence"
	"github.com/spf13/cobra"
)

// NewSilenceCommand creates the silence command.
func NewSilenceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "silence label=value...",
		Short: "Silence alerts in Alertmanager",
		Long: `Post a silence matching every given label to Alertmanager.

The window is either --duration from now (a number followed by m, h or d)
or --starts-at and --ends-at. Timestamps are always read in the configured
timezone; an offset in the input is ignored. A value ending in "*" becomes a regular expression
matcher.`,
		Example: `  # Silence one instance for two hours
  promgen silence instance=web01:9100 --duration 2h

  # Silence a service over a maintenance window
  promgen silence service=api job=node* \
    --starts-at "2024-03-01 22:00" --ends-at "2024-03-02 02:00" \
    --comment "kernel upgrade" --created-by ops`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSilence,
	}
	cmd.Flags().String("duration", "", "Silence length from now, e.g. 30m, 2h, 1d")
	cmd.Flags().String("starts-at", "", "Start of the silence window")
	cmd.Flags().String("ends-at", "", "End of the silence window")
	cmd.Flags().String("comment", "", "Comment stored with the silence")
	cmd.Flags().String("created-by", "", "Author stored with the silence")
	cmd.MarkFlagsMutuallyExclusive("duration", "starts-at")
	cmd.MarkFlagsMutuallyExclusive("duration", "ends-at")
	cmd.MarkFlagsRequiredTogether("starts-at", "ends-at")
	return cmd
}

func runSilence(cmd *cobra.Command, args []string) error {
	labels, err := parseLabelArgs(args)
	if err != nil {
		return err
	}

	var window *silence.TimeWindow
	if cmd.Flags().Changed("starts-at") {
		startsAt, _ := cmd.Flags().GetString("starts-at")
		endsAt, _ := cmd.Flags().GetString("ends-at")
		window = &silence.TimeWindow{StartsAt: startsAt, EndsAt: endsAt}
	}

	cc, err := NewCommandContextWithoutStore(cmd)
	if err != nil {
		return err
	}

	req, err := silence.BuildSilence(labels, optionalFlag(cmd, "duration"), window, cc.Cfg.Timezone)
	if err != nil {
		return err
	}
	req.Comment, _ = cmd.Flags().GetString("comment")
	req.CreatedBy, _ = cmd.Flags().GetString("created-by")

	if err := cc.Monitor().PostSilence(cmd.Context(), req); err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(req)
	}
	r.Success("silence created")
	r.KeyValue("Starts", req.StartsAt)
	r.KeyValue("Ends", req.EndsAt)
	for _, m := range req.Matchers {
		op := "="
		if m.IsRegex {
			op = "=~"
		}
		r.KeyValue("Matcher", m.Name+op+m.Value)
	}
	return nil
}

// parseLabelArgs converts name=value arguments into a label set.
func parseLabelArgs(args []string) (map[string]string, error) {
	labels := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid label %q, expected name=value", arg)
		}
		labels[strings.TrimSpace(name)] = value
	}
	return labels, nil
}
