package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/promgen/internal/cli/output"
	"github.com/leapstack-labs/promgen/internal/rules"
	"github.com/leapstack-labs/promgen/pkg/core"
	"github.com/spf13/cobra"
)

// NewRulesCommand creates the rules command group.
func NewRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List, render, validate and override alert rules",
	}
	cmd.AddCommand(newRulesListCommand())
	cmd.AddCommand(newRulesRenderCommand())
	cmd.AddCommand(newRulesCheckCommand())
	cmd.AddCommand(newRulesOverrideCommand())
	return cmd
}

func newRulesListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alert rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enabledOnly, _ := cmd.Flags().GetBool("enabled")

			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := cc.Store.ListRules(cmd.Context(), enabledOnly)
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				if list == nil {
					list = []*core.Rule{}
				}
				return r.JSON(list)
			}
			return listRulesText(r, list)
		},
	}
	cmd.Flags().Bool("enabled", false, "Only enabled rules")
	return cmd
}

// listRulesText outputs rules as a table.
func listRulesText(r *output.Renderer, list []*core.Rule) error {
	r.Header(1, fmt.Sprintf("Rules (%d total)", len(list)))
	if len(list) == 0 {
		r.Muted("No rules")
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, rule := range list {
		overrides := make([]string, 0, len(rule.Overrides))
		for _, o := range rule.Overrides {
			overrides = append(overrides, o.Name)
		}
		rows = append(rows, []string{
			rule.Name,
			rule.Owner.String(),
			rule.Duration,
			strconv.FormatBool(rule.Enabled),
			strings.Join(overrides, ", "),
		})
	}
	r.Table([]string{"Name", "Owner", "For", "Enabled", "Overrides"}, rows)
	return nil
}

func newRulesRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the rule file for every enabled rule",
		Long: `Print the rule file generated from every enabled rule, in the format set by
rule_writer.format (yaml or legacy). Nothing is validated or written.`,
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
			text, err := renderer.Render(cmd.Context())
			if err != nil {
				return err
			}
			cc.Renderer.Raw(text)
			return nil
		},
	}
	cmd.Flags().String("format", "", "Rule file format (yaml|legacy), overriding rule_writer.format")
	return cmd
}

func newRulesCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the rule file with promtool",
		Long: `Render every enabled rule and run the validator (promtool check rules by
default) on the result. On failure the validator output is printed.`,
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
			list, err := cc.Store.ListRules(cmd.Context(), true)
			if err != nil {
				return err
			}

			_, err = cc.Checker(renderer).CheckRules(cmd.Context(), list)
			var verr *core.ValidationError
			if errors.As(err, &verr) {
				cc.Renderer.Error("rule validation failed")
				cc.Renderer.Raw(verr.Output)
				return fmt.Errorf("rule validation failed: %w", verr.Err)
			}
			if err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("%d rules valid", len(list)))
			return nil
		},
	}
	cmd.Flags().String("promtool", "", "Validator binary, overriding rule_writer.promtool_path")
	return cmd
}

func newRulesOverrideCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "override <parent> <child>",
		Short: "Record a rule as an override of another",
		Long: `Record child as an override of parent. When parent's condition contains the
<exclude> macro, the rendered rule excludes the owners of its overrides.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := rules.NewImporter(cc.Store, cc.Logger).Override(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("%s overrides %s", args[1], args[0]))
			return nil
		},
	}
}
