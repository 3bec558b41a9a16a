package commands

import (
	"fmt"

	"github.com/leapstack-labs/promgen/internal/cli/output"
	"github.com/leapstack-labs/promgen/pkg/core"
	"github.com/spf13/cobra"
)

// NewURLCommand creates the url command group.
func NewURLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Manage probe URLs",
	}
	cmd.AddCommand(newURLAddCommand())
	return cmd
}

func newURLAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add <url>",
		Short:   "Attach a probe URL to a project",
		Example: `  promgen url add https://shop.example.com/health --service api --project checkout`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serviceName, _ := cmd.Flags().GetString("service")
			projectName, _ := cmd.Flags().GetString("project")

			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			svc, err := cc.Store.GetServiceByName(ctx, serviceName)
			if err != nil {
				return err
			}
			project, err := cc.Store.GetProject(ctx, projectName, svc.ID)
			if err != nil {
				return err
			}
			u, created, err := cc.Store.UpsertURL(ctx, args[0], project.ID)
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(struct {
					URL     *core.URL `json:"url"`
					Created bool      `json:"created"`
				}{u, created})
			}
			if created {
				r.Success(fmt.Sprintf("added %s to %s/%s", u.URL, serviceName, projectName))
			} else {
				r.Muted(fmt.Sprintf("%s already registered", u.URL))
			}
			return nil
		},
	}
	cmd.Flags().String("service", "", "Service owning the project")
	cmd.Flags().String("project", "", "Project the URL belongs to")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
