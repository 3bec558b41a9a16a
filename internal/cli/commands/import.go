package commands

import (
	"github.com/leapstack-labs/promgen/internal/discovery"
	"github.com/leapstack-labs/promgen/internal/rules"
	"github.com/leapstack-labs/promgen/pkg/core"
	"github.com/spf13/cobra"
)

// NewImportCommand creates the import command group.
func NewImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import inventory from discovery documents and rule files",
	}
	cmd.AddCommand(newImportTargetsCommand())
	cmd.AddCommand(newImportRulesCommand())
	return cmd
}

func newImportTargetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets [file|-]",
		Short: "Import a file-based service discovery document",
		Long: `Import a Prometheus file_sd document into the inventory.

Every entry must carry service, farm, project and job labels; __shard and
__farm_source are optional. Each target "host:port" becomes a host in the
farm and an exporter on the project. Existing entities are left untouched,
so importing the same document twice creates nothing the second time.`,
		Example: `  # Import a document
  promgen import targets targets.json

  # Import everything into one shard
  promgen import targets --shard Europe < targets.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportTargets(cmd, args, optionalFlag(cmd, "shard"))
		},
	}
	cmd.Flags().String("shard", "", "Shard name overriding every entry's __shard label")
	cmd.Flags().String("default-farm-source", "", "Source of farms created without a __farm_source label")
	return cmd
}

func runImportTargets(cmd *cobra.Command, args []string, shard *string) error {
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	entries, err := discovery.ParseDiscoveryDocument(data)
	if err != nil {
		return err
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	created, skipped, err := cc.Reconciler().Reconcile(cmd.Context(), entries, shard)
	if err != nil {
		return err
	}
	return renderImportResult(cc.Renderer, "Imported targets", created, skipped)
}

func newImportRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules [file|-]",
		Short: "Import alert rules in the legacy text format",
		Long: `Import alert rules written in the legacy Prometheus 1.x text format.

Each rule starts with ALERT and needs IF and FOR; LABELS and ANNOTATIONS
are optional. Rules are owned by --service when given, otherwise by the
service named in the rule's service label, otherwise by the Default
service. A rule whose name already exists is not changed.`,
		Example: `  promgen import rules legacy.rules
  promgen import rules --service api < legacy.rules`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportRules(cmd, args, optionalFlag(cmd, "service"))
		},
	}
	cmd.Flags().String("service", "", "Service owning every imported rule")
	return cmd
}

func runImportRules(cmd *cobra.Command, args []string, serviceName *string) error {
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var service *core.Service
	if serviceName != nil {
		service, err = cc.Store.GetServiceByName(cmd.Context(), *serviceName)
		if err != nil {
			return err
		}
	}

	created, err := rules.NewImporter(cc.Store, cc.Logger).ParseRules(cmd.Context(), string(data), service)
	if err != nil {
		return err
	}
	return renderImportResult(cc.Renderer, "Imported rules", created, nil)
}
