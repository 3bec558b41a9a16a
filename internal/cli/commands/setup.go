package commands

import (
	"log/slog"

	"github.com/leapstack-labs/promgen/internal/cli/config"
	"github.com/leapstack-labs/promgen/internal/cli/output"
	"github.com/leapstack-labs/promgen/internal/discovery"
	"github.com/leapstack-labs/promgen/internal/monitor"
	"github.com/leapstack-labs/promgen/internal/rules"
	"github.com/leapstack-labs/promgen/internal/state"
	"github.com/leapstack-labs/promgen/internal/writer"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    *state.SQLiteStore
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an open store and a
// renderer. Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc, err := NewCommandContextWithoutStore(cmd)
	if err != nil {
		return nil, nil, err
	}

	store, err := state.OpenStore(cmd.Context(), cc.Cfg.DatabasePath, cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	cc.Store = store

	cleanup := func() {
		_ = store.Close()
	}

	return cc, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without a store.
// Useful for commands that only talk to upstream services.
func NewCommandContextWithoutStore(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}, nil
}

// Helper functions shared across commands

// getConfig returns the current configuration, loading defaults, the config
// file and the environment when no command loaded it yet.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

// Reconciler builds the discovery importer.
func (cc *CommandContext) Reconciler() *discovery.Reconciler {
	return discovery.NewReconciler(cc.Store, cc.Logger, discovery.Options{
		DefaultFarmSource: cc.Cfg.DefaultFarmSource,
	})
}

// Exporter builds the service-discovery exporter.
func (cc *CommandContext) Exporter() *discovery.Exporter {
	return discovery.NewExporter(cc.Store, cc.Logger)
}

// RuleRenderer builds the rule renderer in the configured format.
func (cc *CommandContext) RuleRenderer() (*rules.Renderer, error) {
	formatter, err := rules.NewFormatter(cc.Cfg.RuleWriter.Format)
	if err != nil {
		return nil, err
	}
	return rules.NewRenderer(cc.Store, formatter), nil
}

// Checker builds the rule validator around renderer.
func (cc *CommandContext) Checker(renderer *rules.Renderer) *rules.Checker {
	return rules.NewChecker(renderer, rules.CheckerConfig{
		PromtoolPath: cc.Cfg.RuleWriter.PromtoolPath,
		Args:         cc.Cfg.RuleWriter.CheckArgs,
		Timeout:      cc.Cfg.RuleWriter.Timeout,
	}, cc.Logger)
}

// Monitor builds the Prometheus and Alertmanager client.
func (cc *CommandContext) Monitor() *monitor.Client {
	return monitor.NewClient(monitor.Config{
		PrometheusURL:       cc.Cfg.Prometheus.URL,
		PrometheusTimeout:   cc.Cfg.Prometheus.Timeout,
		AlertmanagerURL:     cc.Cfg.Alertmanager.URL,
		AlertmanagerTimeout: cc.Cfg.Alertmanager.Timeout,
	}, cc.Logger)
}

// Writer builds the file writer with reload wired in. Rules are validated
// before they are written when check is true.
func (cc *CommandContext) Writer(check bool) (*writer.Writer, error) {
	renderer, err := cc.RuleRenderer()
	if err != nil {
		return nil, err
	}
	var checker *rules.Checker
	if check {
		checker = cc.Checker(renderer)
	}
	return writer.New(writer.Config{
		Exporter: cc.Exporter(),
		Renderer: renderer,
		Checker:  checker,
		Reloader: cc.Monitor(),
		Paths: writer.Paths{
			Targets: cc.Cfg.URLWriter.Path,
			Config:  cc.Cfg.ConfigWriter.Path,
			Rules:   cc.Cfg.RuleWriter.Path,
		},
		Logger: cc.Logger,
	}), nil
}
