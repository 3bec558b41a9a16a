package rules

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/leapstack-labs/promgen/internal/metrics"
	"github.com/leapstack-labs/promgen/pkg/core"
)

// Renderer turns rules into rule file text.
type Renderer struct {
	store     core.Store
	formatter Formatter
}

// NewRenderer creates a Renderer. A nil formatter renders YAML.
func NewRenderer(store core.Store, formatter Formatter) *Renderer {
	if formatter == nil {
		formatter = YAMLFormatter{}
	}
	return &Renderer{store: store, formatter: formatter}
}

// RenderRuleFile formats the enabled rules in rules.
func (r *Renderer) RenderRuleFile(rules []*core.Rule) (string, error) {
	enabled := make([]*core.Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.Enabled {
			enabled = append(enabled, rule)
		}
	}
	return r.formatter.Format(enabled)
}

// Render formats every enabled rule in the store.
func (r *Renderer) Render(ctx context.Context) (string, error) {
	rules, err := r.store.ListRules(ctx, true)
	if err != nil {
		return "", fmt.Errorf("failed to list rules: %w", err)
	}
	return r.RenderRuleFile(rules)
}

// CheckerConfig configures the external rule validator.
type CheckerConfig struct {
	// PromtoolPath is the validator binary.
	PromtoolPath string
	// Args precede the rule file path, e.g. ["check", "rules"].
	Args    []string
	Timeout time.Duration
}

// Checker validates rendered rules with promtool.
type Checker struct {
	renderer *Renderer
	cfg      CheckerConfig
	logger   *slog.Logger
}

// NewChecker creates a Checker. A nil logger discards output.
func NewChecker(renderer *Renderer, cfg CheckerConfig, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.PromtoolPath == "" {
		cfg.PromtoolPath = "promtool"
	}
	if cfg.Args == nil {
		cfg.Args = []string{"check", "rules"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Checker{renderer: renderer, cfg: cfg, logger: logger}
}

// CheckRules renders rules to a temporary file and runs the validator on
// it. The rendered text is returned so callers can write exactly what was
// checked.
func (c *Checker) CheckRules(ctx context.Context, rules []*core.Rule) (string, error) {
	rendered, err := c.renderer.RenderRuleFile(rules)
	if err != nil {
		return "", err
	}
	if err := c.CheckRendered(ctx, rendered); err != nil {
		return "", err
	}
	return rendered, nil
}

// CheckRendered validates already rendered rule text.
func (c *Checker) CheckRendered(ctx context.Context, rendered string) (err error) {
	defer func() {
		metrics.RuleChecksTotal.WithLabelValues(metrics.Result(err)).Inc()
	}()

	fp, err := os.CreateTemp("", "promgen-rules-*.yml")
	if err != nil {
		return fmt.Errorf("failed to create temporary rule file: %w", err)
	}
	defer func() { _ = os.Remove(fp.Name()) }()

	if _, err := fp.WriteString(rendered); err != nil {
		_ = fp.Close()
		return fmt.Errorf("failed to write temporary rule file: %w", err)
	}
	if err := fp.Close(); err != nil {
		return fmt.Errorf("failed to write temporary rule file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	args := append(append([]string{}, c.cfg.Args...), fp.Name())
	c.logger.Debug("checking rules", "cmd", c.cfg.PromtoolPath, "args", args)

	cmd := exec.CommandContext(ctx, c.cfg.PromtoolPath, args...)
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &core.ValidationError{Rendered: rendered, Output: string(out), Err: err}
	}
	return nil
}
