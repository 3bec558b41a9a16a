package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/promgen/internal/cli/output"
)

// ruleFormats lists the accepted rule_writer.format values.
var ruleFormats = []string{"yaml", "legacy"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database is required")
	}
	if !output.ValidMode(c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (expected one of %s)", c.OutputFormat, strings.Join(output.Modes, ", "))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if !contains(ruleFormats, c.RuleWriter.Format) {
		return fmt.Errorf("unknown rule_writer.format %q (expected one of %s)", c.RuleWriter.Format, strings.Join(ruleFormats, ", "))
	}
	if c.Prometheus.Timeout < 0 || c.Alertmanager.Timeout < 0 || c.RuleWriter.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// ParseLogLevel converts a log_level value to a slog level. An empty value
// is info.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return level, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
