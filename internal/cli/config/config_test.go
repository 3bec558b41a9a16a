package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfigFile writes content to promgen.yaml in a temp dir and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "promgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("database", "", "")
	flags.String("output", "", "")
	flags.String("listen", "", "")
	flags.String("shard", "", "")
	flags.BoolP("verbose", "v", false, "")
	return flags
}

// TestLoadConfig_Defaults tests the built-in values when nothing is configured.
func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabase, cfg.DatabasePath)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, "pmc", cfg.DefaultFarmSource)
	assert.Equal(t, 10*time.Second, cfg.Prometheus.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Alertmanager.Timeout)
	assert.Equal(t, "promtool", cfg.RuleWriter.PromtoolPath)
	assert.Equal(t, []string{"check", "rules"}, cfg.RuleWriter.CheckArgs)
	assert.Equal(t, "yaml", cfg.RuleWriter.Format)
	assert.Equal(t, 30*time.Second, cfg.RuleWriter.Timeout)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

// TestLoadConfig_File tests nested keys, durations and relative paths from a file.
func TestLoadConfig_File(t *testing.T) {
	ResetConfig()

	cfgPath := writeConfigFile(t, `database: state/promgen.db
timezone: Asia/Tokyo
prometheus:
  url: http://prometheus:9090
  timeout: 3s
alertmanager:
  url: http://alertmanager:9093
url_writer:
  path: out/blackbox.json
config_writer:
  path: /etc/prometheus/promgen.json
rule_writer:
  path: out/promgen.rules.yml
  format: legacy
  check_args: [check, rules, --lint=none]
`)
	dir := filepath.Dir(cfgPath)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Equal(t, filepath.Join(dir, "state", "promgen.db"), cfg.DatabasePath)
	assert.Equal(t, "Asia/Tokyo", cfg.Timezone)
	assert.Equal(t, "http://prometheus:9090", cfg.Prometheus.URL)
	assert.Equal(t, 3*time.Second, cfg.Prometheus.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Alertmanager.Timeout, "unset nested key keeps its default")
	assert.Equal(t, filepath.Join(dir, "out", "blackbox.json"), cfg.URLWriter.Path)
	assert.Equal(t, "/etc/prometheus/promgen.json", cfg.ConfigWriter.Path)
	assert.Equal(t, filepath.Join(dir, "out", "promgen.rules.yml"), cfg.RuleWriter.Path)
	assert.Equal(t, "legacy", cfg.RuleWriter.Format)
	assert.Equal(t, []string{"check", "rules", "--lint=none"}, cfg.RuleWriter.CheckArgs)
}

// TestLoadConfig_FileDiscovery tests that promgen.yml is found in the working directory.
func TestLoadConfig_FileDiscovery(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("promgen.yml", []byte("server:\n  listen: 127.0.0.1:9000\n"), 0600))

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "promgen.yml", GetConfigFileUsed())
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
}

// TestLoadConfig_MissingExplicitFile tests that an explicit config path must exist.
func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	ResetConfig()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

// TestLoadConfig_EnvNesting tests the double underscore separator.
func TestLoadConfig_EnvNesting(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	t.Setenv("PROMGEN_PROMETHEUS__URL", "http://from-env:9090")
	t.Setenv("PROMGEN_RULE_WRITER__TIMEOUT", "45s")
	t.Setenv("PROMGEN_LOG_LEVEL", "debug")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:9090", cfg.Prometheus.URL)
	assert.Equal(t, 45*time.Second, cfg.RuleWriter.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

// TestLoadConfig_EnvPrecedenceOverFile tests that env vars override config file.
func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfigFile(t, "server:\n  listen: from-file:1\n")
	t.Setenv("PROMGEN_SERVER__LISTEN", "from-env:2")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "from-env:2", cfg.Server.Listen, "env var should override config file")
}

// TestLoadConfig_FlagPrecedence tests that flags override env vars and config file.
func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfigFile(t, "server:\n  listen: from-file:1\n")
	t.Setenv("PROMGEN_SERVER__LISTEN", "from-env:2")

	flags := newFlagSet()
	require.NoError(t, flags.Set("listen", "from-flag:3"))
	require.NoError(t, flags.Set("database", ":memory:"))
	require.NoError(t, flags.Set("verbose", "true"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, "from-flag:3", cfg.Server.Listen, "flag value should override config file and env var")
	assert.Equal(t, ":memory:", cfg.DatabasePath)
	assert.True(t, cfg.Verbose)
}

// TestLoadConfig_FlagNotSetUsesEnv tests that unset flags fall back to env vars.
func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	t.Setenv("PROMGEN_OUTPUT", "json")

	flags := newFlagSet()
	// Note: not calling flags.Set(), so Changed is false

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.OutputFormat, "env var should be used when flag is not set")
}

// TestLoadConfig_UnmappedFlagsIgnored tests that command arguments do not leak into config.
func TestLoadConfig_UnmappedFlagsIgnored(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	flags := newFlagSet()
	require.NoError(t, flags.Set("shard", "Europe"))

	_, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.False(t, k.Exists("shard"))
}

// TestLoadConfig_FlagDatabaseIsAbsolute tests that a relative --database is resolved against the working directory.
func TestLoadConfig_FlagDatabaseIsAbsolute(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	flags := newFlagSet()
	require.NoError(t, flags.Set("database", "inv.db"))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "inv.db"), cfg.DatabasePath)
}

// TestLoadConfig_Invalid tests that validation runs on the merged result.
func TestLoadConfig_Invalid(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfigFile(t, "rule_writer:\n  format: toml\n")

	_, err := LoadConfig(cfgPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Nil(t, GetCurrentConfig())
}

// TestConfig_Validate tests the Config.Validate method.
func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabasePath: "promgen.db",
			Timezone:     "UTC",
			LogLevel:     "info",
			OutputFormat: "auto",
			RuleWriter:   RuleWriterConfig{Format: "yaml"},
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "legacy format", mutate: func(c *Config) { c.RuleWriter.Format = "legacy" }},
		{name: "empty database", mutate: func(c *Config) { c.DatabasePath = "" }, errSubstr: "database is required"},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "xml" }, errSubstr: "unknown output format"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, errSubstr: "invalid log_level"},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }, errSubstr: "invalid timezone"},
		{name: "bad rule format", mutate: func(c *Config) { c.RuleWriter.Format = "json" }, errSubstr: "unknown rule_writer.format"},
		{name: "negative timeout", mutate: func(c *Config) { c.Prometheus.Timeout = -time.Second }, errSubstr: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "missing logger falls back to discard")

	logger := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
