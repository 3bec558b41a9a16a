// Package config provides configuration management for the promgen CLI.
//
// Values are layered, lowest precedence first: built-in defaults, the
// promgen.yaml file, PROMGEN_ environment variables and explicitly set
// command-line flags.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	DatabasePath      string           `koanf:"database"`
	Timezone          string           `koanf:"timezone"`
	LogLevel          string           `koanf:"log_level"`
	Verbose           bool             `koanf:"verbose"`
	OutputFormat      string           `koanf:"output"`
	DefaultFarmSource string           `koanf:"default_farm_source"`
	Prometheus        EndpointConfig   `koanf:"prometheus"`
	Alertmanager      EndpointConfig   `koanf:"alertmanager"`
	URLWriter         WriterConfig     `koanf:"url_writer"`
	ConfigWriter      WriterConfig     `koanf:"config_writer"`
	RuleWriter        RuleWriterConfig `koanf:"rule_writer"`
	Server            ServerConfig     `koanf:"server"`
}

// EndpointConfig addresses an upstream HTTP API.
type EndpointConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// WriterConfig holds the destination of a generated file.
type WriterConfig struct {
	Path string `koanf:"path"`
}

// RuleWriterConfig configures rendering and validation of the rule file.
type RuleWriterConfig struct {
	Path         string        `koanf:"path"`
	PromtoolPath string        `koanf:"promtool_path"`
	CheckArgs    []string      `koanf:"check_args"`
	Format       string        `koanf:"format"`
	Timeout      time.Duration `koanf:"timeout"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Listen string `koanf:"listen"`
}

// Default configuration values.
const (
	DefaultDatabase     = ".promgen/promgen.db"
	DefaultTimezone     = "UTC"
	DefaultLogLevel     = "info"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultRuleFormat   = "yaml"
	DefaultPromtool     = "promtool"
	DefaultListen       = ":8080"
	DefaultHTTPTimeout  = 10 * time.Second
	DefaultCheckTimeout = 30 * time.Second
)

// DefaultCheckArgs are passed to the validator before the rule file path.
var DefaultCheckArgs = []string{"check", "rules"}
