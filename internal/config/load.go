package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/cyra/statusrate/internal/parser"
)

// Defaults.
const (
	DefaultInterval       = 60 * time.Second
	DefaultOutputTimeout  = 10 * time.Second
	DefaultMetricsPath    = "/metrics"
	DefaultStdoutTemplate = "[name] [value] [unit]"
	DefaultNamespace      = "statusrate"
)

// Environment variable overrides.
const (
	EnvLogPath   = "STATUSRATE_LOG_PATH"
	EnvStateFile = "STATUSRATE_STATE_FILE"
	EnvLogLevel  = "STATUSRATE_LOG_LEVEL"
)

// DefaultConfig returns a configuration with defaults applied and no outputs.
func DefaultConfig() *Config {
	return &Config{
		Logging:       LoggingConfig{Level: "info"},
		Parser:        ParserConfig{Options: parser.DefaultOptions()},
		Interval:      DefaultInterval,
		FailurePolicy: FailureSkip,
		Prometheus:    PrometheusConfig{Path: DefaultMetricsPath},
	}
}

// Load reads, parses, and validates configuration from the provided path.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Read parses the configuration at path and applies environment overrides
// without validating, so callers can layer flags on top first.
// Warns if the config file has insecure permissions (world-readable).
func Read(path string) (*Config, error) {
	if runtime.GOOS != "windows" {
		if info, err := os.Stat(path); err == nil {
			mode := info.Mode().Perm()
			// Outputs may carry auth tokens.
			if mode&0o004 != 0 {
				fmt.Fprintf(os.Stderr, "WARNING: config file %s is world-readable (mode %o). Consider: chmod 600 %s\n", path, mode, path)
			}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvironmentOverrides()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv(EnvLogPath); v != "" {
		c.Log.Path = v
	}
	if v := os.Getenv(EnvStateFile); v != "" {
		c.Log.StateFile = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate fills defaults and checks c. The parser options are resolved
// (flat option string applied) and compiled once to reject bad patterns early.
func Validate(c *Config) error {
	if c.Log.Path == "" {
		return fmt.Errorf("log.path is required")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	opts, err := c.ParserOptions()
	if err != nil {
		return err
	}
	if _, err := parser.NewClassifier(opts); err != nil {
		return err
	}

	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must be > 0")
	}

	switch c.FailurePolicy {
	case "":
		c.FailurePolicy = FailureSkip
	case FailureSkip, FailureAbort:
	default:
		return fmt.Errorf("unsupported failure_policy %q", c.FailurePolicy)
	}

	if c.Prometheus.Path == "" {
		c.Prometheus.Path = DefaultMetricsPath
	}

	for i := range c.Outputs {
		if err := validateOutput(&c.Outputs[i]); err != nil {
			return fmt.Errorf("outputs[%d]: %w", i, err)
		}
	}

	return nil
}

func validateOutput(o *OutputConfig) error {
	if o.Timeout == 0 {
		o.Timeout = DefaultOutputTimeout
	}

	switch o.Type {
	case OutputStdout:
		if o.Template == "" {
			o.Template = DefaultStdoutTemplate
		}
	case OutputGraphite:
		if o.Addr == "" {
			return fmt.Errorf("graphite: addr is required")
		}
	case OutputHTTPAPI:
		if o.URL == "" {
			return fmt.Errorf("http_api: url is required")
		}
	case OutputCloudWatch:
		if o.Region == "" {
			return fmt.Errorf("cloudwatch: region is required")
		}
		if o.Namespace == "" {
			o.Namespace = DefaultNamespace
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unsupported output type %q", o.Type)
	}
	return nil
}

// ParserOptions returns the effective parser options.
func (c *Config) ParserOptions() (parser.Options, error) {
	opts := c.Parser.Options
	if opts.KeyURL == "" {
		opts.KeyURL = parser.DefaultKeyURL
	}
	if opts.URLRegexp == "" {
		opts.URLRegexp = parser.DefaultURLRegexp
	}
	if c.Parser.OptionString == "" {
		return opts, nil
	}
	return parser.ParseOptionString(opts, c.Parser.OptionString)
}
