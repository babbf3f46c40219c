package config

import (
	"time"

	"github.com/cyra/statusrate/internal/parser"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	Logging       LoggingConfig    `yaml:"logging"`
	Log           LogConfig        `yaml:"log"`
	Parser        ParserConfig     `yaml:"parser"`
	Interval      time.Duration    `yaml:"interval"`       // follow-mode sampling interval
	FailurePolicy FailurePolicy    `yaml:"failure_policy"` // "skip" or "abort"
	MetricPrefix  string           `yaml:"metric_prefix,omitempty"`
	MetricSuffix  string           `yaml:"metric_suffix,omitempty"`
	DryRun        bool             `yaml:"dry_run,omitempty"` // print samples, do not ship or checkpoint
	Outputs       []OutputConfig   `yaml:"outputs"`
	Prometheus    PrometheusConfig `yaml:"prometheus"`
}

// LoggingConfig controls log verbosity and format.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g. "info", "debug"
	JSON  bool   `yaml:"json"`
}

// LogConfig describes the webserver log we are reading.
type LogConfig struct {
	Path      string `yaml:"path"`       // e.g. /var/log/nginx/access.log
	StateFile string `yaml:"state_file"` // checkpoint used by once mode
}

// ParserConfig holds the parser options. OptionString, when set, is a flat
// option string ("-k svc -u /api/.*") applied on top of KeyURL and URLRegexp.
type ParserConfig struct {
	parser.Options `yaml:",inline"`
	OptionString   string `yaml:"options,omitempty"`
}

// FailurePolicy decides what happens to a batch when a line fails to parse.
type FailurePolicy string

const (
	FailureSkip  FailurePolicy = "skip"
	FailureAbort FailurePolicy = "abort"
)

// Output types.
const (
	OutputStdout     = "stdout"
	OutputGraphite   = "graphite"
	OutputHTTPAPI    = "http_api"
	OutputCloudWatch = "cloudwatch"
)

// OutputConfig selects and configures one metric sink.
type OutputConfig struct {
	Type string `yaml:"type"` // "stdout", "graphite", "http_api", "cloudwatch"

	// stdout
	Template string `yaml:"template,omitempty"` // e.g. "[name] [value] [unit]"

	// graphite
	Addr string `yaml:"addr,omitempty"` // host:port

	// http_api
	URL       string            `yaml:"url,omitempty"`
	AuthToken string            `yaml:"auth_token,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`

	// cloudwatch
	Region    string `yaml:"region,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`

	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// PrometheusConfig enables the /metrics endpoint in follow mode.
type PrometheusConfig struct {
	Listen string `yaml:"listen,omitempty"` // e.g. ":9229"; empty disables
	Path   string `yaml:"path,omitempty"`
}
