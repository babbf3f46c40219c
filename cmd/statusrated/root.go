package main

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cyra/statusrate/internal/config"
	"github.com/cyra/statusrate/internal/parser"
)

// rootOptions holds the persistent flags. Flags override config file values
// only when set on the command line.
type rootOptions struct {
	configPath    string
	logLevel      string
	logJSON       bool
	parser        parser.Options
	parserOptions string
	outputs       []string
	dryRun        bool
	interval      time.Duration
	stateFile     string
	metricPrefix  string
	metricSuffix  string
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	o := &rootOptions{parser: parser.DefaultOptions()}

	rootCmd := &cobra.Command{
		Use:   "statusrated",
		Short: "Turn access logs into HTTP status-class response rates",
		Long: `statusrated reads a webserver access log, counts GET and POST responses
whose URL matches a pattern, buckets them by status class (1xx..5xx) and
reports each bucket as responses per second.

Modes:
  once     read everything appended since the last run, then exit (cron)
  follow   tail the log and report every interval`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	fs := rootCmd.PersistentFlags()
	fs.StringVarP(&o.configPath, "config", "c", "", "path to YAML configuration file")
	fs.StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.BoolVar(&o.logJSON, "log-json", false, "log in JSON format")
	parser.AddFlags(fs, &o.parser)
	fs.StringVar(&o.parserOptions, "parser-options", "", `flat parser option string, e.g. "-k svc -u /api/.*"`)
	fs.StringArrayVarP(&o.outputs, "output", "o", nil, "output as type[=target]: stdout, graphite=host:port, http_api=url, cloudwatch=region (repeatable)")
	fs.BoolVar(&o.dryRun, "dry-run", false, "print samples to stdout, ship nothing and keep the checkpoint")
	fs.DurationVar(&o.interval, "interval", 0, "sampling interval in follow mode; first-run duration in once mode")
	fs.StringVar(&o.stateFile, "state-file", "", "checkpoint file used by once mode")
	fs.StringVarP(&o.metricPrefix, "metric-prefix", "p", "", "prefix added to every metric name")
	fs.StringVarP(&o.metricSuffix, "metric-suffix", "x", "", "suffix added to every metric name")

	rootCmd.AddCommand(NewOnceCommand(o))
	rootCmd.AddCommand(NewFollowCommand(o))
	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// loadConfig builds the effective configuration: file (or defaults), then
// flags, then the positional log path, then validation.
func (o *rootOptions) loadConfig(flags *pflag.FlagSet, logPath string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Read(o.configPath); err != nil {
			return nil, err
		}
	}
	if err := o.apply(flags, cfg, logPath); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// reloader returns the LoadFunc used by the config watcher so reloaded
// files keep the command-line overrides.
func (o *rootOptions) reloader(flags *pflag.FlagSet, logPath string) config.LoadFunc {
	return func(path string) (*config.Config, error) {
		cfg, err := config.Read(path)
		if err != nil {
			return nil, err
		}
		if err := o.apply(flags, cfg, logPath); err != nil {
			return nil, err
		}
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("validate config: %w", err)
		}
		return cfg, nil
	}
}

func (o *rootOptions) apply(flags *pflag.FlagSet, cfg *config.Config, logPath string) error {
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if flags.Changed("log-json") {
		cfg.Logging.JSON = o.logJSON
	}
	if flags.Changed("key-url") {
		cfg.Parser.KeyURL = o.parser.KeyURL
	}
	if flags.Changed("url-regexp") {
		cfg.Parser.URLRegexp = o.parser.URLRegexp
	}
	if flags.Changed("parser-options") {
		cfg.Parser.OptionString = o.parserOptions
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = o.dryRun
	}
	if flags.Changed("interval") {
		cfg.Interval = o.interval
	}
	if flags.Changed("state-file") {
		cfg.Log.StateFile = o.stateFile
	}
	if flags.Changed("metric-prefix") {
		cfg.MetricPrefix = o.metricPrefix
	}
	if flags.Changed("metric-suffix") {
		cfg.MetricSuffix = o.metricSuffix
	}
	if len(o.outputs) > 0 {
		outputs := make([]config.OutputConfig, 0, len(o.outputs))
		for _, s := range o.outputs {
			oc, err := parseOutputFlag(s)
			if err != nil {
				return err
			}
			outputs = append(outputs, oc)
		}
		cfg.Outputs = outputs
	}
	if logPath != "" {
		cfg.Log.Path = logPath
	}
	return nil
}

// parseOutputFlag turns "type[=target]" into an output config.
func parseOutputFlag(s string) (config.OutputConfig, error) {
	typ, target, _ := strings.Cut(s, "=")
	oc := config.OutputConfig{Type: typ}
	switch typ {
	case config.OutputStdout:
		oc.Template = target
	case config.OutputGraphite:
		oc.Addr = target
	case config.OutputHTTPAPI:
		oc.URL = target
	case config.OutputCloudWatch:
		oc.Region = target
	default:
		return oc, fmt.Errorf("--output %q: unsupported output type %q", s, typ)
	}
	return oc, nil
}

// startupOnlyChanges lists the settings that differ between running and next
// but are only read when follow starts.
func startupOnlyChanges(running, next *config.Config) []string {
	var changed []string
	if running.Log.Path != next.Log.Path {
		changed = append(changed, "log.path")
	}
	if !reflect.DeepEqual(running.Outputs, next.Outputs) {
		changed = append(changed, "outputs")
	}
	if running.MetricPrefix != next.MetricPrefix {
		changed = append(changed, "metric_prefix")
	}
	if running.MetricSuffix != next.MetricSuffix {
		changed = append(changed, "metric_suffix")
	}
	if running.Prometheus != next.Prometheus {
		changed = append(changed, "prometheus")
	}
	if running.Logging != next.Logging {
		changed = append(changed, "logging")
	}
	return changed
}
