package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"

	"github.com/cyra/statusrate/internal/config"
	"github.com/cyra/statusrate/internal/logging"
	"github.com/cyra/statusrate/internal/logtail"
	"github.com/cyra/statusrate/internal/pipeline"
	"github.com/cyra/statusrate/internal/sink"
)

const programName = "statusrated"

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func positional(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// NewOnceCommand creates the once command.
func NewOnceCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "once [logfile]",
		Short: "Report rates for lines appended since the last run",
		Long: `Read the log from the saved checkpoint to its current end, report one set
of rates over the time since the previous run and advance the checkpoint.
Intended to be run from cron.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig(cmd.Flags(), positional(args))
			if err != nil {
				return err
			}
			logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.JSON)
			if err != nil {
				return err
			}
			logger = logger.With("log", cfg.Log.Path)

			sinks, err := sink.New(cfg, logger)
			if err != nil {
				return err
			}
			if sinks.Len() == 0 {
				return errors.New("no outputs configured")
			}

			_, err = pipeline.RunOnce(contextOf(cmd), cfg, sinks, logger, time.Now())
			return err
		},
	}
}

// NewFollowCommand creates the follow command.
func NewFollowCommand(o *rootOptions) *cobra.Command {
	var fromStart, poll bool

	cmd := &cobra.Command{
		Use:   "follow [logfile]",
		Short: "Tail the log and report rates every interval",
		Long: `Tail the log and report one set of rates per interval. Counters start
from zero each interval. The configuration file is watched and parser
options are picked up at the next interval boundary.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logPath := positional(args)
			cfg, err := o.loadConfig(cmd.Flags(), logPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.JSON)
			if err != nil {
				return err
			}
			logger = logger.With("log", cfg.Log.Path)

			ctx, cancel := context.WithCancel(contextOf(cmd))
			defer cancel()

			logger.Infof("%s starting (version=%s)", programName, version.Version)

			store := config.NewStore(cfg)
			if o.configPath != "" {
				reload := o.reloader(cmd.Flags(), logPath)
				load := func(path string) (*config.Config, error) {
					next, err := reload(path)
					if err == nil {
						if changed := startupOnlyChanges(cfg, next); len(changed) > 0 {
							logger.Warnf("config reload: %s changed; restart to apply", strings.Join(changed, ", "))
						}
					}
					return next, err
				}
				watcherStop, err := config.WatchFile(o.configPath, load, store, logger)
				if err != nil {
					logger.Errorf("config watcher disabled: %v", err)
				} else {
					defer watcherStop()
				}
			}

			sinks, err := sink.New(cfg, logger)
			if err != nil {
				return err
			}

			metricsErr := make(chan error, 1)
			if cfg.Prometheus.Listen != "" {
				prom := sink.NewPrometheus(config.DefaultNamespace)
				reg := prometheus.NewRegistry()
				reg.MustRegister(
					prom,
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
					versioncollector.NewCollector(programName),
				)
				sinks.Add(prom)

				h := sink.NewMetricsHandler(reg, cfg.Prometheus.Path)
				go func() {
					err := sink.ServeMetrics(ctx, cfg.Prometheus.Listen, h, logger)
					if err != nil {
						logger.Errorf("stopping: %v", err)
						cancel()
					}
					metricsErr <- err
				}()
			} else {
				metricsErr <- nil
			}

			if sinks.Len() == 0 {
				return errors.New("no outputs configured")
			}
			logger.Infof("shipping to %s every %s", sinks.Name(), cfg.Interval)

			t := logtail.New(cfg.Log.Path, logger)
			t.FromStart = fromStart
			t.Poll = poll
			lines := make(chan string, 100)
			tailErr := make(chan error, 1)
			go func() {
				err := t.Tail(ctx, lines)
				close(lines)
				tailErr <- err
			}()

			err = pipeline.Follow(ctx, store, sinks, lines, logger)
			cancel()

			if terr := <-tailErr; terr != nil && !errors.Is(terr, context.Canceled) {
				err = errors.Join(err, fmt.Errorf("tail %s: %w", cfg.Log.Path, terr))
			}
			if merr := <-metricsErr; merr != nil {
				err = errors.Join(err, merr)
			}
			logger.Info("shutdown complete")
			return err
		},
	}

	cmd.Flags().BoolVar(&fromStart, "from-start", false, "read the existing contents of the log before following")
	cmd.Flags().BoolVar(&poll, "poll", false, "poll for changes instead of using inotify")
	return cmd
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a configuration file without reading any logs.

Checks:
  - YAML syntax
  - Required fields
  - Parser options and URL pattern validity
  - Output type-specific requirements`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			opts, err := cfg.ParserOptions()
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration valid!\n")
			fmt.Fprintf(out, "  Log:        %s\n", cfg.Log.Path)
			fmt.Fprintf(out, "  Key prefix: %s\n", opts.KeyURL)
			fmt.Fprintf(out, "  URL regexp: %s\n", opts.URLRegexp)
			fmt.Fprintf(out, "  Interval:   %s\n", cfg.Interval)
			fmt.Fprintf(out, "  Outputs:    %d\n", len(cfg.Outputs))
			for i, oc := range cfg.Outputs {
				fmt.Fprintf(out, "    %d. %s\n", i+1, oc.Type)
			}
			if _, err := os.Stat(cfg.Log.Path); err != nil {
				fmt.Fprintf(out, "\nWarning: %v\n", err)
			}
			return nil
		},
	}
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Print(programName))
		},
	}
}
