// Package pipeline drives a parser over log lines and ships the resulting
// rate samples once per interval.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cyra/statusrate/internal/config"
	"github.com/cyra/statusrate/internal/logging"
	"github.com/cyra/statusrate/internal/logtail"
	"github.com/cyra/statusrate/internal/parser"
	"github.com/cyra/statusrate/internal/sink"
)

// ErrNoStateFile is returned by RunOnce when no checkpoint path is configured.
var ErrNoStateFile = errors.New("log.state_file is required in once mode")

// Result summarizes one finalized interval.
type Result struct {
	Samples  []parser.MetricSample
	Stats    parser.LineStats
	Duration time.Duration
	Batch    logtail.Batch
}

// lineFunc returns the per-line callback for p under policy.
func lineFunc(p *parser.Parser, policy config.FailurePolicy, logger *logging.Logger) func(string) error {
	return func(line string) error {
		err := p.ParseLine(line)
		if err == nil {
			return nil
		}
		if policy == config.FailureAbort {
			return err
		}
		logger.Debugf("skipping line: %v", err)
		return nil
	}
}

// RunOnce reads the log from the last checkpoint to the current end of file,
// ships one set of samples and advances the checkpoint. The rate duration is
// the time since the previous run, or cfg.Interval on the first run.
func RunOnce(ctx context.Context, cfg *config.Config, sinks sink.Sink, logger *logging.Logger, now time.Time) (Result, error) {
	if cfg.Log.StateFile == "" {
		return Result{}, ErrNoStateFile
	}

	cp, err := logtail.LoadCheckpoint(cfg.Log.StateFile)
	if err != nil {
		return Result{}, err
	}

	opts, err := cfg.ParserOptions()
	if err != nil {
		return Result{}, err
	}
	p, err := parser.New(opts)
	if err != nil {
		return Result{}, err
	}

	b, err := logtail.ReadSince(ctx, cfg.Log.Path, cp.Offset, cp.File, lineFunc(p, cfg.FailurePolicy, logger))
	res := Result{Batch: b, Stats: p.Stats()}
	if err != nil {
		return res, fmt.Errorf("read %s: %w", cfg.Log.Path, err)
	}
	switch {
	case b.Rotated:
		logger.Warnf("log %s was replaced since the last run, reading from start", cfg.Log.Path)
	case b.Reset:
		logger.Warnf("log %s is shorter than checkpoint offset %d, reading from start", cfg.Log.Path, cp.Offset)
	}

	res.Duration = cfg.Interval
	if !cp.LastRun.IsZero() {
		res.Duration = now.Sub(cp.LastRun)
	}

	res.Samples, err = p.State(res.Duration)
	if err != nil {
		return res, err
	}

	if err := sinks.Ship(ctx, res.Samples, now); err != nil {
		return res, fmt.Errorf("ship: %w", err)
	}

	logger.Infof("processed %d lines (matched=%d unmatched=%d malformed=%d) over %s",
		res.Stats.Total(), res.Stats.Matched, res.Stats.Unmatched, res.Stats.Malformed, res.Duration)

	if cfg.DryRun {
		return res, nil
	}
	next := logtail.Checkpoint{Offset: b.End, File: b.File, LastRun: now}
	if err := next.Save(cfg.Log.StateFile); err != nil {
		return res, err
	}
	return res, nil
}

// Follow consumes lines until ctx is done or lines is closed. Every
// interval the current parser is finalized over the measured elapsed time,
// the samples are shipped and a fresh parser is built from the store's
// current configuration. Under the abort policy a failing line drops the
// rest of its interval.
func Follow(ctx context.Context, store *config.Store, sinks sink.Sink, lines <-chan string, logger *logging.Logger) error {
	cfg := store.Current()
	p, err := newParser(cfg)
	if err != nil {
		return err
	}

	handle := lineFunc(p, cfg.FailurePolicy, logger)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	start := time.Now()
	var failed error

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if failed != nil {
				continue
			}
			if err := handle(line); err != nil {
				logger.Errorf("dropping interval: %v", err)
				failed = err
			}
		case now := <-ticker.C:
			if failed == nil {
				ship(ctx, p, sinks, logger, now, now.Sub(start))
			}

			next := store.Current()
			if np, err := newParser(next); err != nil {
				logger.Errorf("keeping previous parser options: %v", err)
				p, _ = parser.New(p.Options())
			} else {
				p = np
			}
			if next.Interval != cfg.Interval {
				ticker.Reset(next.Interval)
			}
			cfg = next
			handle = lineFunc(p, cfg.FailurePolicy, logger)
			start = now
			failed = nil
		}
	}
}

func ship(ctx context.Context, p *parser.Parser, sinks sink.Sink, logger *logging.Logger, now time.Time, d time.Duration) {
	samples, err := p.State(d)
	if err != nil {
		logger.Errorf("finalize interval: %v", err)
		return
	}
	stats := p.Stats()
	logger.Debugf("interval %s: matched=%d unmatched=%d malformed=%d", d, stats.Matched, stats.Unmatched, stats.Malformed)

	if err := sinks.Ship(ctx, samples, now); err != nil {
		logger.Errorf("ship interval: %v", err)
	}
}

func newParser(cfg *config.Config) (*parser.Parser, error) {
	opts, err := cfg.ParserOptions()
	if err != nil {
		return nil, err
	}
	return parser.New(opts)
}
