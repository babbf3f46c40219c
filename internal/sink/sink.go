// Package sink ships finalized rate samples to monitoring backends.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cyra/statusrate/internal/config"
	"github.com/cyra/statusrate/internal/logging"
	"github.com/cyra/statusrate/internal/parser"
)

// Sink is the interface implemented by metric backends.
type Sink interface {
	// Ship delivers one interval's samples stamped with ts.
	Ship(ctx context.Context, samples []parser.MetricSample, ts time.Time) error
	// Name returns a short identifier for logging.
	Name() string
}

// Namer decorates metric names with a global prefix and suffix.
type Namer struct {
	Prefix string
	Suffix string
}

// Name returns prefix.name.suffix, omitting empty parts.
func (n Namer) Name(name string) string {
	parts := make([]string, 0, 3)
	if n.Prefix != "" {
		parts = append(parts, n.Prefix)
	}
	parts = append(parts, name)
	if n.Suffix != "" {
		parts = append(parts, n.Suffix)
	}
	return strings.Join(parts, ".")
}

// Apply returns a copy of samples with decorated names.
func (n Namer) Apply(samples []parser.MetricSample) []parser.MetricSample {
	if n.Prefix == "" && n.Suffix == "" {
		return samples
	}
	out := make([]parser.MetricSample, len(samples))
	for i, s := range samples {
		s.Name = n.Name(s.Name)
		out[i] = s
	}
	return out
}

// Multi fans samples out to several sinks. Every sink is tried; failures
// are joined.
type Multi struct {
	sinks  []Sink
	namer  Namer
	logger *logging.Logger
}

// NewMulti creates a Multi over sinks.
func NewMulti(namer Namer, logger *logging.Logger, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, namer: namer, logger: logger}
}

// Name returns the names of the wrapped sinks.
func (m *Multi) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return strings.Join(names, ",")
}

// Len returns the number of wrapped sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Add appends a sink.
func (m *Multi) Add(s Sink) {
	m.sinks = append(m.sinks, s)
}

// Ship sends samples to every sink.
func (m *Multi) Ship(ctx context.Context, samples []parser.MetricSample, ts time.Time) error {
	named := m.namer.Apply(samples)

	var errs []error
	for _, s := range m.sinks {
		if err := s.Ship(ctx, named, ts); err != nil {
			m.logger.Errorf("failed to ship metrics: sink=%s err=%v", s.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		m.logger.Debugf("shipped %d samples to %s", len(named), s.Name())
	}
	return errors.Join(errs...)
}

// New constructs the sinks listed in cfg. Dry-run replaces them all with a
// single stdout sink.
func New(cfg *config.Config, logger *logging.Logger) (*Multi, error) {
	namer := Namer{Prefix: cfg.MetricPrefix, Suffix: cfg.MetricSuffix}

	if cfg.DryRun {
		std, err := NewStdout(os.Stdout, config.DefaultStdoutTemplate)
		if err != nil {
			return nil, err
		}
		return NewMulti(namer, logger, std), nil
	}

	m := NewMulti(namer, logger)
	for i, o := range cfg.Outputs {
		s, err := newSink(o, logger)
		if err != nil {
			return nil, fmt.Errorf("outputs[%d]: %w", i, err)
		}
		m.Add(s)
	}
	return m, nil
}

func newSink(o config.OutputConfig, logger *logging.Logger) (Sink, error) {
	switch o.Type {
	case config.OutputStdout:
		return NewStdout(os.Stdout, o.Template)
	case config.OutputGraphite:
		return NewGraphite(o.Addr, o.Timeout), nil
	case config.OutputHTTPAPI:
		return NewHTTPAPI(o, logger), nil
	case config.OutputCloudWatch:
		return NewCloudWatch(o)
	default:
		return nil, fmt.Errorf("unsupported output type %q", o.Type)
	}
}
