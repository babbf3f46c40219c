// Package parser turns HTTP access-log lines into per-status-class response
// rates.
package parser

import (
	"sync"
	"time"
)

// LineStats counts how the lines fed to a Parser were classified.
type LineStats struct {
	Matched   uint64
	Unmatched uint64
	Malformed uint64
}

// Total returns the number of lines seen.
func (s LineStats) Total() uint64 {
	return s.Matched + s.Unmatched + s.Malformed
}

// Parser classifies lines and accumulates status-code counts. A fresh
// Parser is expected per sampling interval.
type Parser struct {
	opts       Options
	classifier *Classifier
	bank       *CounterBank

	mu    sync.Mutex
	stats LineStats
}

// New builds a Parser from opts.
func New(opts Options) (*Parser, error) {
	c, err := NewClassifier(opts)
	if err != nil {
		return nil, err
	}
	return &Parser{
		opts:       opts,
		classifier: c,
		bank:       NewCounterBank(opts.KeyURL),
	}, nil
}

// Options returns the options the parser was built with.
func (p *Parser) Options() Options {
	return p.opts
}

// ParseLine classifies line and, on a match, records its status code.
// Failures are per line: the returned error satisfies errors.Is(err, ErrParsing)
// and the parser stays usable.
func (p *Parser) ParseLine(line string) error {
	res := p.classifier.Classify(line)

	p.mu.Lock()
	switch res.Outcome {
	case Matched:
		p.stats.Matched++
	case Malformed:
		p.stats.Malformed++
	default:
		p.stats.Unmatched++
	}
	p.mu.Unlock()

	if res.Outcome != Matched {
		return res.Err(line)
	}
	p.bank.RecordStatus(res.StatusCode)
	return nil
}

// State returns the rate samples for the counts accumulated so far.
func (p *Parser) State(d time.Duration) ([]MetricSample, error) {
	return p.bank.Finalize(d)
}

// Counts exposes the underlying bank counters.
func (p *Parser) Counts() [numBuckets]uint64 {
	return p.bank.Counts()
}

// Stats returns the per-outcome line counts.
func (p *Parser) Stats() LineStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
