package sink

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cyra/statusrate/internal/parser"
)

// Prometheus keeps the most recent interval's samples and exposes them as
// gauges when scraped. It is both a Sink and a prometheus.Collector.
type Prometheus struct {
	namespace string

	mu      sync.Mutex
	samples []parser.MetricSample
	updated time.Time
}

// NewPrometheus creates a Prometheus sink. Metric names are prefixed with
// namespace when it is non-empty.
func NewPrometheus(namespace string) *Prometheus {
	return &Prometheus{namespace: namespace}
}

func (p *Prometheus) Name() string {
	return "prometheus"
}

func (p *Prometheus) Ship(_ context.Context, samples []parser.MetricSample, ts time.Time) error {
	cp := make([]parser.MetricSample, len(samples))
	copy(cp, samples)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.samples = cp
	p.updated = ts
	return nil
}

// Describe sends nothing: the metric set follows the configured key prefix,
// which can change on reload, so the collector is unchecked.
func (p *Prometheus) Describe(ch chan<- *prometheus.Desc) {}

func (p *Prometheus) Collect(ch chan<- prometheus.Metric) {
	p.mu.Lock() // To protect samples from concurrent ships.
	defer p.mu.Unlock()

	for _, s := range p.samples {
		desc := prometheus.NewDesc(prometheus.BuildFQName(p.namespace, "", SanitizeName(s.Name)), s.Units, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, s.Value)
	}
	if !p.updated.IsZero() {
		desc := prometheus.NewDesc(prometheus.BuildFQName(p.namespace, "", "last_update_timestamp_seconds"), "Unix time of the last shipped interval", nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(p.updated.Unix()))
	}
}

// SanitizeName maps a dotted metric name onto the Prometheus charset.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
