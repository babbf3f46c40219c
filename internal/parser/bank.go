package parser

import (
	"fmt"
	"sync"
	"time"
)

// Bucket is one of the five status-code classes.
type Bucket int

const (
	Bucket1xx Bucket = iota
	Bucket2xx
	Bucket3xx
	Bucket4xx
	Bucket5xx

	numBuckets = 5
)

// Buckets lists every bucket in output order.
var Buckets = [numBuckets]Bucket{Bucket1xx, Bucket2xx, Bucket3xx, Bucket4xx, Bucket5xx}

var bucketNames = [numBuckets]string{"1xx", "2xx", "3xx", "4xx", "5xx"}

func (b Bucket) String() string {
	if b < 0 || int(b) >= numBuckets {
		return fmt.Sprintf("Bucket(%d)", int(b))
	}
	return bucketNames[b]
}

// BucketFor maps a status code to its bucket by magnitude alone: anything
// below 200 is 1xx and anything from 500 up is 5xx.
func BucketFor(code int) Bucket {
	switch {
	case code < 200:
		return Bucket1xx
	case code < 300:
		return Bucket2xx
	case code < 400:
		return Bucket3xx
	case code < 500:
		return Bucket4xx
	default:
		return Bucket5xx
	}
}

// UnitResponsesPerSec is the unit label of every finalized sample.
const UnitResponsesPerSec = "Responses per sec"

// MetricSample is one finalized rate.
type MetricSample struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Units string  `json:"units"`
}

// CounterBank accumulates per-bucket response counts. A bank lives as long
// as its parser; it is never reset.
type CounterBank struct {
	prefix string

	mu       sync.Mutex
	counts   [numBuckets]uint64
	duration time.Duration
}

// NewCounterBank returns a bank with all counters at zero.
func NewCounterBank(keyPrefix string) *CounterBank {
	return &CounterBank{prefix: keyPrefix}
}

// RecordStatus increments the bucket for code.
func (b *CounterBank) RecordStatus(code int) {
	b.mu.Lock()
	b.counts[BucketFor(code)]++
	b.mu.Unlock()
}

// Counts returns a snapshot of the counters indexed by Bucket.
func (b *CounterBank) Counts() [numBuckets]uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// LastDuration returns the duration passed to the last successful Finalize.
func (b *CounterBank) LastDuration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.duration
}

// Finalize converts the counters into per-second rates over d. Counters are
// left untouched, so repeated calls with the same d return the same samples.
func (b *CounterBank) Finalize(d time.Duration) ([]MetricSample, error) {
	if d <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDuration, d)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.duration = d
	secs := d.Seconds()

	samples := make([]MetricSample, 0, numBuckets)
	for _, bucket := range Buckets {
		samples = append(samples, MetricSample{
			Name:  b.prefix + ".http_" + bucket.String(),
			Value: float64(b.counts[bucket]) / secs,
			Units: UnitResponsesPerSec,
		})
	}
	return samples, nil
}
