package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasttemplate"

	"github.com/cyra/statusrate/internal/parser"
)

// Stdout writes one templated line per sample. Tags: [name] [value] [unit]
// [timestamp] (unix seconds) and [time] (RFC 3339).
type Stdout struct {
	mu   sync.Mutex
	w    io.Writer
	tmpl *fasttemplate.Template
}

// NewStdout creates a Stdout sink writing to w.
func NewStdout(w io.Writer, template string) (*Stdout, error) {
	tmpl, err := fasttemplate.NewTemplate(template, "[", "]")
	if err != nil {
		return nil, fmt.Errorf("stdout template: %w", err)
	}
	return &Stdout{w: w, tmpl: tmpl}, nil
}

func (s *Stdout) Name() string {
	return "stdout"
}

func (s *Stdout) Ship(_ context.Context, samples []parser.MetricSample, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bw := bufio.NewWriter(s.w)
	for _, m := range samples {
		_, err := s.tmpl.ExecuteFunc(bw, func(w io.Writer, tag string) (int, error) {
			switch tag {
			case "name":
				return io.WriteString(w, m.Name)
			case "value":
				return io.WriteString(w, strconv.FormatFloat(m.Value, 'f', -1, 64))
			case "unit":
				return io.WriteString(w, m.Units)
			case "timestamp":
				return io.WriteString(w, strconv.FormatInt(ts.Unix(), 10))
			case "time":
				return io.WriteString(w, ts.Format(time.RFC3339))
			default:
				return 0, nil
			}
		})
		if err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
