package sink

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/cyra/statusrate/internal/parser"
)

// Graphite sends samples using the carbon plaintext protocol:
// "<name> <value> <unix-ts>\n" over TCP.
type Graphite struct {
	addr    string
	timeout time.Duration
}

// NewGraphite creates a Graphite sink for host:port.
func NewGraphite(addr string, timeout time.Duration) *Graphite {
	return &Graphite{addr: addr, timeout: timeout}
}

func (g *Graphite) Name() string {
	return "graphite"
}

func (g *Graphite) Ship(ctx context.Context, samples []parser.MetricSample, ts time.Time) error {
	d := net.Dialer{Timeout: g.timeout}
	conn, err := d.DialContext(ctx, "tcp", g.addr)
	if err != nil {
		return fmt.Errorf("dial graphite: %w", err)
	}
	defer conn.Close()

	if g.timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(g.timeout))
	}

	bw := bufio.NewWriter(conn)
	unix := strconv.FormatInt(ts.Unix(), 10)
	for _, m := range samples {
		fmt.Fprintf(bw, "%s %s %s\n", m.Name, strconv.FormatFloat(m.Value, 'f', -1, 64), unix)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write graphite: %w", err)
	}
	return nil
}
