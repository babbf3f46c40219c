package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/cyra/statusrate/internal/config"
	"github.com/cyra/statusrate/internal/logtail"
)

const accessLine = `10.0.0.1 - - [17/Feb/2026:12:00:00 +0000] "GET /api/users HTTP/1.1" 200 512 "-" "curl"` + "\n"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOnce_WritesCheckpoint(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "access.log")
	state := filepath.Join(dir, "access.state")
	if err := os.WriteFile(logPath, []byte(accessLine+accessLine), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "once", logPath,
		"--state-file", state,
		"--output", "http_api=http://127.0.0.1:1/unused",
		"--dry-run",
		"-k", "api", "-u", "/api/.*",
		"--log-level", "error",
	)
	if err != nil {
		t.Fatalf("once error = %v", err)
	}
	if _, err := os.Stat(state); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote checkpoint (stat err = %v)", err)
	}

	_, err = execute(t, "once", logPath, "--state-file", state, "-o", "stdout=[name]", "--log-level", "error")
	if err != nil {
		t.Fatalf("once error = %v", err)
	}
	cp, err := logtail.LoadCheckpoint(state)
	if err != nil {
		t.Fatal(err)
	}
	if cp.Offset != int64(2*len(accessLine)) {
		t.Errorf("checkpoint offset = %d, want %d", cp.Offset, 2*len(accessLine))
	}
}

func TestOnce_Errors(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "access.log")
	if err := os.WriteFile(logPath, []byte(accessLine), 0o644); err != nil {
		t.Fatal(err)
	}
	state := filepath.Join(dir, "state")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no log path", []string{"once", "--state-file", state, "-o", "stdout"}, "log.path is required"},
		{"no outputs", []string{"once", logPath, "--state-file", state}, "no outputs configured"},
		{"bad output", []string{"once", logPath, "-o", "carrier-pigeon"}, "unsupported output type"},
		{"bad regexp", []string{"once", logPath, "-o", "stdout", "-u", "("}, "url_regexp"},
		{"bad option string", []string{"once", logPath, "-o", "stdout", "--parser-options=--bogus"}, "options"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte(`
log:
  path: /var/log/nginx/access.log
parser:
  key_url: api
  url_regexp: /api/.*
outputs:
  - type: graphite
    addr: graphite:2003
`), 0o600); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("outputs:\n  - type: graphite\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "validate", good)
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	for _, want := range []string{"Configuration valid!", "Key prefix: api", "1. graphite"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "validate", bad); err == nil {
		t.Error("expected validation failure")
	}
}

func TestFollow_MetricsListenFailureStops(t *testing.T) {
	// Hold the port so the metrics server cannot bind it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "access.log")
	if err := os.WriteFile(logPath, []byte(accessLine), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "log:\n  path: " + logPath + "\noutputs:\n  - type: stdout\nprometheus:\n  listen: " + ln.Addr().String() + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := execute(t, "follow", "-c", cfgPath, "--poll", "--log-level", "error")
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "metrics server") {
			t.Errorf("follow error = %v, want metrics server failure", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow kept running after the metrics listener failed")
	}
}

func TestStartupOnlyChanges(t *testing.T) {
	base := func() *config.Config {
		cfg := config.DefaultConfig()
		cfg.Log.Path = "/var/log/access.log"
		cfg.Outputs = []config.OutputConfig{{Type: "graphite", Addr: "graphite:2003"}}
		return cfg
	}

	tests := []struct {
		name   string
		modify func(*config.Config)
		want   []string
	}{
		{"unchanged", func(*config.Config) {}, nil},
		{"parser only", func(c *config.Config) { c.Parser.KeyURL = "api"; c.Interval = time.Second }, nil},
		{"outputs", func(c *config.Config) { c.Outputs[0].Addr = "other:2003" }, []string{"outputs"}},
		{"names", func(c *config.Config) { c.MetricPrefix = "web01"; c.MetricSuffix = "prod" }, []string{"metric_prefix", "metric_suffix"}},
		{"log and prometheus", func(c *config.Config) { c.Log.Path = "/tmp/x.log"; c.Prometheus.Listen = ":9229" }, []string{"log.path", "prometheus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base()
			tt.modify(next)
			if got := startupOnlyChanges(base(), next); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("startupOnlyChanges() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseOutputFlag(t *testing.T) {
	tests := []struct {
		in   string
		want config.OutputConfig
	}{
		{"stdout", config.OutputConfig{Type: "stdout"}},
		{"stdout=[name] [value]", config.OutputConfig{Type: "stdout", Template: "[name] [value]"}},
		{"graphite=graphite:2003", config.OutputConfig{Type: "graphite", Addr: "graphite:2003"}},
		{"http_api=https://example.com/ingest?a=b", config.OutputConfig{Type: "http_api", URL: "https://example.com/ingest?a=b"}},
		{"cloudwatch=eu-west-1", config.OutputConfig{Type: "cloudwatch", Region: "eu-west-1"}},
	}
	for _, tt := range tests {
		got, err := parseOutputFlag(tt.in)
		if err != nil {
			t.Errorf("parseOutputFlag(%q) error = %v", tt.in, err)
			continue
		}
		if got.Type != tt.want.Type || got.Template != tt.want.Template || got.Addr != tt.want.Addr ||
			got.URL != tt.want.URL || got.Region != tt.want.Region {
			t.Errorf("parseOutputFlag(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}

	if _, err := parseOutputFlag("syslog=localhost"); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, programName) {
		t.Errorf("version output = %q", out)
	}
}
