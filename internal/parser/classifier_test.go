package parser

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	c, err := NewClassifier(DefaultOptions())
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	tests := []struct {
		name    string
		line    string
		outcome Outcome
		status  int
		method  string
		field   string
	}{
		{
			name:    "combined format",
			line:    `127.0.0.1 - - [10/Oct/2000:13:55:36 -0700] "GET /path HTTP/1.1" 404 0 "-" "curl/8.0"`,
			outcome: Matched,
			status:  404,
			method:  "GET",
			field:   "/path",
		},
		{
			name:    "post request",
			line:    `10.0.0.1 - - [17/Feb/2026:12:00:00 +0000] "POST /api/v1/items HTTP/1.0" 201 512`,
			outcome: Matched,
			status:  201,
			method:  "POST",
			field:   "/api/v1/items",
		},
		{
			name:    "minimal prefix",
			line:    `X "GET /path HTTP/1.1" 404 -`,
			outcome: Matched,
			status:  404,
			method:  "GET",
			field:   "/path",
		},
		{
			name:    "status outside http range",
			line:    `X "GET / HTTP/1.1" 999 -`,
			outcome: Matched,
			status:  999,
			method:  "GET",
			field:   "/",
		},
		{
			name:    "unsupported method",
			line:    `X "PUT /path HTTP/1.1" 200 -`,
			outcome: NoMatch,
		},
		{
			name:    "http2",
			line:    `X "GET /path HTTP/2.0" 200 -`,
			outcome: NoMatch,
		},
		{
			name:    "truncated before status",
			line:    `X "GET /path HTTP/1.1"`,
			outcome: NoMatch,
		},
		{
			name:    "nothing after status",
			line:    `X "GET /path HTTP/1.1" 200`,
			outcome: NoMatch,
		},
		{
			name:    "two digit status",
			line:    `X "GET /path HTTP/1.1" 20 -`,
			outcome: NoMatch,
		},
		{
			name:    "request must open with a quote after a space",
			line:    `"GET /path HTTP/1.1" 200 -`,
			outcome: NoMatch,
		},
		{
			name:    "empty line",
			line:    "",
			outcome: NoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Classify(tt.line)
			if res.Outcome != tt.outcome {
				t.Fatalf("Outcome = %v, want %v", res.Outcome, tt.outcome)
			}
			if tt.outcome != Matched {
				return
			}
			if res.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", res.StatusCode, tt.status)
			}
			if res.Method != tt.method {
				t.Errorf("Method = %q, want %q", res.Method, tt.method)
			}
			if res.Field != tt.field {
				t.Errorf("Field = %q, want %q", res.Field, tt.field)
			}
		})
	}
}

func TestClassify_URLConstraint(t *testing.T) {
	c, err := NewClassifier(Options{KeyURL: "api", URLRegexp: `/api/.*`})
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	if res := c.Classify(`X "GET /api/users HTTP/1.1" 200 -`); res.Outcome != Matched {
		t.Errorf("api path: Outcome = %v, want matched", res.Outcome)
	}
	if res := c.Classify(`X "GET /static/app.js HTTP/1.1" 200 -`); res.Outcome != NoMatch {
		t.Errorf("static path: Outcome = %v, want no_match", res.Outcome)
	}
}

func TestClassify_FragmentGroupsDoNotShiftStatus(t *testing.T) {
	c, err := NewClassifier(Options{URLRegexp: `/(users|orders)/(\d+)`})
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	res := c.Classify(`X "POST /orders/42 HTTP/1.1" 503 -`)
	if res.Outcome != Matched {
		t.Fatalf("Outcome = %v, want matched", res.Outcome)
	}
	if res.StatusCode != 503 {
		t.Errorf("StatusCode = %d, want 503", res.StatusCode)
	}
	if res.Field != "/orders/42" {
		t.Errorf("Field = %q, want /orders/42", res.Field)
	}
}

func TestClassify_OptionalFragmentGroup(t *testing.T) {
	// The inner group may not participate; the result is still a match.
	c, err := NewClassifier(Options{URLRegexp: `/health(z)?`})
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	res := c.Classify(`X "GET /health HTTP/1.1" 200 -`)
	if res.Outcome != Matched || res.Field != "/health" {
		t.Errorf("Classify() = %+v, want matched /health", res)
	}
}

func TestNewClassifier_InvalidFragment(t *testing.T) {
	for _, frag := range []string{`[unclosed`, `/a)(b`, `(`} {
		_, err := NewClassifier(Options{KeyURL: "x", URLRegexp: frag})
		if err == nil {
			t.Errorf("NewClassifier(%q) expected error", frag)
			continue
		}
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("NewClassifier(%q) error = %T, want *ConfigError", frag, err)
			continue
		}
		if cfgErr.Field != "url_regexp" {
			t.Errorf("Field = %q, want url_regexp", cfgErr.Field)
		}
	}
}

func TestClassify_MalformedGroups(t *testing.T) {
	tests := []struct {
		expr   string
		line   string
		reason string
	}{
		{`^(GET)? (\S+) (\d+)$`, " /x 200", "method group missing"},
		{`^(GET) (\S+)? (\d+)$`, "GET  200", "url group missing"},
		{`^(GET) (\S+) (\d+)?$`, "GET /x ", "status group missing"},
		{`^(GET) (\S+) (\S+)$`, "GET /x abc", "parse status"},
	}
	for _, tt := range tests {
		re := regexp.MustCompile(tt.expr)
		c := &Classifier{re: re, statusIdx: re.NumSubexp()}

		got := c.Classify(tt.line)
		if got.Outcome != Malformed {
			t.Errorf("%s on %q: Outcome = %v, want malformed", tt.expr, tt.line, got.Outcome)
			continue
		}
		if !strings.HasPrefix(got.Reason, tt.reason) {
			t.Errorf("%s on %q: Reason = %q, want prefix %q", tt.expr, tt.line, got.Reason, tt.reason)
		}
	}
}

func TestResultErr(t *testing.T) {
	if err := (Result{Outcome: Matched}).Err("x"); err != nil {
		t.Errorf("Matched.Err() = %v, want nil", err)
	}

	err := (Result{Outcome: NoMatch}).Err("x")
	if !errors.Is(err, ErrNoMatch) || !errors.Is(err, ErrParsing) {
		t.Errorf("NoMatch.Err() = %v, want ErrNoMatch wrapping ErrParsing", err)
	}

	err = (Result{Outcome: Malformed, Reason: "bad"}).Err("x")
	var mErr *MalformedError
	if !errors.As(err, &mErr) {
		t.Fatalf("Malformed.Err() = %T, want *MalformedError", err)
	}
	if !errors.Is(err, ErrParsing) {
		t.Error("Malformed.Err() does not match ErrParsing")
	}
	if errors.Is(err, ErrNoMatch) {
		t.Error("Malformed.Err() must not match ErrNoMatch")
	}
}
