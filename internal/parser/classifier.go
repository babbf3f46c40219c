package parser

import (
	"fmt"
	"regexp"
	"strconv"
)

// Example line accepted by the default rule:
// 127.0.0.1 - - [10/Oct/2000:13:55:36 -0700] "GET /index.html HTTP/1.1" 200 2326 "-" "UserAgent"

// Outcome tags a Result.
type Outcome int

const (
	NoMatch Outcome = iota
	Matched
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Malformed:
		return "malformed"
	default:
		return "no_match"
	}
}

// Result is the outcome of classifying one line. StatusCode, Method and
// Field are set only for Matched; Reason only for Malformed.
type Result struct {
	Outcome    Outcome
	StatusCode int
	Method     string
	Field      string
	Reason     string
}

// Err converts a non-matching result into the error ParseLine reports.
func (r Result) Err(line string) error {
	switch r.Outcome {
	case Matched:
		return nil
	case Malformed:
		return &MalformedError{Line: line, Reason: r.Reason}
	default:
		return ErrNoMatch
	}
}

// Classifier applies one compiled extraction rule to log lines.
// It holds no per-call state and is safe for concurrent use.
type Classifier struct {
	re        *regexp.Regexp
	statusIdx int
}

const (
	methodIdx = 1
	fieldIdx  = 2
)

// NewClassifier compiles the extraction rule for opts.URLRegexp.
func NewClassifier(opts Options) (*Classifier, error) {
	// Check the fragment on its own first so a bad fragment is reported as
	// such rather than as a broken composite expression.
	if _, err := regexp.Compile(opts.URLRegexp); err != nil {
		return nil, &ConfigError{Field: "url_regexp", Err: err}
	}

	expr := `^.*? "(GET|POST) (` + opts.URLRegexp + `) HTTP/1\.\d" (\d{3}) .*`
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &ConfigError{Field: "url_regexp", Err: err}
	}

	// The status group closes the expression; any groups inside the
	// fragment sit between the field and the status.
	return &Classifier{
		re:        re,
		statusIdx: re.NumSubexp(),
	}, nil
}

// Classify extracts the method, request target and status code from line.
func (c *Classifier) Classify(line string) Result {
	m := c.re.FindStringSubmatchIndex(line)
	if m == nil {
		return Result{Outcome: NoMatch}
	}

	group := func(i int) (string, bool) {
		if m[2*i] < 0 {
			return "", false
		}
		return line[m[2*i]:m[2*i+1]], true
	}

	// The composed rule always fills these groups and \d{3} always parses.
	// The checks only fire for a Classifier built on another expression.
	method, ok := group(methodIdx)
	if !ok {
		return Result{Outcome: Malformed, Reason: "method group missing"}
	}
	field, ok := group(fieldIdx)
	if !ok {
		return Result{Outcome: Malformed, Reason: "url group missing"}
	}
	statusStr, ok := group(c.statusIdx)
	if !ok {
		return Result{Outcome: Malformed, Reason: "status group missing"}
	}

	status, err := strconv.Atoi(statusStr)
	if err != nil {
		return Result{Outcome: Malformed, Reason: fmt.Sprintf("parse status: %v", err)}
	}

	return Result{
		Outcome:    Matched,
		StatusCode: status,
		Method:     method,
		Field:      field,
	}
}

// String returns the compiled expression.
func (c *Classifier) String() string {
	return c.re.String()
}
