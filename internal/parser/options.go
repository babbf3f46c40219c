package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

const (
	// DefaultKeyURL is the metric name prefix used when none is configured.
	DefaultKeyURL = "test"

	// DefaultURLRegexp accepts any path-like request target.
	DefaultURLRegexp = `/.*`
)

// Options configures a Parser.
type Options struct {
	// KeyURL prefixes every metric name, e.g. "svc" -> "svc.http_2xx".
	KeyURL string `yaml:"key_url"`

	// URLRegexp is substituted into the extraction rule between the
	// request method and the protocol version.
	URLRegexp string `yaml:"url_regexp"`
}

// DefaultOptions returns the options used when nothing is overridden.
func DefaultOptions() Options {
	return Options{
		KeyURL:    DefaultKeyURL,
		URLRegexp: DefaultURLRegexp,
	}
}

// ParseOptionString applies a flat option string such as
// "-k svc --url-regexp /api/.*" on top of base.
func ParseOptionString(base Options, s string) (Options, error) {
	opts := base
	fs := NewFlagSet(&opts)
	fs.SetOutput(io.Discard)

	if err := fs.Parse(strings.Fields(s)); err != nil {
		return base, &ConfigError{Field: "options", Err: err}
	}
	if fs.NArg() > 0 {
		return base, &ConfigError{Field: "options", Err: fmt.Errorf("unexpected arguments %q", fs.Args())}
	}
	return opts, nil
}

// NewFlagSet returns a flag set binding --key-url/-k and --url-regexp/-u to opts.
func NewFlagSet(opts *Options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("parser", pflag.ContinueOnError)
	AddFlags(fs, opts)
	return fs
}

// AddFlags registers the parser options on an existing flag set.
func AddFlags(fs *pflag.FlagSet, opts *Options) {
	fs.StringVarP(&opts.KeyURL, "key-url", "k", opts.KeyURL, "Key under which to record the metrics")
	fs.StringVarP(&opts.URLRegexp, "url-regexp", "u", opts.URLRegexp, "Regexp to constrain the URL match to")
}
