package logging

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is a thin wrapper around a logrus entry tagged with the component name.
type Logger struct {
	*logrus.Entry
}

// New creates a logger writing to w at the given level ("debug", "info", ...).
func New(w io.Writer, level string, json bool) (*Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}

	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(lvl)
	if json {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{Entry: base.WithField("app", "statusrate")}, nil
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{Entry: logrus.NewEntry(base)}
}

// With returns a child logger carrying an extra field.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}
