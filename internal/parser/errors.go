package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrParsing is the class of per-line failures. Both ErrNoMatch and
	// *MalformedError match it with errors.Is.
	ErrParsing = errors.New("parse line")

	// ErrNoMatch is returned when a line does not have the expected shape.
	ErrNoMatch = fmt.Errorf("%w: line does not match extraction rule", ErrParsing)

	// ErrInvalidDuration is returned by Finalize for a non-positive duration.
	ErrInvalidDuration = errors.New("invalid duration")
)

// ConfigError reports an option that cannot be used to build a classifier.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("parser config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// MalformedError is returned when a line matches but a captured field is unusable.
type MalformedError struct {
	Line   string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%v: malformed match: %s", ErrParsing, e.Reason)
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrParsing
}
