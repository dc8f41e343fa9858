package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is matching at the presentation boundary.
var (
	ErrParse         = errors.New("parse error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// ParseError reports a malformed or structurally invalid backing record.
// It is fatal for the whole report.
type ParseError struct {
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse error")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ValidationError reports an unknown enumerated value in a query or field.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConfigurationError reports that no backing record could be located.
type ConfigurationError struct {
	Reason string
	Tried  []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Tried) == 0 {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s (tried %s)", e.Reason, strings.Join(e.Tried, ", "))
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
