package qdimacs

import (
	"errors"
	"fmt"
)

// ErrHeaderNotFound is returned when the input ends before a problem
// line.
var ErrHeaderNotFound = errors.New("header not found")

// ParseError wraps a syntax error with the line it was found on.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MalformedHeaderError reports an unparsable problem line.
type MalformedHeaderError struct {
	Text string
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("invalid header %q", e.Text)
}

// MalformedPrefixError reports an unparsable quantifier line.
type MalformedPrefixError struct {
	Reason string
}

func (e *MalformedPrefixError) Error() string {
	return "invalid quantifier block: " + e.Reason
}

// MalformedClauseError reports an unparsable or inconsistent matrix.
type MalformedClauseError struct {
	// Clause is the 1-based index of the offending clause, or 0 when
	// the matrix reader did not report one.
	Clause int
	Reason string
}

func (e *MalformedClauseError) Error() string {
	if e.Clause > 0 {
		return fmt.Sprintf("invalid clause %d: %s", e.Clause, e.Reason)
	}
	return "invalid matrix: " + e.Reason
}

// InputUnreadableError is returned by Load when the source cannot be
// opened or read.
type InputUnreadableError struct {
	Path string
	Err  error
}

func (e *InputUnreadableError) Error() string {
	return fmt.Sprintf("cannot read qdimacs file %s: %s", e.Path, e.Err)
}

func (e *InputUnreadableError) Unwrap() error {
	return e.Err
}
