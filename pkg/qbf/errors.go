package qbf

import "fmt"

// MalformedInputError reports a structured formula whose counts or
// literals are inconsistent.
type MalformedInputError struct {
	// Clause is the 1-based index of the offending clause, or 0.
	Clause int
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Clause > 0 {
		return fmt.Sprintf("malformed input: clause %d: %s", e.Clause, e.Reason)
	}
	return "malformed input: " + e.Reason
}

// MalformedPrefixError reports a variable with inconsistent block
// membership.
type MalformedPrefixError struct {
	Var    int
	Reason string
}

func (e *MalformedPrefixError) Error() string {
	return fmt.Sprintf("malformed prefix: variable %d %s", e.Var, e.Reason)
}
