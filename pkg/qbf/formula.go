package qbf

import (
	"fmt"
	"strings"
)

// Quantifier is the polarity of a quantifier block.
type Quantifier int

const (
	Exists Quantifier = iota + 1
	Forall
)

func (q Quantifier) String() string {
	switch q {
	case Exists:
		return "existential"
	case Forall:
		return "universal"
	}
	return fmt.Sprintf("Quantifier(%d)", int(q))
}

// Letter returns the QDIMACS prefix letter for q, 'e' or 'a'.
func (q Quantifier) Letter() byte {
	if q == Forall {
		return 'a'
	}
	return 'e'
}

// Dual returns the opposite quantifier.
func (q Quantifier) Dual() Quantifier {
	if q == Forall {
		return Exists
	}
	return Forall
}

// Block is one quantifier block of a prefix. Blocks are listed
// outermost first.
type Block struct {
	Quantifier Quantifier
	Vars       []int
}

func (b Block) String() string {
	s := make([]string, len(b.Vars))
	for i, v := range b.Vars {
		s[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("%c %s", b.Quantifier.Letter(), strings.Join(s, " "))
}

// Clause is a disjunction of non-zero DIMACS literals.
type Clause []int

// Formula is a prenex QBF in conjunctive normal form, as produced by
// a QDIMACS loader.
type Formula struct {
	NumVars    int
	NumClauses int
	Blocks     []Block
	Clauses    []Clause
}

// Validate checks the variable and clause counts of f against its
// contents. It does not check the prefix; see Select.
func (f *Formula) Validate() error {
	if f.NumVars < 0 {
		return &MalformedInputError{Reason: fmt.Sprintf("negative variable count %d", f.NumVars)}
	}
	if f.NumClauses < 0 {
		return &MalformedInputError{Reason: fmt.Sprintf("negative clause count %d", f.NumClauses)}
	}
	if len(f.Clauses) != f.NumClauses {
		return &MalformedInputError{Reason: fmt.Sprintf("header declares %d clauses, found %d", f.NumClauses, len(f.Clauses))}
	}
	for i, c := range f.Clauses {
		for _, lit := range c {
			if lit == 0 {
				return &MalformedInputError{Clause: i + 1, Reason: "literal 0 inside clause"}
			}
			if v := Var(lit); v > f.NumVars {
				return &MalformedInputError{Clause: i + 1, Reason: fmt.Sprintf("variable %d exceeds declared maximum %d", v, f.NumVars)}
			}
		}
	}
	return nil
}

// IsEmpty reports whether f has no clauses or contains an empty
// clause. Counting such a formula is a no-op.
func (f *Formula) IsEmpty() bool {
	if len(f.Clauses) == 0 {
		return true
	}
	for _, c := range f.Clauses {
		if len(c) == 0 {
			return true
		}
	}
	return false
}

// Var returns the variable of a DIMACS literal.
func Var(lit int) int {
	if lit < 0 {
		return -lit
	}
	return lit
}
