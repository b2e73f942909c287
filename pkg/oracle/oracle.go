// Package oracle provides an incremental decision procedure for
// prenex CNF QBF with assumptions, don't-care aware witnesses and a
// checkpoint stack.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/operator-framework/outer-count/pkg/qbf"
)

// Result is the outcome of a call to Solve. The values match the
// ones returned by gini.
type Result int

const (
	Unknown       Result = 0
	Satisfiable   Result = 1
	Unsatisfiable Result = -1
)

func (r Result) String() string {
	switch r {
	case Satisfiable:
		return "SAT"
	case Unsatisfiable:
		return "UNSAT"
	}
	return "UNKNOWN"
}

// Value is the assignment of a variable in the last witness.
type Value int8

const (
	Undefined Value = 0
	True      Value = 1
	False     Value = -1
)

func (v Value) String() string {
	switch v {
	case True:
		return "true"
	case False:
		return "false"
	}
	return "undefined"
}

// Scope identifies a quantifier scope created with NewScope.
type Scope int

// ErrCapacity is returned by Solve when a backend exceeds a
// configured size limit.
var ErrCapacity = errors.New("oracle capacity exceeded")

// InconsistencyError aggregates misuse of the oracle (unknown scopes,
// variables declared twice, unterminated clauses, ...). It is
// reported by the next call to Solve and is never recovered.
type InconsistencyError []error

func (e InconsistencyError) Error() string {
	s := make([]string, len(e))
	for i, err := range e {
		s[i] = err.Error()
	}
	return fmt.Sprintf("oracle inconsistency: %d errors encountered: %s", len(s), strings.Join(s, ", "))
}

// Oracle is a stateful, single-goroutine QBF decision handle.
//
// Variables that appear in clauses but are never added to a scope are
// free: they are existentially quantified at the outermost position.
// After Solve, Value reports the outermost variables of the witness:
// a model when the formula is satisfiable and the outermost scope is
// existential, a countermodel when it is unsatisfiable and the
// outermost scope is universal. Variables irrelevant to the witness
// are Undefined.
type Oracle interface {
	// NewScope appends a scope to the quantifier prefix.
	NewScope(q qbf.Quantifier) Scope
	// AddVarToScope declares v in s.
	AddVarToScope(v int, s Scope)
	// IsDeclared reports whether v belongs to a scope or occurs in a
	// committed clause.
	IsDeclared(v int) bool
	// Add appends lit to the open clause. Adding 0 commits it.
	Add(lit int)
	// Assume fixes the variable of lit for the next call to Solve.
	Assume(lit int)
	Solve(ctx context.Context) (Result, error)
	Value(v int) Value
	// Push opens a checkpoint. Clauses, scopes and declarations made
	// after it are discarded by the matching Pop.
	Push()
	Pop() error
	// MaxVar returns the largest variable seen so far.
	MaxVar() int
}

type backend interface {
	decide(ctx context.Context, p *problem) (Result, map[int]Value, error)
}

type oracle struct {
	database
	cfg     Config
	backend backend
	witness map[int]Value
}

func (o *oracle) Solve(ctx context.Context) (Result, error) {
	o.witness = nil
	defer func() { o.assumptions = o.assumptions[:0] }()

	if len(o.open) > 0 {
		o.errs = append(o.errs, fmt.Errorf("solve called with unterminated clause %v", o.open))
	}
	if err := o.Error(); err != nil {
		return Unknown, err
	}
	if err := ctx.Err(); err != nil {
		return Unknown, err
	}

	result, witness, err := o.backend.decide(ctx, o.problem())
	if err != nil {
		return Unknown, err
	}
	o.witness = witness
	return result, nil
}

func (o *oracle) Value(v int) Value {
	return o.witness[v]
}

// New returns an Oracle using the backend selected by its Config.
func New(options ...Option) (Oracle, error) {
	o := oracle{database: newDatabase()}
	for _, option := range append(options, defaults...) {
		if err := option(&o); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

type Option func(o *oracle) error

func WithConfig(cfg Config) Option {
	return func(o *oracle) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.cfg = cfg
		return nil
	}
}

var defaults = []Option{
	func(o *oracle) error {
		if o.cfg.Backend == "" {
			o.cfg = DefaultConfig()
		}
		return nil
	},
	func(o *oracle) error {
		switch o.cfg.Backend {
		case BackendBDD:
			o.backend = bddBackend{cfg: o.cfg}
		case BackendExpand:
			o.backend = expandBackend{cfg: o.cfg}
		default:
			return fmt.Errorf("unknown oracle backend %q", o.cfg.Backend)
		}
		return nil
	},
}
