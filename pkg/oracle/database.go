package oracle

import (
	"fmt"
	"sort"

	"github.com/operator-framework/outer-count/pkg/qbf"
)

type scope struct {
	q    qbf.Quantifier
	vars []int
}

type declaration struct {
	v int
	s Scope
}

type frame struct {
	clauses, scopes, declarations int
}

// database holds the prefix and matrix given to an oracle, with
// enough history to roll both back to a checkpoint.
type database struct {
	scopes       []scope
	owner        map[int]Scope
	declarations []declaration
	clauses      [][]int
	occurs       map[int]int
	open         []int
	frames       []frame
	assumptions  []int
	maxVar       int
	errs         []error
}

func newDatabase() database {
	return database{
		owner:  make(map[int]Scope),
		occurs: make(map[int]int),
	}
}

func (d *database) NewScope(q qbf.Quantifier) Scope {
	if q != qbf.Exists && q != qbf.Forall {
		d.errs = append(d.errs, fmt.Errorf("scope with invalid quantifier %d", int(q)))
	}
	d.scopes = append(d.scopes, scope{q: q})
	return Scope(len(d.scopes) - 1)
}

func (d *database) AddVarToScope(v int, s Scope) {
	if s < 0 || int(s) >= len(d.scopes) {
		d.errs = append(d.errs, fmt.Errorf("variable %d added to unknown scope %d", v, s))
		return
	}
	if v < 1 {
		d.errs = append(d.errs, fmt.Errorf("invalid variable %d", v))
		return
	}
	if prev, ok := d.owner[v]; ok {
		d.errs = append(d.errs, fmt.Errorf("variable %d declared in scope %d and %d", v, prev, s))
		return
	}
	d.owner[v] = s
	d.scopes[s].vars = append(d.scopes[s].vars, v)
	d.declarations = append(d.declarations, declaration{v: v, s: s})
	d.see(v)
}

func (d *database) IsDeclared(v int) bool {
	if _, ok := d.owner[v]; ok {
		return true
	}
	return d.occurs[v] > 0
}

func (d *database) Add(lit int) {
	if lit != 0 {
		d.open = append(d.open, lit)
		d.see(qbf.Var(lit))
		return
	}
	c := make([]int, len(d.open))
	copy(c, d.open)
	d.open = d.open[:0]
	d.clauses = append(d.clauses, c)
	for _, m := range c {
		d.occurs[qbf.Var(m)]++
	}
}

func (d *database) Assume(lit int) {
	if lit == 0 {
		d.errs = append(d.errs, fmt.Errorf("assumption of literal 0"))
		return
	}
	if !d.IsDeclared(qbf.Var(lit)) {
		d.errs = append(d.errs, fmt.Errorf("assumption on unknown variable %d", qbf.Var(lit)))
		return
	}
	d.assumptions = append(d.assumptions, lit)
}

func (d *database) Push() {
	if len(d.open) > 0 {
		d.errs = append(d.errs, fmt.Errorf("push with unterminated clause %v", d.open))
	}
	d.frames = append(d.frames, frame{
		clauses:      len(d.clauses),
		scopes:       len(d.scopes),
		declarations: len(d.declarations),
	})
}

func (d *database) Pop() error {
	if len(d.frames) == 0 {
		return fmt.Errorf("pop without matching push")
	}
	if len(d.open) > 0 {
		d.errs = append(d.errs, fmt.Errorf("pop with unterminated clause %v", d.open))
	}
	f := d.frames[len(d.frames)-1]
	d.frames = d.frames[:len(d.frames)-1]

	for _, c := range d.clauses[f.clauses:] {
		for _, m := range c {
			d.occurs[qbf.Var(m)]--
		}
	}
	d.clauses = d.clauses[:f.clauses]

	for i := len(d.declarations) - 1; i >= f.declarations; i-- {
		decl := d.declarations[i]
		delete(d.owner, decl.v)
		vars := d.scopes[decl.s].vars
		d.scopes[decl.s].vars = vars[:len(vars)-1]
	}
	d.declarations = d.declarations[:f.declarations]
	d.scopes = d.scopes[:f.scopes]
	return nil
}

func (d *database) MaxVar() int {
	return d.maxVar
}

func (d *database) see(v int) {
	if v > d.maxVar {
		d.maxVar = v
	}
}

// Error returns the aggregated inconsistencies recorded so far, or
// nil.
func (d *database) Error() error {
	if len(d.errs) == 0 {
		return nil
	}
	errs := make(InconsistencyError, len(d.errs))
	copy(errs, d.errs)
	return errs
}

// level is a maximal run of variables sharing a quantifier.
type level struct {
	q    qbf.Quantifier
	vars []int
}

// problem is the snapshot of a database handed to a backend.
type problem struct {
	levels      []level
	clauses     [][]int
	assumptions []int
	nvars       int
}

// problem normalizes the prefix: empty scopes are dropped, adjacent
// scopes of equal polarity are merged and free variables are placed
// in an outermost existential level. The result always has at least
// one level.
func (d *database) problem() *problem {
	var free []int
	for v, n := range d.occurs {
		if _, ok := d.owner[v]; n > 0 && !ok {
			free = append(free, v)
		}
	}
	sort.Ints(free)

	var levels []level
	for _, s := range d.scopes {
		if len(s.vars) == 0 {
			continue
		}
		if n := len(levels); n > 0 && levels[n-1].q == s.q {
			levels[n-1].vars = append(levels[n-1].vars, s.vars...)
			continue
		}
		levels = append(levels, level{q: s.q, vars: append([]int(nil), s.vars...)})
	}
	switch {
	case len(levels) > 0 && levels[0].q == qbf.Exists:
		levels[0].vars = append(free, levels[0].vars...)
	case len(free) > 0 || len(levels) == 0:
		levels = append([]level{{q: qbf.Exists, vars: free}}, levels...)
	}

	return &problem{
		levels:      levels,
		clauses:     d.clauses,
		assumptions: d.assumptions,
		nvars:       d.maxVar,
	}
}
