package oracle

import (
	"context"
	"fmt"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/operator-framework/outer-count/pkg/qbf"
)

const satisfiable = 1

// expandBackend eliminates every non-outermost quantifier by Shannon
// expansion of an and-inverter circuit and hands the remaining
// propositional problem over the outermost variables to gini.
type expandBackend struct {
	cfg Config
}

type circuit struct {
	c      *logic.C
	inputs map[int]z.Lit
	limit  int
}

func (e expandBackend) decide(ctx context.Context, p *problem) (Result, map[int]Value, error) {
	k := circuit{
		c:      logic.NewC(),
		inputs: make(map[int]z.Lit, p.nvars),
		limit:  e.cfg.MaxCircuit,
	}

	root := k.c.T
	for _, clause := range p.clauses {
		ms := make([]z.Lit, len(clause))
		for i, lit := range clause {
			ms[i] = k.literal(lit)
		}
		root = k.c.And(root, k.c.Ors(ms...))
	}

	assumed := make(map[int]Value, len(p.assumptions))
	for _, lit := range p.assumptions {
		v := qbf.Var(lit)
		assumed[v] = False
		if lit > 0 {
			assumed[v] = True
		}
		if x, ok := k.inputs[v]; ok {
			root = k.restrict(root, x.Var(), lit > 0, make(map[z.Var]z.Lit))
		}
	}

	for i := len(p.levels) - 1; i > 0; i-- {
		l := p.levels[i]
		for j := len(l.vars) - 1; j >= 0; j-- {
			x, ok := k.inputs[l.vars[j]]
			if !ok {
				continue
			}
			lo := k.restrict(root, x.Var(), false, make(map[z.Var]z.Lit))
			hi := k.restrict(root, x.Var(), true, make(map[z.Var]z.Lit))
			if l.q == qbf.Exists {
				root = k.c.Or(lo, hi)
			} else {
				root = k.c.And(lo, hi)
			}
			if k.limit > 0 && k.c.Len() > k.limit {
				return Unknown, nil, fmt.Errorf("%w: circuit has %d nodes, limit is %d", ErrCapacity, k.c.Len(), k.limit)
			}
		}
		if err := ctx.Err(); err != nil {
			return Unknown, nil, err
		}
	}

	outer := p.levels[0]
	goal := root
	if outer.q == qbf.Forall {
		goal = root.Not()
	}

	values := make(map[int]Value, len(outer.vars))
	found := false
	var g *gini.Gini
	switch goal {
	case k.c.F:
	case k.c.T:
		found = true
	default:
		g = gini.New()
		k.c.ToCnfFrom(g, goal)
		g.Add(goal)
		g.Add(z.LitNull)
		found = g.Solve() == satisfiable
	}

	result := Satisfiable
	if found == (outer.q == qbf.Forall) {
		result = Unsatisfiable
	}
	if !found {
		return result, values, nil
	}

	support := k.support(goal)
	for _, v := range outer.vars {
		if a, ok := assumed[v]; ok {
			values[v] = a
			continue
		}
		x, ok := k.inputs[v]
		if !ok || g == nil || !support[x.Var()] {
			continue
		}
		if g.Value(x) {
			values[v] = True
		} else {
			values[v] = False
		}
	}
	return result, values, nil
}

func (k *circuit) literal(lit int) z.Lit {
	v := qbf.Var(lit)
	x, ok := k.inputs[v]
	if !ok {
		x = k.c.Lit()
		k.inputs[v] = x
	}
	if lit < 0 {
		return x.Not()
	}
	return x
}

// restrict returns m with input x replaced by the constant val.
func (k *circuit) restrict(m z.Lit, x z.Var, val bool, memo map[z.Var]z.Lit) z.Lit {
	v := m.Var()
	r, ok := memo[v]
	if !ok {
		a, b := k.c.Ins(v.Pos())
		switch {
		case v == x && val:
			r = k.c.T
		case v == x:
			r = k.c.F
		case a == z.LitNull:
			r = v.Pos()
		default:
			r = k.c.And(k.restrict(a, x, val, memo), k.restrict(b, x, val, memo))
		}
		memo[v] = r
	}
	if !m.IsPos() {
		return r.Not()
	}
	return r
}

// support returns the circuit inputs reachable from m.
func (k *circuit) support(m z.Lit) map[z.Var]bool {
	inputs := make(map[z.Var]bool)
	seen := make(map[z.Var]bool)
	stack := []z.Var{m.Var()}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[v] {
			continue
		}
		seen[v] = true
		a, b := k.c.Ins(v.Pos())
		if a == z.LitNull {
			if v != k.c.T.Var() {
				inputs[v] = true
			}
			continue
		}
		stack = append(stack, a.Var(), b.Var())
	}
	return inputs
}
