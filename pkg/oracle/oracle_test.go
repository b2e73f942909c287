package oracle

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/outer-count/pkg/qbf"
)

var backends = []string{BackendBDD, BackendExpand}

func newOracle(t *testing.T, backend string) Oracle {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Backend = backend
	o, err := New(WithConfig(cfg))
	require.NoError(t, err)
	return o
}

func load(o Oracle, blocks []qbf.Block, clauses ...[]int) {
	for _, b := range blocks {
		s := o.NewScope(b.Quantifier)
		for _, v := range b.Vars {
			o.AddVarToScope(v, s)
		}
	}
	for _, c := range clauses {
		for _, lit := range c {
			o.Add(lit)
		}
		o.Add(0)
	}
}

func TestSolve(t *testing.T) {
	type tc struct {
		Name    string
		Blocks  []qbf.Block
		Clauses [][]int
		Assume  []int
		Result  Result
		Values  map[int]Value
	}

	for _, tt := range []tc{
		{
			Name:    "exactly one of two",
			Blocks:  []qbf.Block{{Quantifier: qbf.Exists, Vars: []int{1, 2}}},
			Clauses: [][]int{{1, 2}, {-1, -2}},
			Result:  Satisfiable,
		},
		{
			Name:    "universal contradiction",
			Blocks:  []qbf.Block{{Quantifier: qbf.Forall, Vars: []int{1}}},
			Clauses: [][]int{{1}, {-1}},
			Result:  Unsatisfiable,
			Values:  map[int]Value{1: Undefined},
		},
		{
			Name: "forall exists copy",
			Blocks: []qbf.Block{
				{Quantifier: qbf.Forall, Vars: []int{1}},
				{Quantifier: qbf.Exists, Vars: []int{2}},
			},
			Clauses: [][]int{{1, -2}, {-1, 2}},
			Result:  Satisfiable,
		},
		{
			Name: "exists forall copy",
			Blocks: []qbf.Block{
				{Quantifier: qbf.Exists, Vars: []int{1}},
				{Quantifier: qbf.Forall, Vars: []int{2}},
			},
			Clauses: [][]int{{1, -2}, {-1, 2}},
			Result:  Unsatisfiable,
		},
		{
			Name: "countermodel",
			Blocks: []qbf.Block{
				{Quantifier: qbf.Forall, Vars: []int{1, 2}},
				{Quantifier: qbf.Exists, Vars: []int{3}},
			},
			Clauses: [][]int{{1, 3}, {2, -3}},
			Result:  Unsatisfiable,
			Values:  map[int]Value{1: False, 2: False},
		},
		{
			Name:    "don't care",
			Blocks:  []qbf.Block{{Quantifier: qbf.Exists, Vars: []int{1, 2}}},
			Clauses: [][]int{{1}},
			Result:  Satisfiable,
			Values:  map[int]Value{1: True, 2: Undefined},
		},
		{
			Name: "assumption on inner guard",
			Blocks: []qbf.Block{
				{Quantifier: qbf.Exists, Vars: []int{1}},
				{Quantifier: qbf.Exists, Vars: []int{2}},
			},
			Clauses: [][]int{{-2, 1}, {-2, -1}},
			Assume:  []int{2},
			Result:  Unsatisfiable,
		},
		{
			Name:    "free variables are outermost",
			Blocks:  []qbf.Block{{Quantifier: qbf.Forall, Vars: []int{1}}},
			Clauses: [][]int{{1, 2}, {-1, 2}},
			Result:  Satisfiable,
			Values:  map[int]Value{2: True},
		},
		{
			Name:    "empty clause",
			Blocks:  []qbf.Block{{Quantifier: qbf.Exists, Vars: []int{1}}},
			Clauses: [][]int{{1}, {}},
			Result:  Unsatisfiable,
		},
	} {
		for _, backend := range backends {
			t.Run(backend+"/"+tt.Name, func(t *testing.T) {
				o := newOracle(t, backend)
				load(o, tt.Blocks, tt.Clauses...)
				for _, lit := range tt.Assume {
					o.Assume(lit)
				}
				result, err := o.Solve(context.Background())
				require.NoError(t, err)
				assert.Equal(t, tt.Result, result)
				for v, want := range tt.Values {
					assert.Equal(t, want, o.Value(v), "value of %d", v)
				}
			})
		}
	}
}

func TestAssumptionsAreOneShot(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			o := newOracle(t, backend)
			load(o, []qbf.Block{{Quantifier: qbf.Exists, Vars: []int{1, 2}}}, []int{-2, 1}, []int{-2, -1})

			o.Assume(2)
			result, err := o.Solve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, Unsatisfiable, result)

			result, err = o.Solve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, Satisfiable, result)
			assert.Equal(t, False, o.Value(2))
		})
	}
}

func TestPushPop(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			assert := assert.New(t)
			o := newOracle(t, backend)
			inner := o.NewScope(qbf.Exists)
			o.AddVarToScope(1, inner)
			load(o, nil, []int{1})

			o.Push()
			o.AddVarToScope(2, inner)
			load(o, nil, []int{-1, 2}, []int{-2})
			assert.True(o.IsDeclared(2))
			result, err := o.Solve(context.Background())
			require.NoError(t, err)
			assert.Equal(Unsatisfiable, result)

			require.NoError(t, o.Pop())
			assert.False(o.IsDeclared(2))
			assert.Equal(2, o.MaxVar())
			result, err = o.Solve(context.Background())
			require.NoError(t, err)
			assert.Equal(Satisfiable, result)

			assert.Error(o.Pop())
		})
	}
}

func TestPopRemovesScopes(t *testing.T) {
	o := newOracle(t, BackendBDD)
	load(o, []qbf.Block{{Quantifier: qbf.Forall, Vars: []int{1}}})
	o.Push()
	s := o.NewScope(qbf.Exists)
	o.AddVarToScope(2, s)
	require.NoError(t, o.Pop())

	o.AddVarToScope(2, s)
	_, err := o.Solve(context.Background())
	var ierr InconsistencyError
	require.True(t, errors.As(err, &ierr), "unexpected error %v", err)
	assert.Len(t, ierr, 1)
}

func TestInconsistencies(t *testing.T) {
	type tc struct {
		Name  string
		Build func(o Oracle)
		Count int
	}

	for _, tt := range []tc{
		{
			Name: "variable declared twice",
			Build: func(o Oracle) {
				s := o.NewScope(qbf.Exists)
				o.AddVarToScope(1, s)
				o.AddVarToScope(1, s)
			},
			Count: 1,
		},
		{
			Name: "unknown scope",
			Build: func(o Oracle) {
				o.AddVarToScope(1, Scope(3))
			},
			Count: 1,
		},
		{
			Name: "unterminated clause",
			Build: func(o Oracle) {
				o.Add(1)
			},
			Count: 1,
		},
		{
			Name: "assumption on unknown variable",
			Build: func(o Oracle) {
				o.Assume(4)
			},
			Count: 1,
		},
		{
			Name: "several",
			Build: func(o Oracle) {
				o.Assume(0)
				o.AddVarToScope(0, o.NewScope(qbf.Forall))
			},
			Count: 2,
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			o := newOracle(t, BackendBDD)
			tt.Build(o)
			result, err := o.Solve(context.Background())
			assert.Equal(t, Unknown, result)
			var ierr InconsistencyError
			require.True(t, errors.As(err, &ierr), "unexpected error %v", err)
			assert.Len(t, ierr, tt.Count)

			// Inconsistencies are sticky.
			_, err = o.Solve(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestSolveCancelled(t *testing.T) {
	o := newOracle(t, BackendBDD)
	load(o, []qbf.Block{{Quantifier: qbf.Exists, Vars: []int{1}}}, []int{1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Solve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpandCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendExpand
	cfg.MaxCircuit = 4
	o, err := New(WithConfig(cfg))
	require.NoError(t, err)
	load(o,
		[]qbf.Block{
			{Quantifier: qbf.Forall, Vars: []int{1, 2}},
			{Quantifier: qbf.Exists, Vars: []int{3, 4}},
		},
		[]int{1, 3, 4}, []int{-1, -3, 4}, []int{2, 3, -4}, []int{-2, -3, -4},
	)
	_, err = o.Solve(context.Background())
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestUnknownBackend(t *testing.T) {
	_, err := New(WithConfig(Config{Backend: "depqbf"}))
	assert.EqualError(t, err, `unknown oracle backend "depqbf"`)
}

// TestBackendsAgainstEnumeration checks results and the soundness of
// don't-cares on random formulas against exhaustive evaluation.
func TestBackendsAgainstEnumeration(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 60; i++ {
		blocks, clauses := randomQBF(rng, 6, 8)
		p := &problem{clauses: clauses}
		for _, b := range blocks {
			p.levels = append(p.levels, level{q: b.Quantifier, vars: b.Vars})
		}
		want := evaluate(p.levels, clauses, map[int]bool{})

		for _, backend := range backends {
			o := newOracle(t, backend)
			load(o, blocks, clauses...)
			result, err := o.Solve(context.Background())
			require.NoError(t, err)
			require.Equal(t, want, result == Satisfiable, "backend %s, formula %v %v", backend, blocks, clauses)

			outer := p.levels[0]
			if (outer.q == qbf.Exists) != want {
				continue
			}
			var defined []int
			fixed := map[int]bool{}
			var open []int
			for _, v := range outer.vars {
				switch o.Value(v) {
				case True:
					fixed[v] = true
					defined = append(defined, v)
				case False:
					fixed[v] = false
					defined = append(defined, v)
				default:
					open = append(open, v)
				}
			}
			forEachAssignment(open, fixed, func(a map[int]bool) {
				got := evaluate(p.levels[1:], clauses, a)
				assert.Equal(t, want, got, "backend %s: witness %v does not extend to %v", backend, defined, a)
			})
		}
	}
}

func randomQBF(rng *rand.Rand, nvars, nclauses int) ([]qbf.Block, [][]int) {
	var blocks []qbf.Block
	q := qbf.Exists
	if rng.Intn(2) == 0 {
		q = qbf.Forall
	}
	for v := 1; v <= nvars; {
		size := 1 + rng.Intn(3)
		b := qbf.Block{Quantifier: q}
		for ; size > 0 && v <= nvars; size-- {
			b.Vars = append(b.Vars, v)
			v++
		}
		blocks = append(blocks, b)
		q = q.Dual()
	}
	clauses := make([][]int, nclauses)
	for i := range clauses {
		width := 1 + rng.Intn(3)
		for j := 0; j < width; j++ {
			lit := 1 + rng.Intn(nvars)
			if rng.Intn(2) == 0 {
				lit = -lit
			}
			clauses[i] = append(clauses[i], lit)
		}
	}
	return blocks, clauses
}

func evaluate(levels []level, clauses [][]int, a map[int]bool) bool {
	if len(levels) == 0 {
		for _, c := range clauses {
			sat := false
			for _, lit := range c {
				if a[qbf.Var(lit)] == (lit > 0) {
					sat = true
					break
				}
			}
			if !sat {
				return false
			}
		}
		return true
	}
	l := levels[0]
	exists := l.q == qbf.Exists
	result := !exists
	forEachAssignment(l.vars, a, func(b map[int]bool) {
		if evaluate(levels[1:], clauses, b) == exists {
			result = exists
		}
	})
	return result
}

func forEachAssignment(vars []int, base map[int]bool, f func(map[int]bool)) {
	for bits := 0; bits < 1<<len(vars); bits++ {
		a := make(map[int]bool, len(base)+len(vars))
		for v, b := range base {
			a[v] = b
		}
		for i, v := range vars {
			a[v] = bits&(1<<i) != 0
		}
		f(a)
	}
}
