package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalzilio/rudd"

	"github.com/operator-framework/outer-count/pkg/qbf"
)

// errFirstPath stops Allsat after the first path.
var errFirstPath = errors.New("first path found")

// bddBackend builds a fresh BDD of the matrix for every call.
// Variable v is BDD level v-1.
type bddBackend struct {
	cfg Config
}

func (b bddBackend) decide(ctx context.Context, p *problem) (Result, map[int]Value, error) {
	varnum := p.nvars
	if varnum < 1 {
		varnum = 1
	}
	cacheSize := b.cfg.CacheSize
	if cacheSize == 0 {
		cacheSize = DefaultConfig().CacheSize
	}
	bdd, err := rudd.New(varnum,
		rudd.Nodesize(b.cfg.NodeSize),
		rudd.Cachesize(cacheSize),
		rudd.Cacheratio(b.cfg.CacheRatio),
		rudd.Maxnodesize(b.cfg.MaxNodes))
	if err != nil {
		return Unknown, nil, err
	}
	check := func() error {
		if bdd.Errored() {
			return fmt.Errorf("%w: %s", ErrCapacity, bdd.Error())
		}
		return ctx.Err()
	}

	literal := func(lit int) rudd.Node {
		if lit > 0 {
			return bdd.Ithvar(lit - 1)
		}
		return bdd.NIthvar(-lit - 1)
	}

	m := bdd.True()
	for _, c := range p.clauses {
		if len(c) == 0 {
			m = bdd.False()
			break
		}
		ns := make([]rudd.Node, len(c))
		for i, lit := range c {
			ns[i] = literal(lit)
		}
		m = bdd.And(m, bdd.Or(ns...))
	}
	if err := check(); err != nil {
		return Unknown, nil, err
	}

	assumed := make(map[int]Value, len(p.assumptions))
	for _, lit := range p.assumptions {
		v := qbf.Var(lit)
		m = bdd.Exist(bdd.And(m, literal(lit)), bdd.Makeset([]int{v - 1}))
		if lit > 0 {
			assumed[v] = True
		} else {
			assumed[v] = False
		}
	}

	for i := len(p.levels) - 1; i > 0; i-- {
		l := p.levels[i]
		set := bdd.Makeset(bddLevels(l.vars))
		if l.q == qbf.Exists {
			m = bdd.Exist(m, set)
		} else {
			m = bdd.Not(bdd.Exist(bdd.Not(m), set))
		}
		if err := check(); err != nil {
			return Unknown, nil, err
		}
	}

	outer := p.levels[0]
	var result Result
	witness := m
	if outer.q == qbf.Exists {
		result = Unsatisfiable
		if !bdd.Equal(m, bdd.False()) {
			result = Satisfiable
		}
	} else {
		result = Satisfiable
		if !bdd.Equal(m, bdd.True()) {
			result = Unsatisfiable
			witness = bdd.Not(m)
		}
	}
	if err := check(); err != nil {
		return Unknown, nil, err
	}

	values := make(map[int]Value, len(outer.vars))
	if (outer.q == qbf.Exists) != (result == Satisfiable) {
		return result, values, nil
	}

	var path []int
	err = bdd.Allsat(func(profile []int) error {
		if path == nil {
			path = make([]int, len(profile))
			copy(path, profile)
		}
		return errFirstPath
	}, witness)
	if err != nil && !errors.Is(err, errFirstPath) {
		return Unknown, nil, err
	}
	for _, v := range outer.vars {
		if a, ok := assumed[v]; ok {
			values[v] = a
			continue
		}
		if v-1 >= len(path) {
			continue
		}
		switch path[v-1] {
		case 0:
			values[v] = False
		case 1:
			values[v] = True
		}
	}
	return result, values, nil
}

func bddLevels(vars []int) []int {
	ls := make([]int, len(vars))
	for i, v := range vars {
		ls[i] = v - 1
	}
	return ls
}
