package count

import "github.com/operator-framework/outer-count/pkg/oracle"

// exclusionChain hands out the excluder variables of a falsifying
// run. Variables are allocated consecutively and never reused.
type exclusionChain struct {
	next int
	vars []int
}

func newExclusionChain(first int) *exclusionChain {
	return &exclusionChain{next: first}
}

// Extend allocates the next excluder.
func (c *exclusionChain) Extend() int {
	e := c.next
	c.next++
	c.vars = append(c.vars, e)
	return e
}

func (c *exclusionChain) Len() int {
	return len(c.vars)
}

// Clause returns guard ∨ e1 ∨ … ∨ ek: either the input formula
// holds, or the assignment is one of the countermodels already
// found.
func (c *exclusionChain) Clause(guard int) []int {
	clause := make([]int, 0, len(c.vars)+1)
	clause = append(clause, guard)
	return append(clause, c.vars...)
}

// assignment is a witness restricted to its defined variables, as
// literals that agree with it.
type assignment []int

// blockingClause returns the clause that disagrees with a on at
// least one variable. Don't-cares are absent from a and therefore
// never blocked.
func (a assignment) blockingClause() []int {
	clause := make([]int, len(a))
	for i, lit := range a {
		clause[i] = -lit
	}
	return clause
}

// selectorClauses returns ¬e ∨ lit for every lit of a, so that e
// implies the assignment.
func (a assignment) selectorClauses(e int) [][]int {
	clauses := make([][]int, len(a))
	for i, lit := range a {
		clauses[i] = []int{-e, lit}
	}
	return clauses
}

func literal(v int, val oracle.Value) int {
	if val == oracle.False {
		return -v
	}
	return v
}
