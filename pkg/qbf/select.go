package qbf

// Selection classifies the variables of a formula by quantifier
// block.
type Selection struct {
	// Blocks is the prefix with adjacent blocks of equal polarity
	// merged and empty blocks dropped. Block i of the selection has
	// index i+1.
	Blocks []Block
	// Free lists, in ascending order, the variables that occur in
	// some clause but in no block.
	Free []int
	// Countable lists, in ascending order, the variables of block 1
	// together with the free variables.
	Countable []int

	blockOf []int
}

// Select normalizes the prefix of f and computes its outer block.
// Free variables are existentially quantified at the outermost
// position, so they are counted together with block 1.
func Select(f *Formula) (*Selection, error) {
	s := &Selection{blockOf: make([]int, f.NumVars+1)}
	quantified := make([]bool, f.NumVars+1)

	for _, b := range f.Blocks {
		if len(b.Vars) == 0 {
			continue
		}
		if b.Quantifier != Exists && b.Quantifier != Forall {
			return nil, &MalformedPrefixError{Var: b.Vars[0], Reason: "belongs to a block without quantifier"}
		}
		if n := len(s.Blocks); n == 0 || s.Blocks[n-1].Quantifier != b.Quantifier {
			s.Blocks = append(s.Blocks, Block{Quantifier: b.Quantifier})
		}
		index := len(s.Blocks)
		for _, v := range b.Vars {
			if v < 1 || v > f.NumVars {
				return nil, &MalformedPrefixError{Var: v, Reason: "is out of range"}
			}
			if quantified[v] {
				if s.blockOf[v] == index {
					return nil, &MalformedPrefixError{Var: v, Reason: "is quantified twice in one block"}
				}
				return nil, &MalformedPrefixError{Var: v, Reason: "is quantified in more than one block"}
			}
			quantified[v] = true
			s.blockOf[v] = index
			s.Blocks[index-1].Vars = append(s.Blocks[index-1].Vars, v)
		}
	}

	occurs := make([]bool, f.NumVars+1)
	for _, c := range f.Clauses {
		for _, lit := range c {
			v := Var(lit)
			if v < 1 || v > f.NumVars {
				return nil, &MalformedPrefixError{Var: v, Reason: "is out of range"}
			}
			occurs[v] = true
		}
	}

	for v := 1; v <= f.NumVars; v++ {
		switch {
		case quantified[v] && s.blockOf[v] == 1:
			s.Countable = append(s.Countable, v)
		case !quantified[v] && occurs[v]:
			s.Free = append(s.Free, v)
			s.Countable = append(s.Countable, v)
		}
	}
	return s, nil
}

// Block returns the block index of v: 0 for free or unused
// variables, 1 for the outer block.
func (s *Selection) Block(v int) int {
	if v < 1 || v >= len(s.blockOf) {
		return 0
	}
	return s.blockOf[v]
}

// IsCountable reports whether v is one of the counted variables.
func (s *Selection) IsCountable(v int) bool {
	if v < 1 || v >= len(s.blockOf) {
		return false
	}
	if s.blockOf[v] == 1 {
		return true
	}
	for _, f := range s.Free {
		if f == v {
			return true
		}
	}
	return false
}

// Outer returns the polarity of block 1, or 0 if the prefix is
// empty.
func (s *Selection) Outer() Quantifier {
	if len(s.Blocks) == 0 {
		return 0
	}
	return s.Blocks[0].Quantifier
}

// InnermostExists returns the index of the innermost existential
// block, or 0 if there is none.
func (s *Selection) InnermostExists() int {
	for i := len(s.Blocks) - 1; i >= 0; i-- {
		if s.Blocks[i].Quantifier == Exists {
			return i + 1
		}
	}
	return 0
}
