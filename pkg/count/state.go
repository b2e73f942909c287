package count

import "fmt"

// State is the position of a Session in the counting state machine:
//
//	Init -> DetermineTruth -> EnumSat   -> Done
//	                       -> EnumUnsat -> Done
//
// Overflow is terminal and reachable from both enumeration states.
type State int

const (
	Init State = iota
	DetermineTruth
	EnumSat
	EnumUnsat
	Done
	Overflow
)

var stateNames = [...]string{
	Init:           "INIT",
	DetermineTruth: "DETERMINE_TRUTH",
	EnumSat:        "ENUM_SAT",
	EnumUnsat:      "ENUM_UNSAT",
	Done:           "DONE",
	Overflow:       "OVERFLOW",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Done || s == Overflow
}
