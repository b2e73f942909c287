package count

import "math"

// Sentinel is the count reported once the number of witnesses can no
// longer be represented.
const Sentinel uint64 = math.MaxUint64

// maxDontCares is the smallest number of don't-cares whose expansion
// 2^k does not fit in a uint64.
const maxDontCares = 64

// Tally accumulates expanded witness counts without wrapping.
type Tally struct {
	count    uint64
	headroom uint64
}

func NewTally() Tally {
	return Tally{headroom: Sentinel}
}

// Add accounts for one witness with the given number of don't-cares,
// i.e. 2^dontCares assignments. It reports false, leaving the tally
// unchanged, if the result would not be representable.
func (t *Tally) Add(dontCares int) bool {
	if dontCares < 0 || dontCares >= maxDontCares {
		return false
	}
	d := uint64(1) << uint(dontCares)
	if d > t.headroom {
		return false
	}
	t.count += d
	t.headroom -= d
	return true
}

func (t Tally) Count() uint64 {
	return t.count
}

// Headroom returns how much more can be added before overflow.
func (t Tally) Headroom() uint64 {
	return t.headroom
}
