// Package bitset implements a fixed-width set of small non-negative integers
// backed by a single machine word.
//
// A Bitset is the unit the rest of the engine builds on: a slot's allowed
// members, a candidate matching's populated bits, a constraint's exclusion
// set are all Bitsets. Every operation here is O(1) except iteration, which
// is O(popcount) and proceeds in ascending order by repeatedly reading the
// lowest set bit and clearing it — the same trick the teacher's card
// evaluator uses to walk a rank bitmap (rankBits |= 1 << rank, then peel
// bits off low to high).
package bitset

import "math/bits"

// Width is the number of elements a Bitset can hold, indices 0..Width-1.
// 64 covers every ruleset size the engine needs to reason about; a single
// uint64 keeps every operation a register op with no allocation.
const Width = 64

// Bitset is a set of integers drawn from {0, ..., Width-1}.
//
// Invariant: no element >= Width is ever set. Callers that construct a
// Bitset from untrusted indices (parsed names, CLI input) must check bounds
// themselves; Insert performs no bounds check (an index >= Width sets no
// bit) and is not a runtime error surface.
type Bitset uint64

// Empty is the Bitset containing no elements.
const Empty Bitset = 0

// Insert returns b with bit i set.
func (b Bitset) Insert(i int) Bitset {
	return b | (1 << uint(i))
}

// Remove returns b with bit i cleared.
func (b Bitset) Remove(i int) Bitset {
	return b &^ (1 << uint(i))
}

// Contains reports whether i is a member of b.
func (b Bitset) Contains(i int) bool {
	return b&(1<<uint(i)) != 0
}

// Count returns the number of members of b.
func (b Bitset) Count() int {
	return bits.OnesCount64(uint64(b))
}

// IsEmpty reports whether b has no members.
func (b Bitset) IsEmpty() bool {
	return b == 0
}

// IsSingleton reports whether b has exactly one member.
func (b Bitset) IsSingleton() bool {
	return b.Count() == 1
}

// SingleIdx returns the sole member of b and true, or (0, false) if b is not
// a singleton.
func (b Bitset) SingleIdx() (int, bool) {
	if !b.IsSingleton() {
		return 0, false
	}
	return b.TrailingZeros(), true
}

// TrailingZeros returns the index of the lowest set bit. Calling it on an
// empty set returns Width, mirroring bits.TrailingZeros64's convention.
func (b Bitset) TrailingZeros() int {
	return bits.TrailingZeros64(uint64(b))
}

// ClearLowest returns b with its lowest set bit removed.
func (b Bitset) ClearLowest() Bitset {
	return b & (b - 1)
}

// Union returns the union of b and other.
func (b Bitset) Union(other Bitset) Bitset {
	return b | other
}

// Intersection returns the intersection of b and other.
func (b Bitset) Intersection(other Bitset) Bitset {
	return b & other
}

// Intersects reports whether b and other share any member.
func (b Bitset) Intersects(other Bitset) bool {
	return b&other != 0
}

// FromIdxs builds a Bitset containing exactly the given indices.
func FromIdxs(idxs []int) Bitset {
	var b Bitset
	for _, i := range idxs {
		b = b.Insert(i)
	}
	return b
}

// Iter yields the members of b in ascending order.
func (b Bitset) Iter(yield func(int) bool) {
	for b != 0 {
		i := b.TrailingZeros()
		if !yield(i) {
			return
		}
		b = b.ClearLowest()
	}
}

// Idxs returns the members of b as a sorted slice. Convenience wrapper
// around Iter for call sites that want a concrete slice (serialization,
// test assertions) rather than ranging in place.
func (b Bitset) Idxs() []int {
	out := make([]int, 0, b.Count())
	b.Iter(func(i int) bool {
		out = append(out, i)
		return true
	})
	return out
}
