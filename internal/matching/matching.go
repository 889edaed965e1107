// Package matching implements MaskedMatching, a vector of bitset.Bitset
// indexed by "slot" (a member of set A), each slot holding the set of B
// members that slot is still allowed to match.
//
// A candidate matching has every slot a singleton (one point assignment per
// A). A constraint's asserted map is allowed to leave slots empty (the
// constraint says nothing about them). A rule-variant matching may have a
// slot with more than one bit set — that slot holds a "duplicate" set under
// XTimesDup/SomeoneIsTrip. The bitset-per-slot layout is what keeps the
// per-candidate constraint check in the hot enumeration loop branch-light:
// no heap allocation, everything fits in registers.
package matching

import "github.com/atticus-sullivan/sim-ayto-go/internal/bitset"

// M is a MaskedMatching: M[i] is the allowed set for slot i.
type M []bitset.Bitset

// New allocates an M of the given length with every slot empty.
func New(slots int) M {
	return make(M, slots)
}

// FromSingletons builds an M where slot i is the singleton {vals[i]}.
func FromSingletons(vals []int) M {
	m := make(M, len(vals))
	for i, v := range vals {
		m[i] = bitset.Empty.Insert(v)
	}
	return m
}

// FromPair builds the minimally-sized M where slot a holds the singleton
// {b} and every slot below a is empty. Used to represent a single Box
// assertion "(a, b) is a match".
func FromPair(a, b int) M {
	m := make(M, a+1)
	m[a] = bitset.Empty.Insert(b)
	return m
}

// SlotMask returns the allowed set for slot i.
func (m M) SlotMask(i int) bitset.Bitset {
	return m[i]
}

// CalculateLights returns the number of correctly-matched pairs between m
// and other: the sum over slots of the overlap between the two allowed
// sets. For two candidate (all-singleton) matchings this is the classic
// "lights" count from the show; it is also used, more generally, to score
// a candidate against a constraint's asserted map.
func (m M) CalculateLights(other M) int {
	lights := 0
	n := len(m)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		lights += m[i].Intersection(other[i]).Count()
	}
	return lights
}

// ContainsMask reports whether every bit of mask appears in the union of
// every slot of m. Used by the Eq check: "this pair is asserted" succeeds
// if the asserted B value shows up anywhere in the candidate, regardless of
// which slot.
func (m M) ContainsMask(mask bitset.Bitset) bool {
	var union bitset.Bitset
	for _, slot := range m {
		union = union.Union(slot)
	}
	return union.Union(mask) == union
}

// UnionAll returns the union of every populated slot. Used to build the Eq
// check's asserted mask from a constraint's map.
func (m M) UnionAll() bitset.Bitset {
	var union bitset.Bitset
	for _, slot := range m {
		union = union.Union(slot)
	}
	return union
}

// And returns the slot-wise intersection of m and other. Both must have the
// same length.
func (m M) And(other M) M {
	out := make(M, len(m))
	for i := range m {
		out[i] = m[i].Intersection(other[i])
	}
	return out
}

// Clone returns an independent copy of m.
func (m M) Clone() M {
	out := make(M, len(m))
	copy(out, m)
	return out
}

// Pair is a single (slot, value) observation, as yielded by IterPairs.
type Pair struct {
	Slot  int
	Value int
}

// IterPairs yields every (slot, bit) pair in m in ascending slot then
// ascending bit order.
func (m M) IterPairs(yield func(Pair) bool) {
	for slot, mask := range m {
		cont := true
		mask.Iter(func(v int) bool {
			if !yield(Pair{Slot: slot, Value: v}) {
				cont = false
				return false
			}
			return true
		})
		if !cont {
			return
		}
	}
}

// Rem is the remaining-possibility bookkeeping spec.md §3 names: the
// |A|x|B| matrix of surviving-matching counts per (a,b) pair, plus the
// total survivor count. Counts[a][b] is how many of the Total surviving
// candidates place b at slot a — the per-pair marginal probability table
// is Counts[a][b]/Total.
type Rem struct {
	Counts [][]int64
	Total  int64
}

// NewRem allocates a zeroed Rem for sizeA slots over a B universe of
// sizeB members.
func NewRem(sizeA, sizeB int) Rem {
	counts := make([][]int64, sizeA)
	for i := range counts {
		counts[i] = make([]int64, sizeB)
	}
	return Rem{Counts: counts}
}

// Clone returns an independent copy of r.
func (r Rem) Clone() Rem {
	out := Rem{Counts: make([][]int64, len(r.Counts)), Total: r.Total}
	for i, row := range r.Counts {
		out.Counts[i] = append([]int64(nil), row...)
	}
	return out
}

// IterUnwrapped yields every Cartesian pick of m: one element chosen from
// each slot. If any slot is empty, it yields nothing — dump-mode expansion
// of a set of surviving possibilities into concrete candidate matchings.
func (m M) IterUnwrapped(yield func(M) bool) {
	for _, slot := range m {
		if slot.IsEmpty() {
			return
		}
	}
	picks := make([]int, len(m))
	var rec func(i int) bool
	rec = func(i int) bool {
		if i == len(m) {
			return yield(FromSingletons(picks))
		}
		cont := true
		m[i].Iter(func(v int) bool {
			picks[i] = v
			if !rec(i + 1) {
				cont = false
				return false
			}
			return true
		})
		return cont
	}
	rec(0)
}
