// Package ruleset implements the five matching-structure variants a season
// can be played under, and the allocation-light enumeration of every
// candidate matching consistent with a variant.
//
// Each variant is grounded on the original engine's ruleset.rs: Eq is a
// straight bijection, SomeoneIsTrip/FixedTrip single out one slot to hold a
// triple, NToN restricts to the upper triangle of a self-matching. XTimesDup
// generalizes the original's SomeoneIsDup/FixedDup pair (one unknown or one
// named duplicate) into an arbitrary count of unknown duplicates plus a list
// of named ones; for the single-duplicate case the two definitions coincide
// exactly, which is the case every shipped season has ever used.
//
// Generation itself is Heap's algorithm over the primary sizeA slots,
// followed by a backtracking step that walks the extra (duplicate/triple)
// tokens into slots in canonical order so that no candidate is produced
// twice — the same role the original's add_dup/add_trip/someone_is_dup
// combinators play over permutator's iterator adaptors, just without the
// intermediate Vec<Vec<u8>> allocations.
package ruleset

import (
	"fmt"
	"math/big"

	"github.com/atticus-sullivan/sim-ayto-go/internal/matching"
)

// Kind identifies which matching-structure variant a Ruleset implements.
type Kind int

const (
	Eq Kind = iota
	XTimesDup
	SomeoneIsTrip
	FixedTrip
	NToN
)

func (k Kind) String() string {
	switch k {
	case Eq:
		return "Eq"
	case XTimesDup:
		return "XTimesDup"
	case SomeoneIsTrip:
		return "SomeoneIsTrip"
	case FixedTrip:
		return "FixedTrip"
	case NToN:
		return "NToN"
	}
	return "Unknown"
}

// Ruleset fully parametrizes one matching-structure variant. Not every
// field is meaningful for every Kind; see the per-Kind constructors below.
type Ruleset struct {
	Kind Kind

	// XTimesDup only. FixedIDs are the B-indices that are known in advance
	// to sit in some A slot alongside their slot's primary id. Unknown is
	// the count of additional duplicates whose identity is not fixed.
	FixedIDs []int
	Unknown  int

	// FixedTrip only. TripID is the B-index known in advance to be the
	// third member of the triple slot.
	TripID int
}

// NewEq returns the plain-bijection ruleset: |A| == |B|, one pair per slot.
func NewEq() Ruleset { return Ruleset{Kind: Eq} }

// NewXTimesDup returns the generalized duplicate ruleset: unknown additional
// duplicates plus a list of named ones. Each named one is inserted into any
// A slot alongside that slot's primary occupant, chosen independently of
// the others, so two named duplicates may share a slot.
func NewXTimesDup(unknown int, fixedIDs []int) Ruleset {
	return Ruleset{Kind: XTimesDup, Unknown: unknown, FixedIDs: fixedIDs}
}

// NewSomeoneIsTrip returns the ruleset where exactly one (unnamed) slot
// holds a triple.
func NewSomeoneIsTrip() Ruleset { return Ruleset{Kind: SomeoneIsTrip} }

// NewFixedTrip returns the ruleset where exactly one slot holds a triple and
// tripID is known in advance to be one of its three members.
func NewFixedTrip(tripID int) Ruleset { return Ruleset{Kind: FixedTrip, TripID: tripID} }

// NewNToN returns the self-matching ruleset: A and B are the same set, and
// only pairs (i, j) with i > j are generated (the upper triangle), since
// (i, j) and (j, i) denote the same unordered pair.
func NewNToN() Ruleset { return Ruleset{Kind: NToN} }

// SizeB returns the size set B must have for a season with the given sizeA
// to be valid under this ruleset.
func (r Ruleset) SizeB(sizeA int) int {
	switch r.Kind {
	case Eq:
		return sizeA
	case XTimesDup:
		return sizeA + r.Unknown + len(r.FixedIDs)
	case SomeoneIsTrip:
		return sizeA + 2
	case FixedTrip:
		return sizeA + 2
	case NToN:
		return sizeA
	}
	panic(fmt.Sprintf("ruleset: unknown kind %v", r.Kind))
}

// PermsAmount returns the exact count of candidate matchings this ruleset
// and sizeA produce, as a closed-form expression over big.Int (the counts
// blow up past 64 bits well before A reaches typical season sizes under
// XTimesDup/SomeoneIsTrip).
//
// For every kind the count equals IterPerms's yield count (Eq,
// SomeoneIsTrip, FixedTrip and NToN mirror the original's get_perms_amount,
// ported from sizeB-relative to sizeA-relative algebra). For XTimesDup it
// is sizeA^len(fixed) * (sizeA+unknown)! * sizeA*(sizeA+1)*...*
// (sizeA+unknown-1) / 2^unknown: Heap's algorithm over the sizeA+unknown
// unnamed ids, each of the unknown merges keeping on average half of the
// slots it may fold into, then an independent slot per fixed id. See
// DESIGN.md.
func (r Ruleset) PermsAmount(sizeA int) *big.Int {
	switch r.Kind {
	case Eq:
		return factorial(sizeA)
	case XTimesDup:
		num := new(big.Int).Mul(bigPow(sizeA, len(r.FixedIDs)), factorial(sizeA+r.Unknown))
		for m := sizeA; m < sizeA+r.Unknown; m++ {
			num.Mul(num, big.NewInt(int64(m)))
		}
		return num.Rsh(num, uint(r.Unknown))
	case SomeoneIsTrip:
		sizeB := sizeA + 2
		num := new(big.Int).Mul(big.NewInt(int64(sizeA)), factorial(sizeB))
		return num.Div(num, big.NewInt(6))
	case FixedTrip:
		sizeBMinus1 := sizeA + 1
		num := new(big.Int).Mul(big.NewInt(int64(sizeA)), factorial(sizeBMinus1))
		return num.Div(num, big.NewInt(2))
	case NToN:
		half := sizeA / 2
		num := new(big.Int).Div(factorial(sizeA), factorial(sizeA-half))
		den := new(big.Int).Lsh(big.NewInt(1), uint(half))
		return num.Div(num, den)
	}
	panic(fmt.Sprintf("ruleset: unknown kind %v", r.Kind))
}

func factorial(n int) *big.Int {
	out := big.NewInt(1)
	for i := 2; i <= n; i++ {
		out.Mul(out, big.NewInt(int64(i)))
	}
	return out
}

func bigPow(base, exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(int64(base)), big.NewInt(int64(exp)), nil)
}

// Step is the callback IterPerms invokes once per generated candidate. cand
// is a shared buffer valid only for the duration of the call; callers that
// retain it must Clone it. Returning an error aborts enumeration and the
// error propagates out of IterPerms.
type Step func(i int, cand matching.M) error

// IterPerms enumerates every candidate matching for a season of the given
// sizeA under this ruleset, calling step once per candidate in generation
// order. i is a 0-based sequence number.
func (r Ruleset) IterPerms(sizeA int, step Step) error {
	switch r.Kind {
	case Eq:
		return iterEq(sizeA, step)
	case XTimesDup:
		return iterXTimesDup(sizeA, r.Unknown, r.FixedIDs, step)
	case SomeoneIsTrip:
		return iterSomeoneIsTrip(sizeA, step)
	case FixedTrip:
		return iterFixedTrip(sizeA, r.TripID, step)
	case NToN:
		return iterNToN(sizeA, step)
	}
	return fmt.Errorf("ruleset: unknown kind %v", r.Kind)
}

// heapPermute runs Heap's algorithm over ids in place, invoking yield once
// per permutation. yield must not retain ids past the call. Returning false
// from yield stops enumeration early, mirroring bitset.Iter's convention.
func heapPermute(ids []int, yield func([]int) bool) bool {
	n := len(ids)
	c := make([]int, n)
	if !yield(ids) {
		return false
	}
	i := 0
	for i < n {
		if c[i] < i {
			if i%2 == 0 {
				ids[0], ids[i] = ids[i], ids[0]
			} else {
				ids[c[i]], ids[i] = ids[i], ids[c[i]]
			}
			if !yield(ids) {
				return false
			}
			c[i]++
			i = 0
		} else {
			c[i] = 0
			i++
		}
	}
	return true
}

// iterEq enumerates every bijection A -> B (B == A in size) via Heap's
// algorithm directly over the candidate's singleton slots.
func iterEq(sizeA int, step Step) error {
	ids := make([]int, sizeA)
	for i := range ids {
		ids[i] = i
	}
	i := 0
	var stepErr error
	heapPermute(ids, func(p []int) bool {
		if err := step(i, matching.FromSingletons(p)); err != nil {
			stepErr = err
			return false
		}
		i++
		return true
	})
	return stepErr
}
