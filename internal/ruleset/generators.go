package ruleset

import (
	"github.com/atticus-sullivan/sim-ayto-go/internal/bitset"
	"github.com/atticus-sullivan/sim-ayto-go/internal/matching"
)

// minBit returns the lowest-indexed member of a slot's bitset, used as the
// comparison key when canonically ordering which of two interchangeable
// duplicate members "came first" — the same role perm[idx][0] plays in the
// original engine's add_dup/add_trip comparisons.
func minBit(b bitset.Bitset) int {
	return b.TrailingZeros()
}

// iterXTimesDup enumerates every sizeA-slot candidate with `unknown`
// unlabeled duplicate B-members plus the named members in fixedIDs each
// also duplicated onto some slot.
//
// Generation: Heap's algorithm over the sizeA+unknown B-ids not in
// fixedIDs assigns one B-id per temporary slot. `unknown` successive merge
// steps each fold the current last temporary slot into an earlier one
// (requiring the earlier slot's minimum member be numerically smaller, to
// count each unordered duplicate-pair exactly once), shrinking the
// temporary array down to sizeA slots. Each fixed id is then folded into an
// independently chosen slot — fixed ids are named, not interchangeable, so
// no ordering constraint applies to them, and the exponent in PermsAmount's
// closed form reflects that independence directly.
func iterXTimesDup(sizeA, unknown int, fixedIDs []int, step Step) error {
	excluded := bitset.FromIdxs(fixedIDs)
	pool := make([]int, 0, sizeA+unknown)
	for b := 0; b < sizeA+unknown+len(fixedIDs); b++ {
		if !excluded.Contains(b) {
			pool = append(pool, b)
		}
	}

	i := 0
	var outerErr error
	heapPermute(pool, func(p []int) bool {
		base := make(matching.M, len(p))
		for idx, v := range p {
			base[idx] = bitset.Empty.Insert(v)
		}
		if err := mergeUnknownDups(base, unknown, func(reduced matching.M) error {
			return placeFixedDups(reduced, fixedIDs, func(final matching.M) error {
				err := step(i, final)
				i++
				return err
			})
		}); err != nil {
			outerErr = err
			return false
		}
		return true
	})
	return outerErr
}

// mergeUnknownDups performs `remaining` successive canonical merges of the
// working array's last slot into an earlier one, invoking leaf once the
// array has been shrunk by `remaining` slots in every valid way.
func mergeUnknownDups(work matching.M, remaining int, leaf func(matching.M) error) error {
	if remaining == 0 {
		return leaf(work)
	}
	last := len(work) - 1
	lastVal := minBit(work[last])
	for idx := 0; idx < last; idx++ {
		if minBit(work[idx]) >= lastVal {
			continue
		}
		merged := work[idx]
		work[idx] = merged.Union(work[last])
		shrunk := work[:last]
		if err := mergeUnknownDups(shrunk, remaining-1, leaf); err != nil {
			work[idx] = merged
			return err
		}
		work[idx] = merged
	}
	return nil
}

// placeFixedDups folds each fixed id, in order, into every slot of work in
// turn (independent choice, no ordering constraint) and invokes leaf at
// each full placement.
func placeFixedDups(work matching.M, fixedIDs []int, leaf func(matching.M) error) error {
	if len(fixedIDs) == 0 {
		return leaf(work)
	}
	id := fixedIDs[0]
	rest := fixedIDs[1:]
	for idx := range work {
		orig := work[idx]
		work[idx] = orig.Insert(id)
		if err := placeFixedDups(work, rest, leaf); err != nil {
			work[idx] = orig
			return err
		}
		work[idx] = orig
	}
	return nil
}

// iterSomeoneIsTrip enumerates every sizeA-slot candidate with exactly one
// (unlabeled) triple. Heap's algorithm runs over all sizeA+2 B-ids; only
// permutations whose last temporary slot holds a smaller id than the
// second-to-last are used, and those two slots are folded into an earlier
// one whose minimum member is smaller than both, canonicalizing the
// 3!-many orderings of the triple's members down to exactly one.
func iterSomeoneIsTrip(sizeA int, step Step) error {
	ids := make([]int, sizeA+2)
	for i := range ids {
		ids[i] = i
	}
	i := 0
	var outerErr error
	heapPermute(ids, func(p []int) bool {
		base := make(matching.M, len(p))
		for idx, v := range p {
			base[idx] = bitset.Empty.Insert(v)
		}
		L := len(base)
		second, last := minBit(base[L-2]), minBit(base[L-1])
		if last >= second {
			return true
		}
		for idx := 0; idx < L-2; idx++ {
			if minBit(base[idx]) >= last {
				continue
			}
			merged := base[idx].Union(base[L-2]).Union(base[L-1])
			cand := base[:L-2].Clone()
			cand[idx] = merged
			if err := step(i, cand); err != nil {
				outerErr = err
				return false
			}
			i++
		}
		return true
	})
	return outerErr
}

// iterFixedTrip enumerates every sizeA-slot candidate whose single triple
// slot contains tripID. Heap's algorithm runs over the sizeA+1 B-ids other
// than tripID; the last temporary slot is folded into an earlier one with
// smaller minimum member (canonicalizing the unlabeled pair), then tripID
// is folded into that same slot to complete the triple.
func iterFixedTrip(sizeA, tripID int, step Step) error {
	pool := make([]int, 0, sizeA+1)
	for b := 0; b < sizeA+2; b++ {
		if b != tripID {
			pool = append(pool, b)
		}
	}
	i := 0
	var outerErr error
	heapPermute(pool, func(p []int) bool {
		base := make(matching.M, len(p))
		for idx, v := range p {
			base[idx] = bitset.Empty.Insert(v)
		}
		L := len(base)
		lastVal := minBit(base[L-1])
		for idx := 0; idx < L-1; idx++ {
			if minBit(base[idx]) >= lastVal {
				continue
			}
			merged := base[idx].Union(base[L-1]).Insert(tripID)
			cand := base[:L-1].Clone()
			cand[idx] = merged
			if err := step(i, cand); err != nil {
				outerErr = err
				return false
			}
			i++
		}
		return true
	})
	return outerErr
}

// iterNToN enumerates every self-matching candidate on sizeA members,
// restricted to the upper triangle: for each unordered pair {k, v} with k >
// v, slot k (never slot v) holds the singleton {v}. Every other slot stays
// empty. Generation picks which half of the indices act as keys (a
// combination), then permutes the complementary half as values, keeping
// only arrangements where every (key, value) pair satisfies key > value.
func iterNToN(sizeA int, step Step) error {
	half := sizeA / 2
	all := make([]int, sizeA)
	for i := range all {
		all[i] = i
	}
	i := 0
	var outerErr error
	err := forEachCombination(all, half, func(keys []int) bool {
		complement := make([]int, 0, sizeA-half)
		keySet := bitset.FromIdxs(keys)
		for _, v := range all {
			if !keySet.Contains(v) {
				complement = append(complement, v)
			}
		}
		cont := true
		heapPermute(complement, func(vals []int) bool {
			for idx, k := range keys {
				if k <= vals[idx] {
					return true // reject this arrangement, keep scanning
				}
			}
			cand := matching.New(sizeA)
			for idx, k := range keys {
				cand[k] = bitset.Empty.Insert(vals[idx])
			}
			if err := step(i, cand); err != nil {
				outerErr = err
				cont = false
				return false
			}
			i++
			return true
		})
		return cont
	})
	if err != nil {
		return err
	}
	return outerErr
}

// forEachCombination invokes yield once per k-element subset of items, in
// increasing-index order, via straightforward recursive backtracking.
// Returning false from yield stops enumeration early.
func forEachCombination(items []int, k int, yield func([]int) bool) error {
	chosen := make([]int, 0, k)
	var rec func(start int) bool
	rec = func(start int) bool {
		if len(chosen) == k {
			return yield(chosen)
		}
		remaining := k - len(chosen)
		for idx := start; idx <= len(items)-remaining; idx++ {
			chosen = append(chosen, items[idx])
			if !rec(idx + 1) {
				chosen = chosen[:len(chosen)-1]
				return false
			}
			chosen = chosen[:len(chosen)-1]
		}
		return true
	}
	rec(0)
	return nil
}
