// Package constraint implements a single observed event's lifecycle:
// Parsed (raw YAML form) -> Validated (names resolved, shape-checked) ->
// Processed (scored against every enumerated candidate) -> Evaluated
// (folded into a Rem) -> Serialized (EvalEvent).
//
// The per-candidate check axis (Eq/Lights(n)/Nothing/Sold) is orthogonal
// to the presentational kind axis (Night/Box) — spec.md §3's Constraint
// entity keeps the two separate, and so does this type: Kind controls how
// a constraint renders (an MN row vs an MB row), Check controls how
// Process decides whether a candidate survives it.
package constraint

import (
	"math"

	"github.com/atticus-sullivan/sim-ayto-go/internal/ayerr"
	"github.com/atticus-sullivan/sim-ayto-go/internal/bitset"
	"github.com/atticus-sullivan/sim-ayto-go/internal/matching"
	"github.com/atticus-sullivan/sim-ayto-go/internal/rulesetdata"
	"github.com/atticus-sullivan/sim-ayto-go/internal/specfile"
)

// Kind discriminates how a constraint renders: a full-night matching
// reveal, or a single pair verification.
type Kind int

const (
	Box Kind = iota
	Night
)

// Check discriminates the per-candidate validation algorithm Process
// runs, independent of Kind.
type Check int

const (
	// Eq asserts that every B value named in Map appears somewhere in the
	// candidate, regardless of slot — the box-assertion idiom "this pair
	// is a match" before the pair's exact slot is pinned down.
	Eq Check = iota
	// Lights asserts the candidate's overlap with Map equals LightsN (or,
	// if Exclude is set, that the excluded slot avoids the disallowed
	// values instead).
	Lights
	// Nothing is a pure recording no-op: always fits, never eliminates.
	Nothing
	// Sold is a pure recording no-op, same as Nothing, kept as a distinct
	// tag so a rendered event can still say "sold" rather than "nothing".
	Sold
)

// Exclude expresses "candidate must not place any member of Disallowed at
// Slot" — the mechanism that turns a positive box assertion into a real
// elimination under rulesets where a slot can otherwise still hold other
// values alongside the asserted one.
type Exclude struct {
	Slot       int
	Disallowed bitset.Bitset
}

// Constraint is one fully resolved observed event.
type Constraint struct {
	Num     specfile.ConstraintNum
	Kind    Kind
	Map     matching.M
	Check   Check
	LightsN int
	Exclude *Exclude

	Hidden          bool
	ResultUnknown   bool
	KnownLights     int
	BuildTree       bool
	HideRulesetData bool

	Comment string
	Offer   string

	// Derived fields, populated by Process/ApplyToRem/Merge.
	Eliminated    int64
	EliminatedTab [][]int64
	LeftAfter     int64
	Information   float64
	Histogram     map[int]int64
	LeftPoss      []matching.M
	RulesetData   rulesetdata.Tracker

	Solvable *bool
}

// Init allocates the |A|x|B| eliminated_tab matrix a constraint needs
// before it can be fed any candidates; called once during validation
// (spec.md §4.4 step 5: "Initialize eliminated_tab to a |A|x|B| zero
// matrix; eliminated = 0").
func (c *Constraint) Init(sizeA, sizeB int) {
	c.EliminatedTab = make([][]int64, sizeA)
	for i := range c.EliminatedTab {
		c.EliminatedTab[i] = make([]int64, sizeB)
	}
}

// Process decides whether candidate satisfies the constraint, per
// spec.md §4.4's per-check algorithm, and accumulates elimination
// bookkeeping (or retention hooks) accordingly.
func (c *Constraint) Process(candidate matching.M) bool {
	fits := c.fits(candidate)
	if c.ResultUnknown {
		fits = true
	}

	if fits {
		if c.BuildTree && !c.Hidden {
			c.LeftPoss = append(c.LeftPoss, candidate.Clone())
		}
		if !c.HideRulesetData && !c.Hidden && c.RulesetData != nil {
			c.RulesetData.Observe(candidate)
		}
	} else {
		c.eliminate(candidate)
	}
	return fits
}

func (c *Constraint) fits(candidate matching.M) bool {
	switch c.Check {
	case Eq:
		return candidate.ContainsMask(c.Map.UnionAll())
	case Nothing, Sold:
		return true
	case Lights:
		l := c.Map.CalculateLights(candidate)
		if c.Histogram == nil {
			c.Histogram = make(map[int]int64)
		}
		c.Histogram[l]++
		if c.Exclude != nil {
			return !candidate[c.Exclude.Slot].Intersects(c.Exclude.Disallowed)
		}
		return l == c.LightsN
	}
	return false
}

// eliminate records candidate as rejected: every (a, b) pair it populates
// increments eliminated_tab[a][b], and the scalar eliminated counter goes
// up by exactly one (spec.md §8 property 2).
func (c *Constraint) eliminate(candidate matching.M) {
	c.Eliminated++
	for a, slot := range candidate {
		slot.Iter(func(b int) bool {
			c.EliminatedTab[a][b]++
			return true
		})
	}
}

// ApplyToRem folds this constraint's accumulated elimination bookkeeping
// into rem, returning the updated Rem. It also populates LeftAfter and
// Information as a side effect, per spec.md §4.4's apply_to_rem.
func (c *Constraint) ApplyToRem(rem matching.Rem) (matching.Rem, error) {
	if len(c.EliminatedTab) != len(rem.Counts) {
		return matching.Rem{}, ayerr.Invariantf("constraint",
			"eliminated_tab has %d rows, rem.counts has %d", len(c.EliminatedTab), len(rem.Counts))
	}
	out := rem.Clone()
	out.Total -= c.Eliminated
	for a := range out.Counts {
		if len(c.EliminatedTab[a]) != len(out.Counts[a]) {
			return matching.Rem{}, ayerr.Invariantf("constraint",
				"eliminated_tab[%d] has %d cols, rem.counts[%d] has %d", a, len(c.EliminatedTab[a]), a, len(out.Counts[a]))
		}
		for b := range out.Counts[a] {
			out.Counts[a][b] -= c.EliminatedTab[a][b]
		}
	}
	c.LeftAfter = out.Total
	c.Information = informationBits(c.Eliminated, out.Total)
	return out, nil
}

// informationBits implements spec.md §9's tri-state sentinel: 0 when
// nothing was eliminated, +Inf when everything was (ratio 1, rendered as
// the "undefined" information sentinel the source treats as ∞),
// otherwise the standard -log2(1-ratio).
func informationBits(eliminated, newTotal int64) float64 {
	denom := newTotal + eliminated
	if denom <= 0 || eliminated <= 0 {
		return 0
	}
	ratio := float64(eliminated) / float64(denom)
	if ratio >= 1 {
		return math.Inf(1)
	}
	return -math.Log2(1 - ratio)
}

// Merge folds other's elimination bookkeeping into c, for the hidden-
// constraint carry-forward spec.md §4.4 calls merge-down: a hidden
// constraint's stats accumulate into the next non-hidden one instead of
// producing their own row. LeftAfter/Information are reset since they will
// be recomputed by the next ApplyToRem.
func (c *Constraint) Merge(other *Constraint) error {
	if len(c.EliminatedTab) != len(other.EliminatedTab) {
		return ayerr.Invariantf("constraint", "merge: eliminated_tab dimension mismatch")
	}
	c.Eliminated += other.Eliminated
	for a := range c.EliminatedTab {
		if len(c.EliminatedTab[a]) != len(other.EliminatedTab[a]) {
			return ayerr.Invariantf("constraint", "merge: eliminated_tab[%d] dimension mismatch", a)
		}
		for b := range c.EliminatedTab[a] {
			c.EliminatedTab[a][b] += other.EliminatedTab[a][b]
		}
	}
	c.LeftAfter = 0
	c.Information = 0
	return nil
}

// WasSolvableBefore implements spec.md §4.4's solvability check over a
// constraint's retained LeftPoss: fold every retained survivor into a
// running intersection and report true only if no slot of it ends up
// empty. A candidate whose slot count differs from the first one's is an
// Invariant error; a candidate that shares nothing with the running
// intersection in some slot yields false. Returns nil if LeftPoss was
// never populated (BuildTree was off, or the constraint was hidden).
func (c *Constraint) WasSolvableBefore() (*bool, error) {
	if len(c.LeftPoss) == 0 {
		return nil, nil
	}
	s := c.LeftPoss[0].Clone()
	for _, cand := range c.LeftPoss[1:] {
		if len(cand) != len(s) {
			return nil, ayerr.Invariantf("constraint", "was_solvable_before: candidate length mismatch")
		}
		if cand.CalculateLights(s) != len(s) {
			ok := false
			return &ok, nil
		}
		s = s.And(cand)
	}
	ok := true
	for _, slot := range s {
		if slot.IsEmpty() {
			ok = false
			break
		}
	}
	return &ok, nil
}

// Resolve builds a Constraint from a specfile.RawConstraint, resolving
// names against the season's A/B index maps and running the validation
// steps spec.md §4.4 lists: name resolution, cardinality checks, optional
// auto-exclude, eliminated_tab initialization.
func Resolve(raw specfile.RawConstraint, idxA, idxB map[string]int, sizeA, sizeB int) (*Constraint, error) {
	ctx := "constraint " + raw.Num.String()

	kind := Box
	if raw.IsNight() {
		kind = Night
	}

	check, lightsN, err := resolveCheck(raw, ctx)
	if err != nil {
		return nil, err
	}

	m := matching.New(sizeA)
	for aName, bName := range raw.Map {
		a, ok := idxA[aName]
		if !ok {
			return nil, ayerr.Specf(ctx, "unknown A name %q", aName)
		}
		b, ok := idxB[bName]
		if !ok {
			return nil, ayerr.Specf(ctx, "unknown B name %q", bName)
		}
		if a >= sizeA {
			return nil, ayerr.Specf(ctx, "A index %d out of range", a)
		}
		m[a] = m[a].Insert(b)
	}

	if kind == Night {
		if len(raw.Map) != sizeA {
			return nil, ayerr.Specf(ctx, "night constraint must map exactly %d A members, got %d", sizeA, len(raw.Map))
		}
		if raw.Exclude != nil {
			return nil, ayerr.Specf(ctx, "night constraint may not carry an exclude")
		}
	} else if check == Lights && len(raw.Map) != 1 {
		return nil, ayerr.Specf(ctx, "box constraint with check=Lights must map exactly 1 A member, got %d", len(raw.Map))
	}

	c := &Constraint{
		Num:             raw.Num,
		Kind:            kind,
		Map:             m,
		Check:           check,
		LightsN:         lightsN,
		Hidden:          raw.Hidden,
		ResultUnknown:   raw.ResultUnknown,
		BuildTree:       raw.BuildTree,
		HideRulesetData: raw.HideRulesetData,
		Comment:         raw.Comment,
		Offer:           raw.Offer,
	}
	c.Init(sizeA, sizeB)

	if raw.Exclude != nil {
		slot, ok := idxA[raw.Exclude.Slot]
		if !ok {
			return nil, ayerr.Specf(ctx, "unknown exclude slot name %q", raw.Exclude.Slot)
		}
		var disallowed bitset.Bitset
		for _, name := range raw.Exclude.Disallowed {
			b, ok := idxB[name]
			if !ok {
				return nil, ayerr.Specf(ctx, "unknown exclude disallowed name %q", name)
			}
			disallowed = disallowed.Insert(b)
		}
		c.Exclude = &Exclude{Slot: slot, Disallowed: disallowed}
	} else if !raw.NoExclude && kind == Box && check == Lights && lightsN == 1 {
		// spec.md §4.4 step 3: a bare "this pair is a match" assertion
		// implies the A slot cannot match anything else.
		a, _ := onlyPopulatedSlot(m)
		b, _ := m[a].SingleIdx()
		disallowed := bitset.FromIdxs(allBExcept(sizeB, b))
		c.Exclude = &Exclude{Slot: a, Disallowed: disallowed}
	}

	return c, nil
}

func onlyPopulatedSlot(m matching.M) (int, bool) {
	for i, slot := range m {
		if !slot.IsEmpty() {
			return i, true
		}
	}
	return 0, false
}

func allBExcept(sizeB, exclude int) []int {
	out := make([]int, 0, sizeB-1)
	for i := 0; i < sizeB; i++ {
		if i != exclude {
			out = append(out, i)
		}
	}
	return out
}

func resolveCheck(raw specfile.RawConstraint, ctx string) (Check, int, error) {
	switch raw.Check {
	case "Eq", "":
		return Eq, 0, nil
	case "Nothing":
		return Nothing, 0, nil
	case "Sold":
		return Sold, 0, nil
	case "Lights":
		if raw.Lights == nil {
			return 0, 0, ayerr.Specf(ctx, "check=Lights requires a lights count")
		}
		return Lights, *raw.Lights, nil
	}
	return 0, 0, ayerr.Specf(ctx, "unknown check %q", raw.Check)
}
