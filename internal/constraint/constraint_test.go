package constraint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atticus-sullivan/sim-ayto-go/internal/bitset"
	"github.com/atticus-sullivan/sim-ayto-go/internal/matching"
	"github.com/atticus-sullivan/sim-ayto-go/internal/specfile"
)

func intPtr(i int) *int { return &i }

func idxMaps() (map[string]int, map[string]int) {
	return map[string]int{"alice": 0, "bob": 1, "chris": 2},
		map[string]int{"dana": 0, "eve": 1, "finn": 2}
}

func TestResolveBoxLightsAutoExcludes(t *testing.T) {
	idxA, idxB := idxMaps()
	raw := specfile.RawConstraint{
		Num:   specfile.ConstraintNum{Num: 1},
		Type:  "Box",
		Map:   map[string]string{"alice": "dana"},
		Check: "Lights",
		Lights: intPtr(1),
	}
	c, err := Resolve(raw, idxA, idxB, 3, 3)
	require.NoError(t, err)
	require.Equal(t, Box, c.Kind)
	require.Equal(t, Lights, c.Check)
	require.NotNil(t, c.Exclude)
	require.Equal(t, 0, c.Exclude.Slot)
	require.True(t, c.Exclude.Disallowed.Contains(1))
	require.True(t, c.Exclude.Disallowed.Contains(2))
	require.False(t, c.Exclude.Disallowed.Contains(0))
}

func TestResolveBoxNoExcludeSuppressesAutoExclude(t *testing.T) {
	idxA, idxB := idxMaps()
	raw := specfile.RawConstraint{
		Type: "Box", Map: map[string]string{"alice": "dana"},
		Check: "Lights", Lights: intPtr(1), NoExclude: true,
	}
	c, err := Resolve(raw, idxA, idxB, 3, 3)
	require.NoError(t, err)
	require.Nil(t, c.Exclude)
}

func TestResolveBoxUnknownNameErrors(t *testing.T) {
	idxA, idxB := idxMaps()
	raw := specfile.RawConstraint{Type: "Box", Map: map[string]string{"nobody": "dana"}, Check: "Eq"}
	_, err := Resolve(raw, idxA, idxB, 3, 3)
	require.Error(t, err)
}

func TestResolveNight(t *testing.T) {
	idxA, idxB := idxMaps()
	raw := specfile.RawConstraint{
		Num:   specfile.ConstraintNum{Num: 2},
		Type:  "Night",
		Map:   map[string]string{"alice": "dana", "bob": "eve", "chris": "finn"},
		Check: "Lights",
		Lights: intPtr(1),
	}
	c, err := Resolve(raw, idxA, idxB, 3, 3)
	require.NoError(t, err)
	require.Equal(t, Night, c.Kind)
	require.Equal(t, 1, c.LightsN)
	require.True(t, c.Map[0].Contains(0))
	require.True(t, c.Map[1].Contains(1))
}

func TestResolveNightWrongCardinalityErrors(t *testing.T) {
	idxA, idxB := idxMaps()
	raw := specfile.RawConstraint{
		Type: "Night", Map: map[string]string{"alice": "dana"}, Check: "Lights", Lights: intPtr(1),
	}
	_, err := Resolve(raw, idxA, idxB, 3, 3)
	require.Error(t, err)
}

func TestResolveCarriesPresentationFields(t *testing.T) {
	idxA, idxB := idxMaps()
	raw := specfile.RawConstraint{
		Type: "Box", Map: map[string]string{"alice": "dana"}, Check: "Sold",
		Comment: "a hunch", Offer: "truth booth", Hidden: true,
	}
	c, err := Resolve(raw, idxA, idxB, 3, 3)
	require.NoError(t, err)
	require.Equal(t, "a hunch", c.Comment)
	require.Equal(t, "truth booth", c.Offer)
	require.True(t, c.Hidden)
}

func newSlot(sizeA, sizeB int) *Constraint {
	c := &Constraint{Map: matching.New(sizeA)}
	c.Init(sizeA, sizeB)
	return c
}

func TestProcessEq(t *testing.T) {
	c := newSlot(2, 2)
	c.Check = Eq
	c.Map[0] = c.Map[0].Insert(1)

	fits := matching.M{bitset.Empty, bitset.Empty}
	fits[0] = fits[0].Insert(0)
	fits[1] = fits[1].Insert(1)
	require.True(t, c.Process(fits))

	noFit := matching.M{bitset.Empty, bitset.Empty}
	noFit[0] = noFit[0].Insert(1)
	noFit[1] = noFit[1].Insert(0)
	// the asserted b (1) appears at slot 0 here too, so Eq still fits —
	// Eq never checks slot position, only membership anywhere.
	require.True(t, c.Process(noFit))
}

func TestProcessLightsAndHistogram(t *testing.T) {
	c := newSlot(2, 10)
	c.Check = Lights
	c.LightsN = 1
	c.Map[0] = c.Map[0].Insert(1)

	same := matching.FromSingletons([]int{1, 9})
	require.True(t, c.Process(same))

	diff := matching.FromSingletons([]int{0, 9})
	require.False(t, c.Process(diff))
	require.Equal(t, int64(1), c.Eliminated)
	require.Equal(t, int64(1), c.Histogram[0])
	require.Equal(t, int64(1), c.Histogram[1])
}

func TestProcessNothingAndSoldAlwaysFit(t *testing.T) {
	for _, check := range []Check{Nothing, Sold} {
		c := newSlot(1, 1)
		c.Check = check
		require.True(t, c.Process(matching.FromSingletons([]int{0})))
		require.Equal(t, int64(0), c.Eliminated)
	}
}

func TestProcessResultUnknownForcesTrue(t *testing.T) {
	c := newSlot(1, 2)
	c.Check = Lights
	c.LightsN = 0
	c.ResultUnknown = true
	c.Map[0] = c.Map[0].Insert(0)

	require.True(t, c.Process(matching.FromSingletons([]int{0})))
	require.Equal(t, int64(0), c.Eliminated)
}

// TestEliminatedTabScenario2 reproduces spec.md §8 scenario 2's setup
// (|A|=|B|=3, ruleset Eq, single Box a->x with check=Lights(1)) by driving
// Process over every candidate directly, checking the derived bookkeeping
// against the counts an exhaustive enumeration of 3! permutations actually
// produces: 2 survivors (a->x), 4 eliminated, split 2-2 between a->y and
// a->z.
func TestEliminatedTabScenario2(t *testing.T) {
	c := newSlot(3, 3)
	c.Check = Lights
	c.LightsN = 1
	c.Map[0] = c.Map[0].Insert(0)
	c.Exclude = &Exclude{Slot: 0, Disallowed: bitset.FromIdxs([]int{1, 2})}

	perms := [][]int{
		{0, 1, 2}, {0, 2, 1}, // a->x survives
		{1, 0, 2}, {1, 2, 0}, // a->y eliminated
		{2, 0, 1}, {2, 1, 0}, // a->z eliminated
	}
	survivors := 0
	for _, p := range perms {
		if c.Process(matching.FromSingletons(p)) {
			survivors++
		}
	}
	require.Equal(t, 2, survivors)
	require.Equal(t, int64(4), c.Eliminated)
	require.Equal(t, []int64{0, 2, 2}, c.EliminatedTab[0])
}

func TestApplyToRem(t *testing.T) {
	c := newSlot(1, 2)
	c.EliminatedTab[0][1] = 3
	c.Eliminated = 3

	rem := matching.NewRem(1, 2)
	rem.Total = 6
	rem.Counts[0][0] = 3
	rem.Counts[0][1] = 3

	out, err := c.ApplyToRem(rem)
	require.NoError(t, err)
	require.EqualValues(t, 3, out.Total)
	require.Equal(t, []int64{3, 0}, out.Counts[0])
	require.EqualValues(t, 3, c.LeftAfter)
	require.Greater(t, c.Information, 0.0)
}

func TestApplyToRemDimensionMismatchErrors(t *testing.T) {
	c := newSlot(2, 2)
	rem := matching.NewRem(1, 2)
	_, err := c.ApplyToRem(rem)
	require.Error(t, err)
}

func TestInformationBitsTriState(t *testing.T) {
	require.Equal(t, 0.0, informationBits(0, 6))
	require.Greater(t, informationBits(5, 1), 0.0)
	require.True(t, math.IsInf(informationBits(6, 0), 1))
}

func TestMergeSumsEliminatedTab(t *testing.T) {
	a := newSlot(1, 2)
	a.EliminatedTab[0][0] = 1
	a.Eliminated = 1

	b := newSlot(1, 2)
	b.EliminatedTab[0][0] = 2
	b.Eliminated = 2

	require.NoError(t, a.Merge(b))
	require.Equal(t, int64(3), a.Eliminated)
	require.Equal(t, []int64{3, 0}, a.EliminatedTab[0])
}

func TestMergeDimensionMismatchErrors(t *testing.T) {
	a := newSlot(1, 2)
	b := newSlot(2, 2)
	require.Error(t, a.Merge(b))
}

func TestWasSolvableBeforeNilWithoutLeftPoss(t *testing.T) {
	c := newSlot(1, 1)
	ok, err := c.WasSolvableBefore()
	require.NoError(t, err)
	require.Nil(t, ok)
}

func TestWasSolvableBeforeTrueWhenConsistent(t *testing.T) {
	c := newSlot(1, 2)
	c.LeftPoss = []matching.M{matching.FromSingletons([]int{0}), matching.FromSingletons([]int{0})}
	ok, err := c.WasSolvableBefore()
	require.NoError(t, err)
	require.NotNil(t, ok)
	require.True(t, *ok)
}
