package solve

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atticus-sullivan/sim-ayto-go/internal/matching"
)

func TestOptimalMbChoosesPairClosestToHalf(t *testing.T) {
	rem := matching.Rem{
		Counts: [][]int64{
			{1, 9},
			{6, 4},
		},
		Total: 10,
	}
	a, b := OptimalMb{}.ChooseBox(rem, rand.New(rand.NewPCG(1, 1)))
	require.Equal(t, 1, a)
	require.Equal(t, 0, b)
}

func TestOptimalMbSkipsZeroCounts(t *testing.T) {
	rem := matching.Rem{
		Counts: [][]int64{
			{0, 0},
			{0, 5},
		},
		Total: 5,
	}
	a, b := OptimalMb{}.ChooseBox(rem, rand.New(rand.NewPCG(1, 1)))
	require.Equal(t, 1, a)
	require.Equal(t, 1, b)
}

// TestEntropyLeftMnTieBreaksToFirstEncountered mirrors spec.md §8 scenario
// 6: two candidates producing identical (and here, maximal) lights-count
// histograms over possibilities must resolve to the first one (m1). m1 and
// m2 are fully disjoint, so each produces the histogram {full-match: 1,
// zero-match: 1} against {m1, m2} — the maximum-entropy split for a
// two-element set.
func TestEntropyLeftMnTieBreaksToFirstEncountered(t *testing.T) {
	m1 := matching.FromSingletons([]int{0, 1})
	m2 := matching.FromSingletons([]int{1, 0})
	possibilities := []matching.M{m1, m2}

	got := EntropyLeftMn{}.ChooseNight(possibilities, rand.New(rand.NewPCG(1, 1)))
	require.Equal(t, m1, got)
}

func TestEntropyLeftMnEmptyPossibilitiesReturnsNil(t *testing.T) {
	got := EntropyLeftMn{}.ChooseNight(nil, rand.New(rand.NewPCG(1, 1)))
	require.Nil(t, got)
}

func TestShannonEntropyUniformIsMaximal(t *testing.T) {
	uniform := map[int]int{0: 1, 1: 1, 2: 1, 3: 1}
	skewed := map[int]int{0: 4}
	require.Greater(t, shannonEntropy(uniform, 4), shannonEntropy(skewed, 4))
}

func TestShannonEntropyZeroTotalIsZero(t *testing.T) {
	require.Equal(t, 0.0, shannonEntropy(map[int]int{}, 0))
}

func TestDeterministicPicksFirstAvailableAndFirstPossibility(t *testing.T) {
	rem := matching.Rem{Counts: [][]int64{{0, 3}, {2, 0}}, Total: 5}
	a, b := Deterministic{}.ChooseBox(rem, rand.New(rand.NewPCG(1, 1)))
	require.Equal(t, 0, a)
	require.Equal(t, 1, b)

	m1 := matching.FromSingletons([]int{0, 1})
	m2 := matching.FromSingletons([]int{1, 0})
	require.Equal(t, m1, Deterministic{}.ChooseNight([]matching.M{m1, m2}, rand.New(rand.NewPCG(1, 1))))
}

func TestByNameResolvesKnownStrategies(t *testing.T) {
	for _, name := range []string{"optimal_mb", "entropy_left_mn", "deterministic"} {
		s, ok := ByName(name)
		require.True(t, ok, name)
		require.Equal(t, name, s.Name())
	}
	_, ok := ByName("nonexistent")
	require.False(t, ok)
}
