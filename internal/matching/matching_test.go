package matching

import (
	"testing"

	"github.com/atticus-sullivan/sim-ayto-go/internal/bitset"
	"github.com/stretchr/testify/require"
)

func TestCalculateLightsReflexive(t *testing.T) {
	m := FromSingletons([]int{0, 1, 2})
	require.Equal(t, 3, m.CalculateLights(m))
}

func TestCalculateLightsDisjoint(t *testing.T) {
	a := FromSingletons([]int{0, 1})
	b := FromSingletons([]int{1, 0})
	require.Equal(t, 0, a.CalculateLights(b))
}

func TestCalculateLightsPartial(t *testing.T) {
	a := FromSingletons([]int{0, 1, 2})
	b := FromSingletons([]int{0, 9, 2})
	require.Equal(t, 2, a.CalculateLights(b))
}

func TestContainsMask(t *testing.T) {
	m := FromPair(1, 5)
	require.True(t, m.ContainsMask(bitset.Empty.Insert(5)))
	require.False(t, m.ContainsMask(bitset.Empty.Insert(6)))
}

func TestAnd(t *testing.T) {
	a := M{bitset.FromIdxs([]int{0, 1}), bitset.FromIdxs([]int{2})}
	b := M{bitset.FromIdxs([]int{1, 2}), bitset.FromIdxs([]int{2, 3})}
	got := a.And(b)
	require.Equal(t, []int{1}, got[0].Idxs())
	require.Equal(t, []int{2}, got[1].Idxs())
}

func TestIterUnwrappedEmptySlot(t *testing.T) {
	m := New(2)
	m[0] = bitset.FromIdxs([]int{0})
	count := 0
	m.IterUnwrapped(func(M) bool { count++; return true })
	require.Equal(t, 0, count)
}

func TestIterUnwrappedCartesian(t *testing.T) {
	m := M{bitset.FromIdxs([]int{0, 1}), bitset.FromIdxs([]int{2, 3})}
	var got []M
	m.IterUnwrapped(func(c M) bool {
		got = append(got, c.Clone())
		return true
	})
	require.Len(t, got, 4)
	for _, c := range got {
		require.True(t, c[0].IsSingleton())
		require.True(t, c[1].IsSingleton())
	}
}

func TestIterPairsAscending(t *testing.T) {
	m := M{bitset.FromIdxs([]int{1, 0}), bitset.FromIdxs([]int{2})}
	var got []Pair
	m.IterPairs(func(p Pair) bool {
		got = append(got, p)
		return true
	})
	require.Equal(t, []Pair{{0, 0}, {0, 1}, {1, 2}}, got)
}
