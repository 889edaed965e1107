package rulesetdata

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atticus-sullivan/sim-ayto-go/internal/bitset"
	"github.com/atticus-sullivan/sim-ayto-go/internal/matching"
	"github.com/atticus-sullivan/sim-ayto-go/internal/ruleset"
)

func TestNewPicksNoopForEqAndNToN(t *testing.T) {
	require.IsType(t, &noopTracker{}, New(ruleset.NewEq()))
	require.IsType(t, &noopTracker{}, New(ruleset.NewNToN()))
}

func TestNewPicksDupTrackerForDuplicateRulesets(t *testing.T) {
	require.IsType(t, &dupTracker{}, New(ruleset.NewXTimesDup(1, nil)))
	require.IsType(t, &dupTracker{}, New(ruleset.NewSomeoneIsTrip()))
	require.IsType(t, &dupTracker{}, New(ruleset.NewFixedTrip(0)))
}

func TestDupTrackerIgnoresSingletonSlots(t *testing.T) {
	tr := New(ruleset.NewXTimesDup(1, nil))
	cand := matching.M{bitset.FromIdxs([]int{0})}
	tr.Observe(cand)
	require.Equal(t, 1, tr.Total())
	require.Empty(t, tr.DupFrequency())
}

func TestDupTrackerCountsNonSingletonMembers(t *testing.T) {
	tr := New(ruleset.NewXTimesDup(1, nil))
	tr.Observe(matching.M{bitset.FromIdxs([]int{0, 1})})
	tr.Observe(matching.M{bitset.FromIdxs([]int{0, 2})})
	freq := tr.DupFrequency()
	require.Equal(t, 2, freq[0])
	require.Equal(t, 1, freq[1])
	require.Equal(t, 1, freq[2])
	require.Equal(t, 2, tr.Total())
}

func TestProbabilityTableSortedByDescendingProbability(t *testing.T) {
	tr := New(ruleset.NewSomeoneIsTrip())
	tr.Observe(matching.M{bitset.FromIdxs([]int{0, 1, 2})})
	tr.Observe(matching.M{bitset.FromIdxs([]int{0, 1})})
	table := ProbabilityTable(tr)
	require.NotEmpty(t, table)
	for i := 1; i < len(table); i++ {
		require.True(t, table[i-1].Prob >= table[i].Prob)
	}
}

func TestProbabilityTableEmptyForZeroObservations(t *testing.T) {
	tr := New(ruleset.NewEq())
	require.Empty(t, ProbabilityTable(tr))
}
