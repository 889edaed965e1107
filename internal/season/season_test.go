package season

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atticus-sullivan/sim-ayto-go/internal/constraint"
	"github.com/atticus-sullivan/sim-ayto-go/internal/ruleset"
	"github.com/atticus-sullivan/sim-ayto-go/internal/specfile"
)

func intPtr(i int) *int { return &i }

func tinySeason(t *testing.T) *Season {
	t.Helper()
	p := &specfile.ParsedSpec{
		SetA:    []string{"alice", "bob", "chris"},
		SetB:    []string{"dana", "eve", "finn"},
		RuleSet: specfile.RulesetSpec{Kind: "eq"},
		Constraints: []specfile.RawConstraint{
			{
				Num: specfile.ConstraintNum{Num: 1}, Type: "Box",
				Map: map[string]string{"alice": "dana"}, Check: "Lights", Lights: intPtr(1),
				BuildTree: true,
			},
			{
				Num: specfile.ConstraintNum{Num: 2}, Type: "Night",
				Map: map[string]string{"alice": "dana", "bob": "eve", "chris": "finn"},
				Check: "Lights", Lights: intPtr(3),
				BuildTree: true,
			},
		},
	}
	s, err := FromParsed(p)
	require.NoError(t, err)
	return s
}

func TestFromParsedResolvesNamesAndRuleset(t *testing.T) {
	s := tinySeason(t)
	require.Equal(t, 3, s.SizeA())
	require.Equal(t, ruleset.Eq, s.Ruleset.Kind)
	require.Len(t, s.Constraints, 2)
}

func TestFromParsedUnknownRulesetKindErrors(t *testing.T) {
	p := &specfile.ParsedSpec{
		SetA: []string{"a"}, SetB: []string{"b"},
		RuleSet: specfile.RulesetSpec{Kind: "bogus"},
	}
	_, err := FromParsed(p)
	require.Error(t, err)
}

func TestEvaluateTracksSurvivorsAcrossSteps(t *testing.T) {
	s := tinySeason(t)
	data, err := s.Evaluate(nil)
	require.NoError(t, err)
	require.Len(t, data.Steps, 2)

	// After pinning alice->dana, 2 permutations of the remaining pair survive.
	require.EqualValues(t, 2, data.Steps[0].Survivors)
	require.Equal(t, constraint.Box, data.Steps[0].Kind)

	// The matching-night guess is the unique solution: exactly one survivor.
	require.EqualValues(t, 1, data.Steps[1].Survivors)
	require.Equal(t, constraint.Night, data.Steps[1].Kind)
	require.NotNil(t, data.Steps[1].LightsTotal)
	require.Equal(t, 3, *data.Steps[1].LightsTotal)
}

func TestEvaluateComputesPositiveInfoBits(t *testing.T) {
	s := tinySeason(t)
	data, err := s.Evaluate(nil)
	require.NoError(t, err)
	for _, step := range data.Steps {
		require.GreaterOrEqual(t, step.InfoBits, 0.0)
	}
	// 6 -> 2 survivors is exactly log2(3) bits.
	require.InDelta(t, math.Log2(3), data.Steps[0].InfoBits, 1e-9)
}

func TestEvaluateSetsSolvableOnConstraints(t *testing.T) {
	s := tinySeason(t)
	_, err := s.Evaluate(nil)
	require.NoError(t, err)
	require.NotNil(t, s.Constraints[0].Solvable)
	require.False(t, *s.Constraints[0].Solvable)
	require.NotNil(t, s.Constraints[1].Solvable)
	require.True(t, *s.Constraints[1].Solvable)
}

func TestEvaluateFoldsHiddenConstraintIntoNextStep(t *testing.T) {
	p := &specfile.ParsedSpec{
		SetA:    []string{"alice", "bob", "chris"},
		SetB:    []string{"dana", "eve", "finn"},
		RuleSet: specfile.RulesetSpec{Kind: "eq"},
		Constraints: []specfile.RawConstraint{
			{
				Num: specfile.ConstraintNum{Num: 1}, Type: "Box",
				Map: map[string]string{"alice": "eve"}, Check: "Lights", Lights: intPtr(0),
				Hidden: true,
			},
			{
				Num: specfile.ConstraintNum{Num: 2}, Type: "Box",
				Map: map[string]string{"alice": "dana"}, Check: "Lights", Lights: intPtr(1),
			},
		},
	}
	s, err := FromParsed(p)
	require.NoError(t, err)
	data, err := s.Evaluate(nil)
	require.NoError(t, err)

	// The hidden constraint contributes no step of its own.
	require.Len(t, data.Steps, 1)
	require.Equal(t, specfile.ConstraintNum{Num: 2}, data.Steps[0].Num)
}

func TestMaterializeReturnsOnlySurvivingCandidates(t *testing.T) {
	s := tinySeason(t)
	candidates, err := s.Materialize("")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	for _, slot := range candidates[0] {
		require.Equal(t, 1, slot.Count())
	}
}

func TestFinalErrorsOnEmptyEvalData(t *testing.T) {
	_, err := EvalData{}.Final()
	require.Error(t, err)
}

func TestFinalReturnsLastStep(t *testing.T) {
	s := tinySeason(t)
	data, err := s.Evaluate(nil)
	require.NoError(t, err)
	last, err := data.Final()
	require.NoError(t, err)
	require.Equal(t, data.Steps[len(data.Steps)-1], last)
}
