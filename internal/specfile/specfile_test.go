package specfile

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func intPtr(i int) *int { return &i }

func TestConstraintNumString(t *testing.T) {
	require.Equal(t, "3", ConstraintNum{Num: 3}.String())
	require.Equal(t, "3.2", ConstraintNum{Num: 3, Den: 2}.String())
}

func TestConstraintNumFloat64(t *testing.T) {
	require.Equal(t, 3.0, ConstraintNum{Num: 3}.Float64())
	require.Greater(t, ConstraintNum{Num: 3, Den: 1}.Float64(), 3.0)
	require.Less(t, ConstraintNum{Num: 3, Den: 1}.Float64(), 4.0)
}

func TestConstraintNumLess(t *testing.T) {
	require.True(t, ConstraintNum{Num: 1}.Less(ConstraintNum{Num: 2}))
	require.False(t, ConstraintNum{Num: 2}.Less(ConstraintNum{Num: 1}))
	require.True(t, ConstraintNum{Num: 1, Den: 1}.Less(ConstraintNum{Num: 1, Den: 2}))
}

func TestValidateRejectsEmptySets(t *testing.T) {
	p := &ParsedSpec{SetB: []string{"b"}}
	require.Error(t, p.Validate())
}

func TestValidateRejectsUnknownType(t *testing.T) {
	p := &ParsedSpec{
		SetA: []string{"a"}, SetB: []string{"b"},
		Constraints: []RawConstraint{{Type: "Bogus", Map: map[string]string{"a": "b"}}},
	}
	require.Error(t, p.Validate())
}

func TestValidateRejectsEmptyMap(t *testing.T) {
	p := &ParsedSpec{
		SetA: []string{"a"}, SetB: []string{"b"},
		Constraints: []RawConstraint{{Type: "Box"}},
	}
	require.Error(t, p.Validate())
}

func TestValidateRejectsLightsWithoutCount(t *testing.T) {
	p := &ParsedSpec{
		SetA: []string{"a"}, SetB: []string{"b"},
		Constraints: []RawConstraint{{Type: "Night", Map: map[string]string{"a": "b"}, Check: "Lights"}},
	}
	require.Error(t, p.Validate())
}

func TestValidateAcceptsWellFormedConstraints(t *testing.T) {
	p := &ParsedSpec{
		SetA: []string{"a"}, SetB: []string{"b"},
		Constraints: []RawConstraint{
			{Type: "Box", Map: map[string]string{"a": "b"}, Check: "Sold"},
			{Type: "Night", Map: map[string]string{"a": "b"}, Check: "Lights", Lights: intPtr(1)},
		},
	}
	require.NoError(t, p.Validate())
}

func TestNameIndexAppliesRenames(t *testing.T) {
	idx, names := NameIndex([]string{"alice", "bob"}, map[string]string{"bob": "robert"})
	require.Equal(t, []string{"alice", "robert"}, names)
	require.Equal(t, 0, idx["alice"])
	require.Equal(t, 1, idx["robert"])
	_, ok := idx["bob"]
	require.False(t, ok)
}

func TestNameIndexWithoutRenames(t *testing.T) {
	idx, names := NameIndex([]string{"x", "y"}, nil)
	require.Equal(t, []string{"x", "y"}, names)
	require.Equal(t, 1, idx["y"])
}

func TestRawExcludeUnmarshalYAML(t *testing.T) {
	var e RawExclude
	require.NoError(t, yaml.Unmarshal([]byte(`[alice, [bob, chris]]`), &e))
	require.Equal(t, "alice", e.Slot)
	require.Equal(t, []string{"bob", "chris"}, e.Disallowed)
}

func TestRawExcludeUnmarshalYAMLWrongShapeErrors(t *testing.T) {
	var e RawExclude
	require.Error(t, yaml.Unmarshal([]byte(`alice`), &e))
}

func TestUnmarshalParsesFullSeasonSpec(t *testing.T) {
	doc := `
setA: [alice, bob]
setB: [dana, eve]
rule_set:
  kind: eq
constraints:
  - num: {num: 1}
    type: Box
    map: {alice: dana}
    check: Lights
    lights: 1
  - num: {num: 2}
    type: Night
    map: {alice: dana, bob: eve}
    check: Lights
    lights: 2
queryMatchings:
  - {alice: dana, bob: eve}
queryPair:
  - setA: [alice]
    setB: [dana, eve]
`
	var p ParsedSpec
	require.NoError(t, yaml.Unmarshal([]byte(doc), &p))
	require.NoError(t, p.Validate())
	require.Len(t, p.Constraints, 2)
	require.True(t, p.Constraints[0].IsBox())
	require.True(t, p.Constraints[1].IsNight())
	require.Len(t, p.QueryMatchings, 1)
	require.Len(t, p.QueryPair, 1)
}
