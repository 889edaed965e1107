// Package specfile parses a season's YAML description into the types the
// rest of the engine operates on: the two named sets, the ruleset variant,
// and the sequence of constraints observed so far (box assertions and
// matching-night results).
//
// Grounded on the teacher's config-loading idiom (sdk/solver/config.go's
// Validate() error pattern) using gopkg.in/yaml.v3, the pack's sole YAML
// dependency (already present, indirectly, in the teacher's module graph;
// direct in ehrlich-b-wingthing and smilemakc-mbflow).
package specfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/atticus-sullivan/sim-ayto-go/internal/ayerr"
)

// ConstraintNum is a rational sequence number (e.g. "episode 3, box 2"
// renders as Num=3, Den=2 in the original's fractional numbering scheme):
// it orders constraints within and across episodes without forcing a
// season's box count per episode to be uniform.
type ConstraintNum struct {
	Num int `yaml:"num"`
	Den int `yaml:"den,omitempty"`
}

func (c ConstraintNum) Float64() float64 {
	if c.Den == 0 {
		return float64(c.Num)
	}
	return float64(c.Num) + 1.0/float64(c.Den+1)
}

// Less orders two sequence numbers the way episode/box numbering reads:
// lower Num first, and within the same Num, lower Den first.
func (c ConstraintNum) Less(other ConstraintNum) bool {
	if c.Num != other.Num {
		return c.Num < other.Num
	}
	return c.Den < other.Den
}

func (c ConstraintNum) String() string {
	if c.Den == 0 {
		return fmt.Sprintf("%d", c.Num)
	}
	return fmt.Sprintf("%d.%d", c.Num, c.Den)
}

// RawExclude is the YAML tuple form `[a_name, [b_name, ...]]`: the A member
// whose slot must avoid every named B member.
type RawExclude struct {
	Slot       string
	Disallowed []string
}

// UnmarshalYAML decodes the 2-element sequence `[slot, [disallowed...]]`.
func (e *RawExclude) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode || len(node.Content) != 2 {
		return fmt.Errorf("exclude must be a 2-element sequence [slot, [disallowed...]]")
	}
	if err := node.Content[0].Decode(&e.Slot); err != nil {
		return fmt.Errorf("decode exclude slot: %w", err)
	}
	if err := node.Content[1].Decode(&e.Disallowed); err != nil {
		return fmt.Errorf("decode exclude disallowed list: %w", err)
	}
	return nil
}

// RawConstraint is one event as written in the season YAML, following
// spec.md §6's documented schema: a Type discriminator (Night or Box), a
// Map of asserted A->B names, and a Check naming the per-candidate
// validation algorithm.
type RawConstraint struct {
	Num ConstraintNum `yaml:"num"`

	Type string            `yaml:"type"`
	Map  map[string]string `yaml:"map"`

	Check  string `yaml:"check,omitempty"`
	Lights *int   `yaml:"lights,omitempty"`

	Exclude       *RawExclude `yaml:"exclude,omitempty"`
	NoExclude     bool        `yaml:"noExclude,omitempty"`
	ResultUnknown bool        `yaml:"resultUnknown,omitempty"`

	BuildTree       bool `yaml:"buildTree,omitempty"`
	HideRulesetData bool `yaml:"hideRulesetData,omitempty"`

	// Comment, Offer and Hidden are recorded but never affect candidate
	// filtering: Comment/Offer pass straight through to the rendered
	// EvalEvent, Hidden tells the presenter to fold this event's
	// information into the next non-hidden one instead of giving it its
	// own row (spec.md §3 Constraint.hidden).
	Comment string `yaml:"comment,omitempty"`
	Offer   string `yaml:"offer,omitempty"`
	Hidden  bool   `yaml:"hidden,omitempty"`
}

// IsBox reports whether this constraint is a Box assertion.
func (r RawConstraint) IsBox() bool { return r.Type == "Box" }

// IsNight reports whether this constraint is a Matching Night result.
func (r RawConstraint) IsNight() bool { return r.Type == "Night" }

// RulesetSpec names which matching-structure variant the season uses and
// its parameters, as written in YAML (e.g. `kind: x_times_dup, unknown: 1`).
type RulesetSpec struct {
	Kind    string   `yaml:"kind"`
	Unknown int      `yaml:"unknown,omitempty"`
	Fixed   []string `yaml:"fixed,omitempty"`
	TripID  string   `yaml:"trip_id,omitempty"`
}

// QueryPairSpec names two name lists: every cross combination of a setA
// member and a setB member is traced by the solver/season engine and
// reported back as a survivor count (spec.md §6 queryPair).
type QueryPairSpec struct {
	SetA []string `yaml:"setA"`
	SetB []string `yaml:"setB"`
}

// ParsedSpec is the direct YAML decoding of a season file, names not yet
// resolved to indices.
type ParsedSpec struct {
	SetA        []string          `yaml:"setA"`
	SetB        []string          `yaml:"setB"`
	RenameA     map[string]string `yaml:"renameA,omitempty"`
	RenameB     map[string]string `yaml:"renameB,omitempty"`
	RuleSet     RulesetSpec       `yaml:"rule_set"`
	Constraints []RawConstraint   `yaml:"constraints"`

	// QueryMatchings, one name-map per matching to trace, reports whether
	// each named matching is still among the survivors after every step.
	QueryMatchings []map[string]string `yaml:"queryMatchings,omitempty"`
	QueryPair      []QueryPairSpec     `yaml:"queryPair,omitempty"`

	Solved           bool `yaml:"solved,omitempty"`
	NoOfferingsNoted bool `yaml:"no_offerings_noted,omitempty"`
	GenCache         bool `yaml:"gen_cache,omitempty"`
}

// Load reads and YAML-decodes a season spec from path.
func Load(path string) (*ParsedSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ayerr.IOf(path, "read season spec: %w", err)
	}
	var p ParsedSpec
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, ayerr.Specf(path, "decode season spec: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks structural invariants that don't require name resolution:
// both sets non-empty, every constraint names a recognized type and a
// non-empty map, and check=Lights carries a lights count. Box/Night map
// cardinality is not checked here.
func (p *ParsedSpec) Validate() error {
	if len(p.SetA) == 0 || len(p.SetB) == 0 {
		return ayerr.Specf("sets", "setA and setB must both be non-empty")
	}
	for i, c := range p.Constraints {
		ctx := fmt.Sprintf("constraints[%d]", i)
		switch {
		case !c.IsBox() && !c.IsNight():
			return ayerr.Specf(ctx, "type must be Box or Night, got %q", c.Type)
		case len(c.Map) == 0:
			return ayerr.Specf(ctx, "map must not be empty")
		case c.Check == "Lights" && c.Lights == nil:
			return ayerr.Specf(ctx, "check=Lights requires a lights count")
		}
	}
	return nil
}

// NameIndex resolves a name list (with optional renames applied) into a
// lookup from name to 0-based index, the form the ruleset/constraint
// packages operate on.
func NameIndex(names []string, renames map[string]string) (map[string]int, []string) {
	resolved := make([]string, len(names))
	idx := make(map[string]int, len(names))
	for i, n := range names {
		name := n
		if renames != nil {
			if r, ok := renames[n]; ok {
				name = r
			}
		}
		resolved[i] = name
		idx[name] = i
	}
	return idx, resolved
}
