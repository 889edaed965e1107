// Command ayto-sim is the analyzer CLI: it loads a recorded season,
// enumerates every matching consistent with its ruleset, folds in the
// season's constraints in order, and writes the per-step EvalEvent/
// SumCounts trace to stats.json — spec.md §6's "Output (analyzer)".
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/atticus-sullivan/sim-ayto-go/internal/constraint"
	"github.com/atticus-sullivan/sim-ayto-go/internal/iterstate"
	"github.com/atticus-sullivan/sim-ayto-go/internal/present"
	"github.com/atticus-sullivan/sim-ayto-go/internal/season"
	"github.com/atticus-sullivan/sim-ayto-go/internal/specfile"
)

var cli struct {
	Debug bool `help:"enable debug logging"`

	Sim        SimCmd        `cmd:"" help:"evaluate a season and write stats.json"`
	Check      CheckCmd      `cmd:"" help:"parse and validate a season file, report any errors"`
	Cache      CacheCmd      `cmd:"" help:"enumerate the full season and write a matching cache"`
	Comparison ComparisonCmd `cmd:"" help:"compare two already-evaluated seasons"`
}

type SimCmd struct {
	Yaml          string `arg:"" help:"season YAML path"`
	Out           string `short:"o" help:"output stem (writes <stem>/stats.json)" required:""`
	NoTreeOutput  bool   `help:"don't retain left_poss during enumeration"`
	IgnoreBoxes   bool   `help:"skip Box constraints when folding events"`
	Transpose     bool   `help:"swap rows/cols of the printed remaining-possibility table"`
	Dump          string `enum:",full,fullnames,winning,winningnames" default:"" help:"dump surviving candidates: full|fullnames|winning|winningnames"`
	Full          bool   `help:"print every step's table, not just the final one"`
	UseCache      string `help:"matching-cache id to read instead of enumerating"`
}

type CheckCmd struct {
	Yaml string `arg:"" help:"season YAML path"`
}

type CacheCmd struct {
	Yaml string `arg:"" help:"season YAML path"`
}

type ComparisonCmd struct {
	SeasonDE string `arg:"" help:"first season YAML (in place of the original's rendered HTML report)"`
	SeasonUS string `arg:"" help:"second season YAML"`
	LightTheme string `short:"l" help:"light theme name (accepted, not used: HTML rendering is out of scope)"`
	DarkTheme  string `short:"d" help:"dark theme name (accepted, not used: HTML rendering is out of scope)"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("ayto-sim"),
		kong.Description("AYTO matching analyzer"),
		kong.UsageOnError(),
	)

	logger := newLogger(cli.Debug)

	if err := ctx.Run(logger); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func loadSeason(path string) (*season.Season, error) {
	parsed, err := specfile.Load(path)
	if err != nil {
		return nil, err
	}
	return season.FromParsed(parsed)
}

func (c *SimCmd) Run(logger zerolog.Logger) error {
	s, err := loadSeason(c.Yaml)
	if err != nil {
		return err
	}
	if c.IgnoreBoxes {
		for i := range s.Constraints {
			if s.Constraints[i].Kind == constraint.Box {
				s.Constraints[i].Hidden = true
			}
		}
	}

	if c.NoTreeOutput {
		for i := range s.Constraints {
			s.Constraints[i].BuildTree = false
		}
	}

	bar := newProgressProgram()
	defer bar.stop()

	data, err := s.EvaluateCached(c.UseCache, func(examined int, total int64) {
		bar.update(examined, total)
	})
	if err != nil {
		return err
	}
	bar.stop()

	total0 := s.Ruleset.PermsAmount(s.SizeA()).Int64()
	stats := present.BuildStats(total0, data, c.IgnoreBoxes)

	if err := os.MkdirAll(c.Out, 0o755); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(c.Out, "stats.json"), stats); err != nil {
		return err
	}
	logger.Info().Str("out", c.Out).Int("events", len(stats.Events)).Msg("wrote stats.json")

	if c.Full {
		for _, step := range data.Steps {
			printTable(s, step, c.Transpose)
		}
	} else if last, err := data.Final(); err == nil {
		printTable(s, last, c.Transpose)
	}

	if c.Dump != "" {
		if err := dumpCandidates(s, c.Dump); err != nil {
			return err
		}
	}

	return nil
}

// printTable renders the remaining-possibility matrix as per-pair marginal
// probabilities: Rem.Counts[a][b]/Rem.Total is the fraction of surviving
// candidates pairing a with b after this step's constraint was folded in.
func printTable(s *season.Season, step season.StepResult, transpose bool) {
	headers := append([]string{"A"}, s.NameB...)
	rows := make([][]string, 0, len(step.Rem.Counts))
	for i, row := range step.Rem.Counts {
		cells := make([]string, 0, len(headers))
		cells = append(cells, s.NameA[i])
		for _, count := range row {
			if count <= 0 {
				cells = append(cells, "")
			} else {
				cells = append(cells, fmt.Sprintf("%.2f", float64(count)/float64(step.Rem.Total)))
			}
		}
		rows = append(rows, cells)
	}
	fmt.Print(present.Render(present.Table{Headers: headers, Rows: rows, Transpose: transpose}))
}

// dumpCandidates re-enumerates the season with every constraint applied
// (season.Season.Materialize) and prints each surviving candidate as a
// header line followed by one line per slot, per SPEC_FULL.md §6's --dump
// flag. "winning" modes only print
// anything once exactly one candidate survives.
func dumpCandidates(s *season.Season, mode string) error {
	candidates, err := s.Materialize("")
	if err != nil {
		return err
	}
	if strings.HasPrefix(mode, "winning") && len(candidates) != 1 {
		return nil
	}
	names := strings.HasSuffix(mode, "names")
	for ci, cand := range candidates {
		fmt.Printf("candidate %d:\n", ci)
		for i, slot := range cand {
			vals := slot.Idxs()
			if names {
				bNames := make([]string, len(vals))
				for j, v := range vals {
					if v < len(s.NameB) {
						bNames[j] = s.NameB[v]
					}
				}
				fmt.Printf("  %s -> %s\n", s.NameA[i], strings.Join(bNames, ","))
			} else {
				fmt.Printf("  %d -> %v\n", i, vals)
			}
		}
	}
	return nil
}

func (c *CheckCmd) Run(logger zerolog.Logger) error {
	s, err := loadSeason(c.Yaml)
	if err != nil {
		return err
	}
	logger.Info().
		Int("size_a", s.SizeA()).
		Int("constraints", len(s.Constraints)).
		Str("ruleset", s.Ruleset.Kind.String()).
		Msg("season OK")
	return nil
}

func (c *CacheCmd) Run(logger zerolog.Logger) error {
	s, err := loadSeason(c.Yaml)
	if err != nil {
		return err
	}
	cachePath := cacheFilePath(c.Yaml)
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return err
	}
	res, err := iterstate.Run(iterstate.Config{
		Ruleset:  s.Ruleset,
		SizeA:    s.SizeA(),
		CacheOut: cachePath,
	})
	if err != nil {
		return err
	}
	logger.Info().Str("cache", cachePath).Int("survivors", res.Survivors).Msg("cache written")
	return nil
}

// cacheFilePath derives the deterministic cache path spec.md §6 names:
// "caches under ./.cache/<hex-hash>.cache", here keyed on the season
// file's base name without its extension (a stable stand-in for the hash
// of setA/setB/constraints
// spec.md §9 leaves as "any stable hash").
func cacheFilePath(seasonPath string) string {
	base := filepath.Base(seasonPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(".cache", base+".cache")
}

func (c *ComparisonCmd) Run(logger zerolog.Logger) error {
	sa, err := loadSeason(c.SeasonDE)
	if err != nil {
		return err
	}
	sb, err := loadSeason(c.SeasonUS)
	if err != nil {
		return err
	}
	da, err := sa.Evaluate(nil)
	if err != nil {
		return err
	}
	db, err := sb.Evaluate(nil)
	if err != nil {
		return err
	}
	cmp := present.CompareSeasons(da, db)
	for _, step := range cmp.Steps {
		fmt.Printf("step %d: bits_gained %.3f vs %.3f (diff %.3f)\n",
			step.Index, step.BitsGainedA, step.BitsGainedB, step.BitsGainedDiff)
	}
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// progressProgram wraps a bubbles/progress model in a bubbletea program,
// generalizing the teacher's hand-rolled regression-tester spinner into a
// real TUI progress bar for IterState's enumeration callback
// (spec.md §4.5 start()/finish()).
type progressProgram struct {
	prog *tea.Program
}

func newProgressProgram() *progressProgram {
	if !isTerminal() {
		return &progressProgram{}
	}
	m := progressModel{bar: progress.New(progress.WithDefaultGradient())}
	p := tea.NewProgram(m)
	go p.Run() //nolint:errcheck // best-effort TUI; enumeration proceeds regardless
	return &progressProgram{prog: p}
}

func (p *progressProgram) update(examined int, total int64) {
	if p.prog == nil || total <= 0 {
		return
	}
	p.prog.Send(progressMsg{frac: float64(examined) / float64(total)})
}

func (p *progressProgram) stop() {
	if p.prog == nil {
		return
	}
	p.prog.Quit()
	p.prog = nil
}

type progressMsg struct{ frac float64 }

// progressModel renders the current fraction on every message rather than
// driving bubbles/progress's built-in easing animation — enumeration
// progress arrives in discrete jumps, not a smooth fill, so ViewAs(frac)
// is the simpler fit than SetPercent's animated frame stream.
type progressModel struct {
	bar     progress.Model
	percent float64
}

func (m progressModel) Init() tea.Cmd { return nil }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.percent = msg.frac
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	return m.bar.ViewAs(m.percent)
}

func isTerminal() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
