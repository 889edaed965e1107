// Command ayto-solver plays the Monte-Carlo harness described in
// spec.md §4.8: N independent simulated seasons against a hidden random
// solution, each driven by a pluggable Strategy, written as one JSON
// line per simulation to the given output path.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/atticus-sullivan/sim-ayto-go/internal/ruleset"
	"github.com/atticus-sullivan/sim-ayto-go/internal/solve"
)

type cli struct {
	N         int           `short:"n" help:"number of independent simulations" default:"1000" required:""`
	Out       string        `short:"o" help:"output JSONL path" required:""`
	Seed      int64         `short:"s" help:"master seed" default:"42"`
	SizeA     int           `help:"size of set A" default:"10"`
	Ruleset   string        `help:"ruleset kind: eq|x_times_dup|someone_is_trip|fixed_trip|n_to_n" default:"eq" enum:"eq,x_times_dup,someone_is_trip,fixed_trip,n_to_n"`
	Unknown   int           `help:"XTimesDup: number of unknown duplicates" default:"0"`
	Strategy  string        `help:"strategy name: optimal_mb|entropy_left_mn|deterministic" default:"optimal_mb"`
	Parallel  int           `help:"worker count (0 => default)" default:"0"`
	MaxRounds int           `help:"safety cap on rounds per simulation (0 => SizeA*4)" default:"0"`
	Timeout   time.Duration `help:"stop launching new simulations after this long (0 => no deadline)" default:"0"`
	Debug     bool          `help:"enable debug logging"`
}

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("ayto-solver"),
		kong.Description("AYTO Monte-Carlo strategy solver"),
		kong.UsageOnError(),
	)

	logger := newLogger(c.Debug)

	if err := c.run(logger); err != nil {
		logger.Error().Err(err).Msg("solver run failed")
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

func (c *cli) run(logger zerolog.Logger) error {
	strat, ok := solve.ByName(c.Strategy)
	if !ok {
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	r, err := buildRuleset(c.Ruleset, c.Unknown)
	if err != nil {
		return err
	}

	bar := newProgressProgram()
	defer bar.stop()

	start := time.Now()
	err = solve.Run(context.Background(), solve.Config{
		Ruleset:   r,
		SizeA:     c.SizeA,
		Strategy:  strat,
		N:         c.N,
		Seed:      c.Seed,
		Out:       c.Out,
		MaxRounds: c.MaxRounds,
		Parallel:  c.Parallel,
		Deadline:  c.Timeout,
		OnProgress: func(done, total int) {
			bar.update(done, total)
			logger.Debug().Int("done", done).Int("total", total).Msg("simulation finished")
		},
	})
	bar.stop()
	if err != nil {
		return err
	}
	logger.Info().
		Str("out", c.Out).
		Int("n", c.N).
		Int64("seed", c.Seed).
		Str("strategy", c.Strategy).
		Dur("duration", time.Since(start)).
		Msg("solver run complete")
	return nil
}

func buildRuleset(kind string, unknown int) (ruleset.Ruleset, error) {
	switch kind {
	case "eq", "":
		return ruleset.NewEq(), nil
	case "x_times_dup":
		return ruleset.NewXTimesDup(unknown, nil), nil
	case "someone_is_trip":
		return ruleset.NewSomeoneIsTrip(), nil
	case "fixed_trip":
		return ruleset.NewFixedTrip(0), nil
	case "n_to_n":
		return ruleset.NewNToN(), nil
	}
	return ruleset.Ruleset{}, fmt.Errorf("unknown ruleset kind %q", kind)
}

// progressProgram mirrors cmd/ayto-sim's writer-thread progress bar
// (spec.md §5: "Writer thread: ... owns file and progress bar").
type progressProgram struct {
	prog *tea.Program
}

func newProgressProgram() *progressProgram {
	if !isTerminal() {
		return &progressProgram{}
	}
	m := solverProgressModel{bar: progress.New(progress.WithDefaultGradient())}
	p := tea.NewProgram(m)
	go p.Run() //nolint:errcheck // best-effort TUI; the solver run proceeds regardless
	return &progressProgram{prog: p}
}

func (p *progressProgram) update(done, total int) {
	if p.prog == nil || total <= 0 {
		return
	}
	p.prog.Send(solverProgressMsg{frac: float64(done) / float64(total)})
}

func (p *progressProgram) stop() {
	if p.prog == nil {
		return
	}
	p.prog.Quit()
	p.prog = nil
}

type solverProgressMsg struct{ frac float64 }

type solverProgressModel struct {
	bar     progress.Model
	percent float64
}

func (m solverProgressModel) Init() tea.Cmd { return nil }

func (m solverProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case solverProgressMsg:
		m.percent = msg.frac
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m solverProgressModel) View() string {
	return m.bar.ViewAs(m.percent)
}

func isTerminal() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
