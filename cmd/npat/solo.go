package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/avvvet/npat-services/internal/gamesvc/engine"
	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/avvvet/npat-services/internal/gamesvc/service"
	"github.com/avvvet/npat-services/internal/prefs"
)

const howToPlay = `How to play:
  Each round draws a letter. Type a Name, a Place, an Animal and a Thing
  starting with it before the timer runs out. Press enter to skip one.
  Every valid answer is worth 10 points.
`

type soloResult struct {
	rounds  int
	correct int
	score   int
}

type soloGame struct {
	in     <-chan string
	out    io.Writer
	engine *engine.Engine
	after  func(time.Duration) <-chan time.Time
	buzzer bool
	closed bool
}

// readLines streams trimmed input lines until r is exhausted.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- strings.TrimSpace(sc.Text())
		}
	}()
	return ch
}

func newSoloGame(in io.Reader, out io.Writer, buzzer bool) *soloGame {
	return &soloGame{
		in:     readLines(in),
		out:    out,
		engine: engine.New(),
		after:  time.After,
		buzzer: buzzer,
	}
}

func (g *soloGame) play(ctx context.Context, rounds, timer int) (soloResult, error) {
	state := models.NewRoundState(rounds, timer)
	if err := g.engine.Begin(&state); err != nil {
		return soloResult{}, err
	}

	res := soloResult{rounds: rounds}
	for state.Status != models.StatusFinished {
		answers, err := g.round(ctx, state)
		if err != nil {
			return res, err
		}
		valid := g.report(state.CurrentLetter, answers)
		res.correct += valid
		res.score += engine.RoundScore(valid)

		if err := g.engine.Advance(&state); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (g *soloGame) round(ctx context.Context, state models.RoundState) (map[string]string, error) {
	fmt.Fprintf(g.out, "\nRound %d/%d   letter %s   %ds\n",
		state.CurrentRound, state.TotalRounds, state.CurrentLetter, state.TimerDuration)

	answers := make(map[string]string, len(state.Categories))
	timeUp := g.after(time.Duration(engine.Remaining(state, g.engine.Now())) * time.Second)

	for {
		for _, c := range state.Categories {
			if g.closed {
				return answers, nil
			}
			fmt.Fprintf(g.out, "%-6s (%2ds): ", c, engine.Remaining(state, g.engine.Now()))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-timeUp:
				g.timeUp()
				return answers, nil
			case line, ok := <-g.in:
				if !ok {
					g.closed = true
					fmt.Fprintln(g.out)
					return answers, nil
				}
				if line != "" {
					answers[c] = line
				}
			}
		}
		if len(answers) > 0 {
			return answers, nil
		}
		fmt.Fprintln(g.out, "Enter at least one answer to submit.")
	}
}

func (g *soloGame) timeUp() {
	if g.buzzer {
		fmt.Fprint(g.out, "\a")
	}
	fmt.Fprintln(g.out, "\nTime's up!")
}

func (g *soloGame) report(letter string, answers map[string]string) int {
	valid := 0
	for _, c := range models.Categories {
		a := answers[c]
		mark := "x"
		if engine.IsValid(a, letter) {
			mark = "ok"
			valid++
		}
		if a == "" {
			a = "-"
		}
		fmt.Fprintf(g.out, "  %-6s %-20s %s\n", c, a, mark)
	}
	fmt.Fprintf(g.out, "Round score: %d\n", engine.RoundScore(valid))
	return valid
}

func newSoloCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solo",
		Short: "Play a solo game against the clock",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			settings, err := cfg.settings()
			if err != nil {
				return err
			}
			return runSolo(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cfg, settings, time.Now)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.name, "name", "n", "", "player name to remember (env: NPAT_NAME)")
	fs.IntVarP(&cfg.rounds, "rounds", "r", service.DefaultRoomRounds, "number of rounds (env: NPAT_ROUNDS)")
	fs.IntVarP(&cfg.timer, "timer", "t", service.DefaultRoomTimer, "seconds per round (env: NPAT_TIMER)")

	return cmd
}

func runSolo(ctx context.Context, in io.Reader, out io.Writer, cfg *Config, settings *prefs.Settings, now func() time.Time) error {
	if cfg.name != "" {
		if err := settings.SetPlayerName(cfg.name); err != nil {
			return err
		}
	}
	if !settings.SeenOnboarding() {
		fmt.Fprint(out, howToPlay)
		if err := settings.MarkOnboardingSeen(); err != nil {
			return err
		}
	}
	if name := settings.PlayerName(); name != "" {
		fmt.Fprintf(out, "Good luck, %s!\n", name)
	}

	g := newSoloGame(in, out, settings.BuzzerEnabled())
	res, err := g.play(ctx, cfg.rounds, cfg.timer)
	if err != nil {
		return err
	}

	entry := prefs.NewScoreEntry(now(), res.rounds, res.correct)
	fmt.Fprintf(out, "\nGame complete: %d points out of %d, %d/%d correct (%d%%)\n",
		res.score, engine.RoundScore(entry.Total), entry.Correct, entry.Total, entry.Accuracy)

	return settings.AddScore(entry)
}
