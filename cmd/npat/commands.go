package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/avvvet/npat-services/internal/gamesvc/categories"
	"github.com/avvvet/npat-services/internal/prefs"
)

func newExamplesCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examples [category]",
		Short: "Browse example words for inspiration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printExamples(cmd.OutOrStdout(), args, cfg.letter)
		},
	}
	cmd.Flags().StringVarP(&cfg.letter, "letter", "l", "", "only show the word for this letter (env: NPAT_LETTER)")
	return cmd
}

func printExamples(out io.Writer, args []string, letter string) error {
	groups := categories.Examples()
	if len(args) == 1 {
		if args[0] == "" {
			return fmt.Errorf("category is required")
		}
		name := strings.ToUpper(args[0][:1]) + strings.ToLower(args[0][1:])
		words, ok := categories.ExamplesFor(name)
		if !ok {
			return fmt.Errorf("unknown category %q", args[0])
		}
		groups = []categories.Group{{Category: name, Words: words}}
	}

	for _, g := range groups {
		if letter != "" {
			w, ok := categories.WordFor(g.Category, letter)
			if !ok {
				w = "-"
			}
			fmt.Fprintf(out, "%-6s %s\n", g.Category, w)
			continue
		}
		fmt.Fprintf(out, "%s:\n  %s\n", g.Category, strings.Join(g.Words, ", "))
	}
	return nil
}

func newScoresCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "List solo score history",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cfg.settings()
			if err != nil {
				return err
			}
			return listScores(cmd.OutOrStdout(), s)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete one score entry",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := cfg.settings()
				if err != nil {
					return err
				}
				ok, err := s.DeleteScore(args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no score with id %s", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Score deleted")
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete all score entries",
			Args:  cobra.ExactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := cfg.settings()
				if err != nil {
					return err
				}
				if err := s.ClearScores(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All scores cleared")
				return nil
			},
		},
	)
	return cmd
}

func listScores(out io.Writer, s *prefs.Settings) error {
	scores, err := s.Scores()
	if err != nil {
		return err
	}
	if len(scores) == 0 {
		fmt.Fprintln(out, "No games played yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tROUNDS\tCORRECT\tACCURACY")
	for _, e := range scores {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d/%d\t%d%%\n",
			e.ID, e.Date.Local().Format("2006-01-02 15:04"), e.Rounds, e.Correct, e.Total, e.Accuracy)
	}
	return w.Flush()
}

func newSettingsCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change local settings",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cfg.settings()
			if err != nil {
				return err
			}
			fs := cmd.Flags()
			if fs.Changed("name") {
				if err := s.SetPlayerName(cfg.name); err != nil {
					return err
				}
			}
			if fs.Changed("buzzer") {
				if err := s.SetBuzzer(cfg.buzzer); err != nil {
					return err
				}
			}
			printSettings(cmd.OutOrStdout(), s)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.name, "name", "n", "", "player name (env: NPAT_NAME)")
	fs.BoolVar(&cfg.buzzer, "buzzer", true, "ring the terminal bell when time is up (env: NPAT_BUZZER)")

	return cmd
}

func printSettings(out io.Writer, s *prefs.Settings) {
	name := s.PlayerName()
	if name == "" {
		name = "(not set)"
	}
	buzzer := "off"
	if s.BuzzerEnabled() {
		buzzer = "on"
	}
	fmt.Fprintf(out, "Player name: %s\nBuzzer:      %s\n", name, buzzer)
}
