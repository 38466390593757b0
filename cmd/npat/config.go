package main

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/avvvet/npat-services/internal/gamesvc/service"
	"github.com/avvvet/npat-services/internal/prefs"
)

type Config struct {
	prefsPath string
	verbose   bool

	name   string
	rounds int
	timer  int

	letter string

	buzzer bool
}

func (c *Config) validate() error {
	if c.rounds < 1 || c.rounds > service.MaxRoomRounds {
		return fmt.Errorf("invalid rounds (must be between 1-%d inclusive): %d", service.MaxRoomRounds, c.rounds)
	}
	if c.timer < service.MinRoomTimer || c.timer > service.MaxRoomTimer || c.timer%service.RoomTimerStep != 0 {
		return fmt.Errorf("invalid timer (must be %d-%d in steps of %d): %d",
			service.MinRoomTimer, service.MaxRoomTimer, service.RoomTimerStep, c.timer)
	}
	return nil
}

func (c *Config) settings() (*prefs.Settings, error) {
	path := c.prefsPath
	if path == "" {
		p, err := prefs.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	log.Debugf("prefs file %s", path)

	kv, err := prefs.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return prefs.New(kv), nil
}

// bindFlags lets NPAT_* environment variables fill any flag left unset.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("NPAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "npat",
		Short:         "Name, Place, Animal, Thing in the terminal.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(v, cmd.Flags())
			if cfg.verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.StringVar(&cfg.prefsPath, "prefs", "", "path to the preferences file (env: NPAT_PREFS)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: NPAT_VERBOSE)")

	cmd.AddCommand(
		newSoloCmd(cfg),
		newExamplesCmd(cfg),
		newScoresCmd(cfg),
		newSettingsCmd(cfg),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("npat v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
