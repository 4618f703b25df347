// Command brillouin edits Brillouin scattering projects from the shell.
//
// Every invocation resumes the project's working copy, applies one edit and
// suspends it again, so edits accumulate across invocations until "save"
// commits them or "discard" drops them.
package main

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/banshee-data/brillouin/internal/calib"
	"github.com/banshee-data/brillouin/internal/config"
	"github.com/banshee-data/brillouin/internal/entity"
	"github.com/banshee-data/brillouin/internal/monitoring"
	"github.com/banshee-data/brillouin/internal/stage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("brillouin: %v", err)
		os.Exit(1)
	}
}

// app holds the global flags and the loaded configuration.
type app struct {
	dir        string
	project    string
	configPath string
	metrics    bool
	verbose    bool
	cfg        *config.StoreConfig
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "brillouin",
		Short:             "Manage Brillouin scattering project files",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !a.metrics {
				return nil
			}
			return dumpMetrics(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&a.dir, "dir", "d", ".", "directory holding the project")
	flags.StringVarP(&a.project, "project", "p", os.Getenv("BRILLOUIN_PROJECT"), "project name")
	flags.StringVar(&a.configPath, "config", "", "store config file (.json, .yaml)")
	flags.BoolVar(&a.metrics, "metrics", false, "print store metrics after the command")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log store events to stderr")

	root.AddCommand(
		a.newCmd(), a.statusCmd(), a.saveCmd(), a.discardCmd(), a.infoCmd(),
		a.renameCmd(), a.deleteCmd(), a.strayCmd(),
		a.floatLabelCmd("pressure", "pressure labels in GPa", (*entity.Project).AddPressure, (*entity.Project).RemovePressure, (*entity.Project).Pressures),
		a.floatLabelCmd("velocity", "velocity labels in m/s", (*entity.Project).AddVelocity, (*entity.Project).RemoveVelocity, (*entity.Project).Velocities),
		a.crystalCmd(),
		a.dataCmd(),
		a.calibCmd(),
		a.plotCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if !a.verbose {
		monitoring.SetLogger(nil)
	}
	a.cfg = config.DefaultStoreConfig()
	if a.configPath == "" {
		return nil
	}
	cfg, err := config.LoadStoreConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) options() []stage.Option {
	return []stage.Option{stage.WithConfig(a.cfg)}
}

func (a *app) engine() calib.Engine {
	return calib.NewEngine(a.cfg.GetSpeedOfLight())
}

var errNoProject = errors.New("no project given: use --project or BRILLOUIN_PROJECT")

// withProject resumes the working copy, runs fn and suspends it again. fn
// may end the session itself with Save, Discard or Delete.
func (a *app) withProject(fn func(p *entity.Project) error) (err error) {
	if a.project == "" {
		return errNoProject
	}
	s, err := stage.Resume(a.dir, a.project, a.options()...)
	if err != nil {
		return err
	}
	defer func() {
		if serr := s.Suspend(); err == nil {
			err = serr
		}
	}()
	return fn(entity.New(s, a.engine()))
}

func dumpMetrics(cmd *cobra.Command) error {
	families, err := monitoring.Registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(cmd.OutOrStdout(), mf); err != nil {
			return err
		}
	}
	return nil
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, 0, len(args))
	for _, s := range args {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		out = append(out, v)
	}
	return out, nil
}

// num prints NaN as "-".
func num(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func text(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
