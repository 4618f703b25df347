package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/banshee-data/brillouin/internal/entity"
	"github.com/banshee-data/brillouin/internal/fsutil"
	"github.com/banshee-data/brillouin/internal/ingest"
)

func (a *app) dataCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "data", Short: "Manage measurement records"}
	cmd.AddCommand(a.dataAddCmd(), a.dataRmCmd(), a.dataLsCmd(), a.dataSetCmd(), a.dataFindCmd())
	return cmd
}

func (a *app) dataAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add FILE...",
		Short: "Import .DAT files as measurement records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			captures, err := ingest.ReadAll(fsutil.OSFileSystem{}, args, a.cfg.GetHeaderLines())
			if err != nil {
				return err
			}
			return a.withProject(func(p *entity.Project) error {
				if err := p.AddMeasurements(captures); err != nil {
					return err
				}
				for _, c := range captures {
					fmt.Fprintf(cmd.OutOrStdout(), "added %s (%d channels)\n", c.Name, len(c.Samples))
				}
				return nil
			})
		},
	}
}

func (a *app) dataRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME...",
		Short: "Remove measurement records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				for _, name := range args {
					if err := p.RemoveMeasurement(name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func (a *app) dataLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List measurement records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				all, err := p.Measurements()
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%-24s %-9s %-10s %-12s %-6s %-6s %-6s %-5s\n",
					"FILENAME", "PRESSURE", "CRYSTAL", "CALIBRATION", "CHI", "POWER", "POL", "SCANS")
				for _, m := range all {
					fmt.Fprintf(w, "%-24s %-9s %-10s %-12s %-6s %-6s %-6s %-5s\n",
						m.Filename, num(m.Pressure), text(m.Crystal), text(m.Calibration),
						num(m.ChiAngle), num(m.Power), num(m.Polarization), num(m.Scans))
				}
				return nil
			})
		},
	}
}

// measurementFlags binds the settable record fields to fs.
type measurementFlags struct {
	pressure, chi, pinhole, power, polarization, scans float64
	wavelength, mirror, angle                          float64
	crystal, calibration                               string
}

func (f *measurementFlags) bind(fs *pflag.FlagSet) {
	fs.Float64Var(&f.pressure, "pressure", 0, "pressure in GPa")
	fs.StringVar(&f.crystal, "crystal", "", "crystal label")
	fs.Float64Var(&f.chi, "chi-angle", 0, "chi angle in degrees")
	fs.Float64Var(&f.pinhole, "pinhole", 0, "pinhole size")
	fs.Float64Var(&f.power, "power", 0, "laser power")
	fs.Float64Var(&f.polarization, "polarization", 0, "polarization angle")
	fs.Float64Var(&f.scans, "scans", 0, "number of scans")
	fs.StringVar(&f.calibration, "calibration", "", "calibration name")
	fs.Float64Var(&f.wavelength, "laser-wavelength", 0, "laser wavelength in nm")
	fs.Float64Var(&f.mirror, "mirror-spacing", 0, "mirror spacing in mm")
	fs.Float64Var(&f.angle, "scattering-angle", 0, "scattering angle in degrees")
}

func floatFlag(fs *pflag.FlagSet, name string, v float64) *float64 {
	if !fs.Changed(name) {
		return nil
	}
	return &v
}

func stringFlag(fs *pflag.FlagSet, name string, v string) *string {
	if !fs.Changed(name) {
		return nil
	}
	return &v
}

func (f *measurementFlags) update(fs *pflag.FlagSet) entity.MeasurementUpdate {
	return entity.MeasurementUpdate{
		Pressure:        floatFlag(fs, "pressure", f.pressure),
		Crystal:         stringFlag(fs, "crystal", f.crystal),
		ChiAngle:        floatFlag(fs, "chi-angle", f.chi),
		Pinhole:         floatFlag(fs, "pinhole", f.pinhole),
		Power:           floatFlag(fs, "power", f.power),
		Polarization:    floatFlag(fs, "polarization", f.polarization),
		Scans:           floatFlag(fs, "scans", f.scans),
		Calibration:     stringFlag(fs, "calibration", f.calibration),
		LaserWavelength: floatFlag(fs, "laser-wavelength", f.wavelength),
		MirrorSpacing:   floatFlag(fs, "mirror-spacing", f.mirror),
		ScatteringAngle: floatFlag(fs, "scattering-angle", f.angle),
	}
}

func (a *app) dataSetCmd() *cobra.Command {
	var f measurementFlags
	cmd := &cobra.Command{
		Use:   "set NAME...",
		Short: "Set fields on measurement records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := f.update(cmd.Flags())
			return a.withProject(func(p *entity.Project) error {
				for _, name := range args {
					if err := p.SetMeasurement(name, u); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func (a *app) dataFindCmd() *cobra.Command {
	var f measurementFlags
	cmd := &cobra.Command{
		Use:   "find",
		Short: "List records matching every given field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			c := entity.Criteria{
				Pressure:     floatFlag(fs, "pressure", f.pressure),
				Crystal:      stringFlag(fs, "crystal", f.crystal),
				Calibration:  stringFlag(fs, "calibration", f.calibration),
				Polarization: floatFlag(fs, "polarization", f.polarization),
			}
			return a.withProject(func(p *entity.Project) error {
				names, err := p.FindMeasurements(c)
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
	fs := cmd.Flags()
	fs.Float64Var(&f.pressure, "pressure", 0, "pressure in GPa")
	fs.StringVar(&f.crystal, "crystal", "", "crystal label")
	fs.StringVar(&f.calibration, "calibration", "", "calibration name")
	fs.Float64Var(&f.polarization, "polarization", 0, "polarization angle")
	return cmd
}
