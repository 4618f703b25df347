package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/brillouin/internal/entity"
	"github.com/banshee-data/brillouin/internal/fsutil"
	"github.com/banshee-data/brillouin/internal/ingest"
)

func (a *app) calibCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "calib", Short: "Manage calibrations and their reference files"}
	cmd.AddCommand(
		a.calibNewCmd(), a.calibRmCmd(), a.calibRenameCmd(), a.calibLsCmd(),
		a.calibSetCmd(), a.calibAddCmd(), a.calibRmFileCmd(), a.calibFitCmd(),
		a.calibClearCmd(), a.calibInvertCmd(), a.calibShowCmd(),
	)
	return cmd
}

func (a *app) calibNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new NAME",
		Short: "Create an empty calibration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				return p.AddCalibration(args[0])
			})
		},
	}
}

func (a *app) calibRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME",
		Short: "Remove a calibration with all of its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				return p.RemoveCalibration(args[0])
			})
		},
	}
}

func (a *app) calibRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename a calibration",
		Long:  "Rename a calibration. Measurement records that name it are not updated.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				return p.RenameCalibration(args[0], args[1])
			})
		},
	}
}

func (a *app) calibLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List calibrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				cals, err := p.Calibrations()
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%-16s %-10s %-10s %-8s\n", "NAME", "MIRROR", "LAMBDA", "ANGLE")
				for _, c := range cals {
					fmt.Fprintf(w, "%-16s %-10s %-10s %-8s\n",
						c.Name, num(c.MirrorSpacing), num(c.LaserWavelength), num(c.ScatteringAngle))
				}
				return nil
			})
		},
	}
}

func (a *app) calibSetCmd() *cobra.Command {
	var mirror, wavelength, angle float64
	cmd := &cobra.Command{
		Use:   "set NAME",
		Short: "Set instrument values and recompute every file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			u := entity.CalibrationUpdate{
				MirrorSpacing:   floatFlag(fs, "mirror-spacing", mirror),
				LaserWavelength: floatFlag(fs, "laser-wavelength", wavelength),
				ScatteringAngle: floatFlag(fs, "scattering-angle", angle),
			}
			return a.withProject(func(p *entity.Project) error {
				return p.SetCalibrationInstrument(args[0], u)
			})
		},
	}
	cmd.Flags().Float64Var(&mirror, "mirror-spacing", 0, "mirror spacing in mm")
	cmd.Flags().Float64Var(&wavelength, "laser-wavelength", 0, "laser wavelength in nm")
	cmd.Flags().Float64Var(&angle, "scattering-angle", 0, "scattering angle in degrees")
	return cmd
}

func (a *app) calibAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add CALIBRATION FILE...",
		Short: "Import .DAT reference files into a calibration",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			captures, err := ingest.ReadAll(fsutil.OSFileSystem{}, args[1:], a.cfg.GetHeaderLines())
			if err != nil {
				return err
			}
			return a.withProject(func(p *entity.Project) error {
				if err := p.AddCalibrationFiles(args[0], captures); err != nil {
					return err
				}
				for _, c := range captures {
					fmt.Fprintf(cmd.OutOrStdout(), "added %s/%s (%d channels)\n", args[0], c.Name, len(c.Samples))
				}
				return nil
			})
		},
	}
}

func (a *app) calibRmFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rmfile CALIBRATION FILE",
		Short: "Remove a reference file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				return p.RemoveCalibrationFile(args[0], args[1])
			})
		},
	}
}

// readFit decodes a fit result written by the fitting tool. Fields missing
// from the document stay unset.
func readFit(path string) (entity.PeakFit, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return entity.PeakFit{}, fmt.Errorf("failed to read fit %s: %w", path, err)
	}
	f := entity.EmptyPeakFit()
	if err := json.Unmarshal(data, &f); err != nil {
		return entity.PeakFit{}, fmt.Errorf("failed to parse fit %s: %w", path, err)
	}
	if !f.Present() {
		return entity.PeakFit{}, fmt.Errorf("fit %s has no center", path)
	}
	return f, nil
}

func (a *app) calibFitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fit CALIBRATION FILE left|right FIT.json",
		Short: "Store a peak fit and recompute the file's constants",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := entity.ParseSide(args[2])
			if err != nil {
				return err
			}
			f, err := readFit(args[3])
			if err != nil {
				return err
			}
			return a.withProject(func(p *entity.Project) error {
				if err := p.SetPeakFit(args[0], args[1], side, f); err != nil {
					return err
				}
				return printCalibrationFile(cmd, p, args[0], args[1])
			})
		},
	}
}

func (a *app) calibClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear CALIBRATION FILE left|right",
		Short: "Clear a peak fit",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := entity.ParseSide(args[2])
			if err != nil {
				return err
			}
			return a.withProject(func(p *entity.Project) error {
				return p.ClearPeakFit(args[0], args[1], side)
			})
		},
	}
}

func (a *app) calibInvertCmd() *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "invert CALIBRATION FILE",
		Short: "Mark a reference file's peaks as dips",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				return p.SetInverted(args[0], args[1], !off)
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "clear the flag instead")
	return cmd
}

func (a *app) calibShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show CALIBRATION [FILE]",
		Short: "Show a calibration summary or one file's fits",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				if len(args) == 2 {
					return printCalibrationFile(cmd, p, args[0], args[1])
				}
				return printCalibration(cmd, p, args[0])
			})
		},
	}
}

func printCalibration(cmd *cobra.Command, p *entity.Project, name string) error {
	c, err := p.Calibration(name)
	if err != nil {
		return err
	}
	files, err := p.CalibrationFiles(name)
	if err != nil {
		return err
	}
	sum, err := p.CalibrationSummary(name)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "calibration %s: mirror %s mm, lambda %s nm, angle %s deg\n",
		c.Name, num(c.MirrorSpacing), num(c.LaserWavelength), num(c.ScatteringAngle))
	fmt.Fprintf(w, "%-24s %-8s %-14s %-14s\n", "FILE", "CHANNELS", "NM/CHANNEL", "GHZ/CHANNEL")
	for _, f := range files {
		fmt.Fprintf(w, "%-24s %-8d %-14s %-14s\n", f.Filename, f.Channels, num(f.NmPerChannel), num(f.GHzPerChannel))
	}
	fmt.Fprintf(w, "mean nm/channel %s (sd %s), GHz/channel %s (sd %s) over %d files\n",
		num(sum.Nm.Mean), num(sum.Nm.StdDev), num(sum.GHz.Mean), num(sum.GHz.StdDev), sum.Nm.N)
	return nil
}

func printCalibrationFile(cmd *cobra.Command, p *entity.Project, cal, file string) error {
	cf, err := p.CalibrationFile(cal, file)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s/%s: %d channels, inverted %t\n", cf.Calibration, cf.Filename, cf.Channels, cf.Inverted)
	fmt.Fprintf(w, "nm/channel %s, GHz/channel %s\n", num(cf.NmPerChannel), num(cf.GHzPerChannel))
	for _, s := range []struct {
		side entity.Side
		fit  entity.PeakFit
	}{{entity.SideLeft, cf.Left}, {entity.SideRight, cf.Right}} {
		if !s.fit.Present() {
			fmt.Fprintf(w, "%-5s unfit\n", s.side)
			continue
		}
		fmt.Fprintf(w, "%-5s center %s, fwhm %s, amplitude %s, r2 %s\n",
			s.side, num(s.fit.Center), num(s.fit.FWHM), num(s.fit.Amplitude), num(s.fit.GoodnessOfFit))
	}
	return nil
}
