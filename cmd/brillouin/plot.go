package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/brillouin/internal/entity"
	"github.com/banshee-data/brillouin/internal/plot"
	"github.com/banshee-data/brillouin/internal/security"
)

func (a *app) plotCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "plot CALIBRATION FILE",
		Short: "Render a reference spectrum with its fits as PNG",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				cf, err := p.CalibrationFile(args[0], args[1])
				if err != nil {
					return err
				}
				samples, err := p.CalibrationSamples(args[0], args[1])
				if err != nil {
					return err
				}
				pl, err := plot.CalibrationFile(cf, samples)
				if err != nil {
					return err
				}
				path := out
				if path == "" {
					path = filepath.Join(a.dir, security.SanitizeFilename(args[0]+"_"+args[1])+".png")
				}
				size := plot.Size{Width: a.cfg.GetPlotWidthInches(), Height: a.cfg.GetPlotHeightInches()}
				if err := plot.SavePNG(pl, size, path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "PNG path (default <dir>/<calibration>_<file>.png)")
	return cmd
}
