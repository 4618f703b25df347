package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/brillouin/internal/entity"
)

func (a *app) floatLabelCmd(name, short string,
	add, remove func(*entity.Project, float64) error,
	list func(*entity.Project) ([]float64, error),
) *cobra.Command {
	cmd := &cobra.Command{Use: name, Short: "Manage " + short}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add VALUE...",
			Short: "Register labels",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				values, err := parseFloats(args)
				if err != nil {
					return err
				}
				return a.withProject(func(p *entity.Project) error {
					for _, v := range values {
						if err := add(p, v); err != nil {
							return err
						}
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rm VALUE...",
			Short: "Unregister labels",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				values, err := parseFloats(args)
				if err != nil {
					return err
				}
				return a.withProject(func(p *entity.Project) error {
					for _, v := range values {
						if err := remove(p, v); err != nil {
							return err
						}
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "ls",
			Short: "List labels in insertion order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withProject(func(p *entity.Project) error {
					values, err := list(p)
					if err != nil {
						return err
					}
					for _, v := range values {
						fmt.Fprintln(cmd.OutOrStdout(), num(v))
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) crystalCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "crystal", Short: "Manage crystal labels"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add NAME...",
			Short: "Register crystal labels",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withProject(func(p *entity.Project) error {
					for _, name := range args {
						if err := p.AddCrystal(name); err != nil {
							return err
						}
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rm NAME...",
			Short: "Unregister crystal labels",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withProject(func(p *entity.Project) error {
					for _, name := range args {
						if err := p.RemoveCrystal(name); err != nil {
							return err
						}
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "ls",
			Short: "List crystal labels",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withProject(func(p *entity.Project) error {
					names, err := p.Crystals()
					if err != nil {
						return err
					}
					for _, name := range names {
						fmt.Fprintln(cmd.OutOrStdout(), name)
					}
					return nil
				})
			},
		},
	)
	return cmd
}
