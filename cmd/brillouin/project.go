package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/brillouin/internal/entity"
	"github.com/banshee-data/brillouin/internal/stage"
)

func (a *app) newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new NAME",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := stage.Create(a.dir, args[0], a.options()...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", s.CommittedPath())
			return s.Suspend()
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List unsaved changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				d, err := p.Session().CheckDirty()
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if d.Empty() {
					fmt.Fprintln(w, "no unsaved changes")
					return nil
				}
				for _, path := range d.Added {
					fmt.Fprintf(w, "A %s\n", path)
				}
				for _, path := range d.Removed {
					fmt.Fprintf(w, "D %s\n", path)
				}
				for _, path := range d.Altered {
					fmt.Fprintf(w, "M %s\n", path)
				}
				return nil
			})
		},
	}
}

func (a *app) saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Commit the working copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				if err := p.Session().Save(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", p.Session().CommittedPath())
				return p.Session().Discard()
			})
		},
	}
}

func (a *app) discardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Drop unsaved changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				return p.Session().Discard()
			})
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show project identity and timestamps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				info, err := p.Info()
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "name:     %s\n", info.Name)
				fmt.Fprintf(w, "id:       %s\n", info.ID)
				fmt.Fprintf(w, "location: %s\n", p.Session().Location())
				fmt.Fprintf(w, "created:  %s\n", info.Created.Format(time.RFC3339))
				fmt.Fprintf(w, "modified: %s\n", info.Modified.Format(time.RFC3339))
				return nil
			})
		},
	}
}

func (a *app) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename NEW_NAME",
		Short: "Rename the project files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProject(func(p *entity.Project) error {
				if err := p.Rename(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "renamed to %s\n", p.Session().CommittedPath())
				return nil
			})
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the project and its working copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to delete %s without --force", a.project)
			}
			return a.withProject(func(p *entity.Project) error {
				return p.Session().Delete()
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm deletion")
	return cmd
}

func (a *app) strayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stray",
		Short: "List working copies left in the project directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := stage.StrayWorkingCopies(a.dir, a.options()...)
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
}
