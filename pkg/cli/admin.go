package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/hunt/pkg/auth"
	"github.com/harrisonrobin/hunt/pkg/colors"
	"github.com/harrisonrobin/hunt/pkg/config"
	"github.com/harrisonrobin/hunt/pkg/google"
	"github.com/harrisonrobin/hunt/pkg/index"
	"github.com/harrisonrobin/hunt/pkg/model"
	"github.com/harrisonrobin/hunt/pkg/overdue"
	"github.com/harrisonrobin/hunt/pkg/store"
)

func newInitCmd(a *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the task database, wiping an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.Config.DatabasePath()
			if _, err := os.Stat(path); err == nil && !force {
				sure, err := a.confirm("This will delete every task in " + path + ". Continue? [yN] ")
				if err != nil {
					return err
				}
				if !sure {
					a.print.Printf("%s\n", colors.Muted.Render("Kept the existing database"))
					return nil
				}
			}
			for _, p := range []string{path, path + "-wal", path + "-shm", filepath.Join(a.Config.Directory, overdue.TableFile)} {
				if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
					return &model.StoreError{Op: "init", Err: err}
				}
			}
			if _, err := a.openEngine(); err != nil {
				return err
			}
			a.print.Printf("Initialized an empty database at %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Do not ask for confirmation")
	return cmd
}

func newConfigCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(a.Config)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			a.print.Printf("# %s\n%s", path, out)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-calendar NAME...",
		Short: "Set the calendar tasks are exported to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ReadFile()
			if err != nil {
				return err
			}
			cfg.Calendar = strings.Join(args, " ")
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			a.Config.Calendar = cfg.Calendar
			a.print.Printf("Tasks will be exported to the %q calendar\n", cfg.Calendar)
			return nil
		},
	})
	return cmd
}

func newCalendarCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Export worked intervals to Google Calendar",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "auth",
		Short: "Authorize hunt to write to your calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.ResetToken(); err != nil {
				return err
			}
			if _, err := auth.GetCalendarService(cmd.Context(), a.Out); err != nil {
				return err
			}
			path, err := auth.TokenPath()
			if err != nil {
				return err
			}
			a.print.Printf("Authorized, token saved to %s\n", path)
			return nil
		},
	})

	var calendarName string
	sync := &cobra.Command{
		Use:   "sync [NAME...]",
		Short: "Export one task, or all of them, to the calendar",
		Long: `Export each closed interval as one calendar event. Without a name every task is
exported, and events of deleted tasks are removed from the calendar.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := a.openEngine()
			if err != nil {
				return err
			}

			var tasks []model.Task
			if len(args) == 0 {
				tasks, err = eng.List(ctx, store.Filter{IncludeFinished: true})
				if err != nil {
					return err
				}
			} else {
				task, err := eng.Resolve(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				tasks = []model.Task{*task}
			}

			name := calendarName
			if name == "" {
				name = a.Config.Calendar
			}
			events, err := a.Calendar(ctx, name)
			if err != nil {
				return err
			}
			idx, err := index.NewEventIndex(filepath.Join(a.Config.Directory, index.IndexFile))
			if err != nil {
				return fmt.Errorf("failed to load event index: %w", err)
			}
			cc, err := colors.NewColorCache(filepath.Join(a.Config.Directory, colors.CacheFile))
			if err != nil {
				return fmt.Errorf("failed to load color cache: %w", err)
			}

			x := google.NewExporter(events, idx, cc, google.ExporterOptions{Now: a.Now, Logger: a.logger})
			res, exportErr := x.ExportTasks(ctx, tasks, len(args) == 0)
			if err := x.Save(); err != nil {
				a.logger.Warn("could not save calendar state", slog.Any("err", err))
			}
			a.print.Printf("Exported to %q: %d created, %d updated, %d unchanged, %d deleted\n",
				name, res.Created, res.Updated, res.Unchanged, res.Deleted)
			return exportErr
		},
	}
	sync.Flags().StringVar(&calendarName, "calendar", "", "Calendar to export to instead of the configured one")
	cmd.AddCommand(sync)
	return cmd
}
