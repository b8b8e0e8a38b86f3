package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/hunt/pkg/colors"
	"github.com/harrisonrobin/hunt/pkg/lifecycle"
	"github.com/harrisonrobin/hunt/pkg/model"
	"github.com/harrisonrobin/hunt/pkg/overdue"
	"github.com/harrisonrobin/hunt/pkg/store"
	"github.com/harrisonrobin/hunt/pkg/util"
)

func newCreateCmd(a *App) *cobra.Command {
	var estimate, description string
	cmd := &cobra.Command{
		Use:   "create NAME...",
		Short: "Create a new task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			est, err := a.readEstimate(estimate)
			if err != nil {
				return err
			}
			eng, err := a.openEngine()
			if err != nil {
				return err
			}
			task, err := eng.Create(cmd.Context(), lifecycle.NewTask{
				Name:        strings.Join(args, " "),
				Estimate:    est,
				Description: description,
			})
			if err != nil {
				return err
			}
			a.print.Printf("Created %s, estimated at %s\n", colors.Idle.Render(task.Name), util.FormatDuration(task.Estimate))
			return nil
		},
	}
	cmd.Flags().StringVarP(&estimate, "estimate", "e", "", "Estimate such as 2h, 1.5h or 90m (prompted when omitted)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	return cmd
}

func newWorkonCmd(a *App) *cobra.Command {
	var (
		create      bool
		estimate    string
		description string
	)
	cmd := &cobra.Command{
		Use:   "workon [NAME...]",
		Short: "Start working on a task, or resume the last one",
		Long: `Start working on a task. Without a name, the most recently touched unfinished task
is resumed. Whatever task was active is stopped first, unless the focus policy is "reject".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := a.openEngine()
			if err != nil {
				return err
			}

			ident := strings.Join(args, " ")
			if ident == "" {
				last, err := lastTask(ctx, eng)
				if err != nil {
					return err
				}
				ident = last.Name
			}

			var nt *lifecycle.NewTask
			if create {
				_, err := eng.ResolveIn(ctx, ident, lifecycle.Unfinished)
				switch {
				case model.IsNotFound(err):
					est, err := a.readEstimate(estimate)
					if err != nil {
						return err
					}
					nt = &lifecycle.NewTask{Name: ident, Estimate: est, Description: description}
				case err != nil:
					return err
				}
			}

			res, err := eng.Workon(ctx, ident, nt)
			if err != nil {
				return err
			}
			if res.Stopped != nil {
				a.print.Printf("Stopped working on %s\n", colors.Idle.Render(res.Stopped.Name))
			}
			if res.Created {
				a.print.Printf("Created %s, estimated at %s\n", colors.Idle.Render(res.Task.Name), util.FormatDuration(res.Task.Estimate))
			}
			if res.AlreadyActive {
				a.print.Printf("Already working on %s\n", colors.Active.Render(res.Task.Name))
			} else {
				a.print.Printf("Working on %s\n", colors.Active.Render(res.Task.Name))
			}
			a.warnOverdue(ctx, eng)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&create, "create", "c", false, "Create the task if it does not exist")
	cmd.Flags().StringVarP(&estimate, "estimate", "e", "", "Estimate when creating the task")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description when creating the task")
	return cmd
}

func newStopCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop working on the active task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.openEngine()
			if err != nil {
				return err
			}
			task, err := eng.Stop(cmd.Context(), "")
			if err != nil {
				return err
			}
			now := a.Now()
			session := lastSession(task, now)
			a.print.Printf("Stopped working on %s after %s (%s in total)\n",
				colors.Idle.Render(task.Name), util.FormatDuration(session), util.FormatDuration(task.TotalWorked(now)))
			a.warnOverdue(cmd.Context(), eng)
			return nil
		},
	}
}

func newFinishCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "finish [NAME...]",
		Short: "Finish a task, the active one by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.openEngine()
			if err != nil {
				return err
			}
			res, err := eng.Finish(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if res.AlreadyFinished {
				a.print.Printf("%s is already finished\n", colors.Finished.Render(res.Task.Name))
				return nil
			}
			a.print.Printf("Finished %s: %s worked, estimated at %s\n", colors.Finished.Render(res.Task.Name),
				util.FormatDuration(res.Task.TotalWorked(a.Now())), util.FormatDuration(res.Task.Estimate))
			return nil
		},
	}
}

func newRestartCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "restart NAME...",
		Short: "Reopen a finished task, keeping its history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.openEngine()
			if err != nil {
				return err
			}
			task, err := eng.Restart(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			a.print.Printf("Restarted %s\n", colors.Idle.Render(task.Name))
			a.warnOverdue(cmd.Context(), eng)
			return nil
		},
	}
}

func newEstimateCmd(a *App) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "estimate DURATION",
		Short: "Change the estimate of the active task, or of --task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDuration(args[0])
			if err != nil {
				return err
			}
			eng, err := a.openEngine()
			if err != nil {
				return err
			}
			task, err := eng.SetEstimate(cmd.Context(), target, d)
			if err != nil {
				return err
			}
			a.print.Printf("%s estimated to take %s\n", colors.ForState(task.State()).Render(task.Name), util.FormatDuration(task.Estimate))
			a.warnOverdue(cmd.Context(), eng)
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "task", "t", "", "Task to estimate instead of the active one")
	return cmd
}

func newRmCmd(a *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "rm NAME...",
		Short: "Delete a task and its history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := a.openEngine()
			if err != nil {
				return err
			}
			task, err := eng.Resolve(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if !force {
				sure, err := a.confirm("Are you sure you want to permanently delete " + task.Name + "? [yN] ")
				if err != nil {
					return err
				}
				if !sure {
					a.print.Printf("%s\n", colors.Muted.Render("Didn't remove "+task.Name))
					return nil
				}
			}
			if _, err := eng.Delete(ctx, task.Name); err != nil {
				return err
			}
			if table, err := a.overdueTable(); err == nil {
				table.Remove(task.ID)
				if err := table.Save(); err != nil {
					a.logger.Warn("could not save overdue table", slog.Any("err", err))
				}
			}
			a.print.Printf("Removed %s\n", task.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Do not ask for confirmation")
	return cmd
}

// readEstimate parses the --estimate flag, prompting when it was not given.
func (a *App) readEstimate(flag string) (time.Duration, error) {
	if flag == "" {
		answer, err := a.prompt("Estimate (e.g. 2h, 1.5h, 90m): ")
		if err != nil {
			return 0, err
		}
		flag = answer
	}
	return parseDuration(flag)
}

func parseDuration(s string) (time.Duration, error) {
	d, err := util.ParseDuration(s)
	if err != nil {
		return 0, &model.InvalidDurationError{Value: s, Err: err}
	}
	return d, nil
}

// lastSession is the interval stopped most recently.
func lastSession(t *model.Task, now time.Time) time.Duration {
	var latest *model.Interval
	for i := range t.Intervals {
		iv := &t.Intervals[i]
		if iv.Stop != nil && (latest == nil || !iv.Stop.Before(*latest.Stop)) {
			latest = iv
		}
	}
	if latest == nil {
		return 0
	}
	return latest.Duration(now)
}

// lastTask is the most recently updated unfinished task.
func lastTask(ctx context.Context, eng *lifecycle.Engine) (*model.Task, error) {
	tasks, err := eng.List(ctx, store.Filter{})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, &model.NotFoundError{}
	}
	return &tasks[0], nil
}

func (a *App) overdueTable() (*overdue.Table, error) {
	return overdue.NewTable(filepath.Join(a.Config.Directory, overdue.TableFile))
}

// warnOverdue reports tasks that went over their estimate since the last check.
func (a *App) warnOverdue(ctx context.Context, eng *lifecycle.Engine) {
	table, err := a.overdueTable()
	if err != nil {
		a.logger.Warn("could not load overdue table", slog.Any("err", err))
		return
	}
	tasks, err := eng.List(ctx, store.Filter{})
	if err != nil {
		a.logger.Warn("could not list tasks for the overdue check", slog.Any("err", err))
		return
	}
	for _, e := range table.Sweep(tasks, a.Now()) {
		a.print.Printf("%s %s is over its estimate: %s worked of %s\n", colors.Over.Render("!"),
			colors.Warning.Render(e.Name), util.FormatDuration(e.Worked), util.FormatDuration(e.Estimate))
	}
	if err := table.Save(); err != nil {
		a.logger.Warn("could not save overdue table", slog.Any("err", err))
	}
}
