package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/hunt/pkg/colors"
	"github.com/harrisonrobin/hunt/pkg/taskdoc"
)

func newEditCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit [NAME...]",
		Short: "Edit a task in $EDITOR, the active one by default",
		Long: `Open the task as text in the configured editor. Fields and intervals can be changed,
added or removed; the edit is applied only if the saved text parses and the task stays
consistent. Nothing is written when the editor exits with an error.`,
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

			text, err := a.NewEditor(a.Config.Editor).Edit(ctx, taskdoc.Render(task))
			if err != nil {
				return err
			}
			edit, err := taskdoc.Parse(text, task)
			if err != nil {
				return err
			}
			res, err := eng.ApplyEdit(ctx, task, edit)
			if err != nil {
				return err
			}
			if !res.Changed {
				a.print.Printf("%s\n", colors.Muted.Render("No changes to "+task.Name))
				return nil
			}

			if res.Stopped != nil {
				a.print.Printf("Stopped working on %s\n", colors.Idle.Render(res.Stopped.Name))
			}
			a.print.Printf("Updated %s\n", colors.ForState(res.Task.State()).Render(res.Task.Name))
			for _, c := range edit.Changes {
				switch c.Kind {
				case taskdoc.Added:
					a.print.Printf("  interval %d added: %s\n", c.Position, formatInterval(c.New))
				case taskdoc.Removed:
					a.print.Printf("  interval %d removed: %s\n", c.Position, formatInterval(c.Old))
				case taskdoc.Modified:
					a.print.Printf("  interval %d changed: %s -> %s\n", c.Position, formatInterval(c.Old), formatInterval(c.New))
				}
			}
			a.warnOverdue(ctx, eng)
			return nil
		},
	}
}

func newShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show [NAME...]",
		Short: "Print a task as editable text, the active one by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.openEngine()
			if err != nil {
				return err
			}
			task, err := eng.Resolve(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			a.print.Print(taskdoc.Render(task))
			return nil
		},
	}
}
