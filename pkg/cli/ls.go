package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/hunt/pkg/colors"
	"github.com/harrisonrobin/hunt/pkg/model"
	"github.com/harrisonrobin/hunt/pkg/overdue"
	"github.com/harrisonrobin/hunt/pkg/store"
	"github.com/harrisonrobin/hunt/pkg/taskdoc"
	"github.com/harrisonrobin/hunt/pkg/util"
)

func newLsCmd(a *App) *cobra.Command {
	var (
		all        bool
		finished   bool
		active     bool
		over       bool
		startsWith string
		contains   string
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List tasks",
		Long: `List tasks with the time worked on them. Finished tasks are hidden unless --all or
--finished is given. Active tasks come first, then idle, then finished, most recently
touched first within each group.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.openEngine()
			if err != nil {
				return err
			}
			tasks, err := eng.List(cmd.Context(), store.Filter{
				IncludeFinished: all,
				OnlyFinished:    finished,
				ActiveOnly:      active,
				StartsWith:      startsWith,
				Contains:        contains,
			})
			if err != nil {
				return err
			}
			now := a.Now()
			if over {
				tasks = overdue.Filter(tasks, now)
			}
			if len(tasks) == 0 {
				a.print.Printf("%s\n", colors.Muted.Render("No tasks found"))
				return nil
			}
			sortForListing(tasks)
			a.print.Print(renderTable(tasks, now))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include finished tasks")
	cmd.Flags().BoolVarP(&finished, "finished", "f", false, "Only finished tasks")
	cmd.Flags().BoolVar(&active, "active", false, "Only the active task")
	cmd.Flags().BoolVar(&over, "over", false, "Only tasks over their estimate")
	cmd.Flags().StringVar(&startsWith, "starts-with", "", "Only tasks whose name starts with this")
	cmd.Flags().StringVar(&contains, "contains", "", "Only tasks whose name contains this")
	return cmd
}

func stateRank(s model.State) int {
	switch s {
	case model.Active:
		return 0
	case model.Idle:
		return 1
	}
	return 2
}

// sortForListing orders by state, then by last update, newest first.
func sortForListing(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := stateRank(tasks[i].State()), stateRank(tasks[j].State())
		if ri != rj {
			return ri < rj
		}
		return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
	})
}

var tableHeaders = []string{"NAME", "STATE", "WORKED", "ESTIMATE", "PROGRESS"}

func renderTable(tasks []model.Task, now time.Time) string {
	rows := make([][]string, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		worked := t.TotalWorked(now)
		progress := "-"
		if t.Estimate > 0 {
			progress = fmt.Sprintf("%d%%", int(worked*100/t.Estimate))
		}
		rows[i] = []string{t.Name, t.State().String(), util.FormatClock(worked), util.FormatDuration(t.Estimate), progress}
	}

	widths := make([]int, len(tableHeaders))
	for c, h := range tableHeaders {
		widths[c] = lipgloss.Width(h)
		for _, row := range rows {
			if w := lipgloss.Width(row[c]); w > widths[c] {
				widths[c] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string, style func(col int) lipgloss.Style) {
		for c, cell := range cells {
			if c > 0 {
				b.WriteString("  ")
			}
			s := style(c)
			if c < len(cells)-1 {
				s = s.Width(widths[c])
			}
			b.WriteString(s.Render(cell))
		}
		b.WriteByte('\n')
	}

	writeRow(tableHeaders, func(int) lipgloss.Style { return colors.Header })
	for i, row := range rows {
		t := &tasks[i]
		_, isOver := overdue.Over(t, now)
		writeRow(row, func(col int) lipgloss.Style {
			if col == len(row)-1 && isOver {
				return colors.Over
			}
			if col == 0 || col == 1 {
				return colors.ForState(t.State())
			}
			return colors.Idle
		})
	}
	return b.String()
}

func formatInterval(iv *model.Interval) string {
	if iv == nil {
		return ""
	}
	stop := taskdoc.OpenSentinel
	if iv.Stop != nil {
		stop = taskdoc.FormatTime(*iv.Stop)
	}
	return taskdoc.FormatTime(iv.Start) + " - " + stop
}

type dumpInterval struct {
	Start string `json:"start" yaml:"start"`
	Stop  string `json:"stop,omitempty" yaml:"stop,omitempty"`
}

type dumpTask struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	State       string         `json:"state" yaml:"state"`
	Estimate    string         `json:"estimate" yaml:"estimate"`
	Worked      string         `json:"worked" yaml:"worked"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   string         `json:"created_at" yaml:"created_at"`
	UpdatedAt   string         `json:"updated_at" yaml:"updated_at"`
	Intervals   []dumpInterval `json:"intervals" yaml:"intervals"`
}

func toDump(t *model.Task, now time.Time) dumpTask {
	d := dumpTask{
		ID:          t.ID,
		Name:        t.Name,
		State:       t.State().String(),
		Estimate:    util.FormatDuration(t.Estimate),
		Worked:      util.FormatDuration(t.TotalWorked(now)),
		Description: t.Description,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339),
		Intervals:   make([]dumpInterval, len(t.Intervals)),
	}
	for i, iv := range t.Intervals {
		d.Intervals[i].Start = iv.Start.Format(time.RFC3339)
		if iv.Stop != nil {
			d.Intervals[i].Stop = iv.Stop.Format(time.RFC3339)
		}
	}
	return d
}

func newDumpCmd(a *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write every task with its intervals as YAML or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "yaml" && format != "json" {
				return fmt.Errorf("invalid format '%s': must be 'yaml' or 'json'", format)
			}
			eng, err := a.openEngine()
			if err != nil {
				return err
			}
			tasks, err := eng.List(cmd.Context(), store.Filter{IncludeFinished: true})
			if err != nil {
				return err
			}
			sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })

			now := a.Now()
			out := make([]dumpTask, len(tasks))
			for i := range tasks {
				out[i] = toDump(&tasks[i], now)
			}

			var b strings.Builder
			if format == "json" {
				enc := json.NewEncoder(&b)
				enc.SetIndent("", "  ")
				if err := enc.Encode(out); err != nil {
					return fmt.Errorf("failed to encode tasks: %w", err)
				}
			} else {
				enc := yaml.NewEncoder(&b)
				enc.SetIndent(2)
				if err := enc.Encode(out); err != nil {
					return fmt.Errorf("failed to encode tasks: %w", err)
				}
				if err := enc.Close(); err != nil {
					return fmt.Errorf("failed to encode tasks: %w", err)
				}
			}
			a.print.Print(b.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")
	return cmd
}
