// Package overdue detects tasks whose worked time exceeds their estimate and remembers which
// ones have already been reported.
package overdue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/harrisonrobin/hunt/pkg/model"
)

// TableFile is the file name of the table inside the data directory.
const TableFile = "overdue.json"

type Entry struct {
	TaskID   string        `json:"task_id"`
	Name     string        `json:"name"`
	Estimate time.Duration `json:"estimate"`
	Worked   time.Duration `json:"worked"`
	Since    time.Time     `json:"since"`
}

// Over returns the time worked beyond the estimate. A zero estimate means no estimate, so
// such a task is never over.
func Over(t *model.Task, now time.Time) (time.Duration, bool) {
	if t.Estimate <= 0 {
		return 0, false
	}
	over := t.TotalWorked(now) - t.Estimate
	return over, over > 0
}

// Table records tasks that went over their estimate, so each crossing is reported once.
type Table struct {
	Entries map[string]Entry `json:"entries"`
	Path    string           `json:"-"`
	dirty   bool
}

func NewTable(path string) (*Table, error) {
	t := &Table{
		Path:    path,
		Entries: make(map[string]Entry),
	}

	if _, err := os.Stat(path); err == nil {
		if err := t.Load(); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *Table) Load() error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(t); err != nil {
		return err
	}
	if t.Entries == nil {
		t.Entries = make(map[string]Entry)
	}
	return nil
}

func (t *Table) Save() error {
	if !t.dirty {
		return nil
	}
	dir := filepath.Dir(t.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	f, err := os.Create(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(t)
	if err == nil {
		t.dirty = false
	}
	return err
}

func (t *Table) Remove(taskID string) {
	if _, exists := t.Entries[taskID]; exists {
		delete(t.Entries, taskID)
		t.dirty = true
	}
}

// Sweep checks tasks against their estimates and returns the ones that crossed it since the
// last sweep. Tasks back under their estimate (restarted with a larger one, or edited) are
// forgotten so a later crossing is reported again.
func (t *Table) Sweep(tasks []model.Task, now time.Time) []Entry {
	var crossed []Entry
	for i := range tasks {
		task := &tasks[i]
		over, ok := Over(task, now)
		if !ok {
			t.Remove(task.ID)
			continue
		}
		if _, seen := t.Entries[task.ID]; seen {
			continue
		}
		e := Entry{
			TaskID:   task.ID,
			Name:     task.Name,
			Estimate: task.Estimate,
			Worked:   task.Estimate + over,
			Since:    now,
		}
		t.Entries[task.ID] = e
		t.dirty = true
		crossed = append(crossed, e)
	}
	sort.Slice(crossed, func(i, j int) bool { return crossed[i].Name < crossed[j].Name })
	return crossed
}

// Filter returns the tasks that are over their estimate.
func Filter(tasks []model.Task, now time.Time) []model.Task {
	var out []model.Task
	for _, task := range tasks {
		if _, ok := Over(&task, now); ok {
			out = append(out, task)
		}
	}
	return out
}
