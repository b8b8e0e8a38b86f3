package overdue

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/harrisonrobin/hunt/pkg/model"
)

var t0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func worked(id, name string, estimate, spent time.Duration) model.Task {
	stop := t0.Add(spent)
	return model.Task{
		ID:        id,
		Name:      name,
		Estimate:  estimate,
		Intervals: []model.Interval{{Start: t0, Stop: &stop}},
	}
}

func TestOver(t *testing.T) {
	tests := []struct {
		name     string
		task     model.Task
		wantOver time.Duration
		wantOK   bool
	}{
		{"under", worked("1", "a", 2*time.Hour, time.Hour), 0, false},
		{"exactly at estimate", worked("2", "b", time.Hour, time.Hour), 0, false},
		{"over", worked("3", "c", time.Hour, 90*time.Minute), 30 * time.Minute, true},
		{"no estimate", worked("4", "d", 0, 10*time.Hour), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			over, ok := Over(&tt.task, t0.Add(24*time.Hour))
			if ok != tt.wantOK || (ok && over != tt.wantOver) {
				t.Errorf("Expected %s/%t, got %s/%t", tt.wantOver, tt.wantOK, over, ok)
			}
		})
	}
}

func TestOver_CountsOpenInterval(t *testing.T) {
	task := model.Task{ID: "1", Name: "a", Estimate: time.Hour, Intervals: []model.Interval{{Start: t0}}}
	if _, ok := Over(&task, t0.Add(30*time.Minute)); ok {
		t.Errorf("Expected not over after 30m")
	}
	if over, ok := Over(&task, t0.Add(75*time.Minute)); !ok || over != 15*time.Minute {
		t.Errorf("Expected 15m over, got %s/%t", over, ok)
	}
}

func TestTable_SweepReportsOnce(t *testing.T) {
	table, err := NewTable(filepath.Join(t.TempDir(), TableFile))
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	now := t0.Add(24 * time.Hour)
	tasks := []model.Task{
		worked("1", "beta", time.Hour, 2*time.Hour),
		worked("2", "alpha", time.Hour, 3*time.Hour),
		worked("3", "gamma", 5*time.Hour, time.Hour),
	}

	crossed := table.Sweep(tasks, now)
	if len(crossed) != 2 || crossed[0].Name != "alpha" || crossed[1].Name != "beta" {
		t.Fatalf("Expected alpha and beta, got %+v", crossed)
	}
	if crossed[0].Worked != 3*time.Hour {
		t.Errorf("Expected 3h worked, got %s", crossed[0].Worked)
	}
	if again := table.Sweep(tasks, now); len(again) != 0 {
		t.Errorf("Expected nothing new on the second sweep, got %+v", again)
	}

	if err := table.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reloaded, err := NewTable(table.Path)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if len(reloaded.Entries) != 2 {
		t.Errorf("Expected 2 persisted entries, got %d", len(reloaded.Entries))
	}

	// Raising the estimate clears the entry, and a later crossing is reported again.
	tasks[0].Estimate = 4 * time.Hour
	if got := reloaded.Sweep(tasks, now); len(got) != 0 {
		t.Errorf("Expected nothing new, got %+v", got)
	}
	if _, ok := reloaded.Entries["1"]; ok {
		t.Errorf("Expected beta to be forgotten once back under estimate")
	}
	tasks[0].Estimate = time.Hour
	if got := reloaded.Sweep(tasks, now); len(got) != 1 || got[0].Name != "beta" {
		t.Errorf("Expected beta to be reported again, got %+v", got)
	}
}

func TestFilter(t *testing.T) {
	tasks := []model.Task{
		worked("1", "a", time.Hour, 2*time.Hour),
		worked("2", "b", 3*time.Hour, time.Hour),
	}
	got := Filter(tasks, t0.Add(24*time.Hour))
	if len(got) != 1 || got[0].Name != "a" {
		t.Errorf("Expected only a, got %+v", got)
	}
}
