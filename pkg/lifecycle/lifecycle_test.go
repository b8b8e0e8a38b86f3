package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/harrisonrobin/hunt/pkg/model"
)

var t0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func TestTransitions(t *testing.T) {
	task := &model.Task{Name: "proj-x", Estimate: 2 * time.Hour}

	if err := Stop(task, t0); !errors.As(err, new(*model.NotActiveError)) {
		t.Fatalf("Expected *model.NotActiveError from idle task, got %v", err)
	}
	if err := Start(task, t0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := Start(task, t0); !errors.As(err, new(*model.AlreadyActiveError)) {
		t.Fatalf("Expected *model.AlreadyActiveError, got %v", err)
	}
	if err := Stop(task, t0.Add(90*time.Minute)); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := task.TotalWorked(t0.Add(5 * time.Hour)); got != 90*time.Minute {
		t.Errorf("Expected 1h30m worked, got %s", got)
	}
	if err := Restart(task); !errors.As(err, new(*model.NotFinishedError)) {
		t.Fatalf("Expected *model.NotFinishedError, got %v", err)
	}

	if err := Start(task, t0.Add(2*time.Hour)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	finishAt := t0.Add(3 * time.Hour)
	stopped, err := Finish(task, finishAt)
	if err != nil || !stopped {
		t.Fatalf("Expected Finish to stop the open interval, got %t, %v", stopped, err)
	}
	if !task.Intervals[1].Stop.Equal(finishAt) {
		t.Errorf("Expected interval closed at %v, got %v", finishAt, task.Intervals[1].Stop)
	}
	if task.State() != model.Finished {
		t.Errorf("Expected Finished, got %s", task.State())
	}
	if err := Start(task, finishAt); !errors.As(err, new(*model.AlreadyFinishedError)) {
		t.Errorf("Expected *model.AlreadyFinishedError, got %v", err)
	}

	again, err := Finish(task, finishAt.Add(time.Hour))
	if err != nil || again {
		t.Errorf("Expected finishing twice to be a no-op, got %t, %v", again, err)
	}
	if !task.Intervals[1].Stop.Equal(finishAt) {
		t.Errorf("Expected second finish to leave intervals alone")
	}

	if err := Restart(task); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if task.State() != model.Idle || len(task.Intervals) != 2 {
		t.Errorf("Expected idle with 2 intervals, got %s with %d", task.State(), len(task.Intervals))
	}
	if task.Estimate != 2*time.Hour {
		t.Errorf("Expected estimate untouched, got %s", task.Estimate)
	}
}

func TestStopNeverBeforeStart(t *testing.T) {
	task := &model.Task{Name: "proj-x"}
	if err := Start(task, t0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := Stop(task, t0.Add(-time.Hour)); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !task.Intervals[0].Stop.Equal(t0) {
		t.Errorf("Expected stop clamped to start %v, got %v", t0, task.Intervals[0].Stop)
	}
}

func TestSetEstimate(t *testing.T) {
	task := &model.Task{Name: "proj-x", Estimate: time.Hour}
	var estErr *model.InvalidEstimateError
	if err := SetEstimate(task, -time.Minute); !errors.As(err, &estErr) {
		t.Fatalf("Expected *model.InvalidEstimateError, got %v", err)
	}
	if task.Estimate != time.Hour {
		t.Errorf("Expected estimate unchanged after rejection, got %s", task.Estimate)
	}
	if err := SetEstimate(task, 0); err != nil || task.Estimate != 0 {
		t.Errorf("Expected zero estimate to be accepted, got %s, %v", task.Estimate, err)
	}
}

func TestParseFocusPolicy(t *testing.T) {
	for in, want := range map[string]FocusPolicy{"": AutoStop, "autostop": AutoStop, "REJECT": Reject} {
		got, err := ParseFocusPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseFocusPolicy(%q): expected %s, got %s, %v", in, want, got, err)
		}
	}
	if _, err := ParseFocusPolicy("sometimes"); err == nil {
		t.Errorf("Expected an error for an unknown policy")
	}
}
