// Package lifecycle holds the task state machine: Idle, Active and Finished, moved by
// workon, stop, finish, restart and estimate.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/hunt/pkg/model"
)

// FocusPolicy decides what workon does while another task is active.
type FocusPolicy int

const (
	// AutoStop closes the other task's open interval before starting the new one.
	AutoStop FocusPolicy = iota
	// Reject fails with *model.AlreadyActiveError.
	Reject
)

func (p FocusPolicy) String() string {
	if p == Reject {
		return "reject"
	}
	return "autostop"
}

// ParseFocusPolicy reads "autostop" or "reject".
func ParseFocusPolicy(s string) (FocusPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "autostop", "auto-stop", "auto":
		return AutoStop, nil
	case "reject":
		return Reject, nil
	}
	return AutoStop, fmt.Errorf("unknown focus policy %q, expected autostop or reject", s)
}

// The transitions below validate before they mutate: on error the task is unchanged.

// Start opens a new interval at now. Idle -> Active.
func Start(t *model.Task, now time.Time) error {
	switch t.State() {
	case model.Finished:
		return &model.AlreadyFinishedError{Name: t.Name}
	case model.Active:
		return &model.AlreadyActiveError{Name: t.Name}
	}
	t.Intervals = append(t.Intervals, model.Interval{Start: now})
	return nil
}

// Stop closes the open interval at now, or at its start if the clock is behind it.
// Active -> Idle.
func Stop(t *model.Task, now time.Time) error {
	i, ok := t.OpenInterval()
	if !ok {
		return &model.NotActiveError{Name: t.Name}
	}
	stop := now
	if stop.Before(t.Intervals[i].Start) {
		stop = t.Intervals[i].Start
	}
	t.Intervals[i].Stop = &stop
	return nil
}

// Finish marks the task finished, closing an open interval with the same timestamp.
// Finishing a finished task is a no-op. It reports whether an interval was closed.
func Finish(t *model.Task, now time.Time) (stopped bool, err error) {
	switch t.State() {
	case model.Finished:
		return false, nil
	case model.Active:
		if err := Stop(t, now); err != nil {
			return false, err
		}
		stopped = true
	}
	t.Finished = true
	return stopped, nil
}

// Restart reopens a finished task without touching its intervals. Finished -> Idle.
func Restart(t *model.Task) error {
	if t.State() != model.Finished {
		return &model.NotFinishedError{Name: t.Name}
	}
	t.Finished = false
	return nil
}

// SetEstimate replaces the estimate in any state.
func SetEstimate(t *model.Task, d time.Duration) error {
	if d < 0 {
		return &model.InvalidEstimateError{Estimate: d}
	}
	t.Estimate = d
	return nil
}
