package model

import (
	"strings"
	"time"
)

// State is the lifecycle state of a task, derived from its intervals and finished flag.
type State int

const (
	Idle State = iota
	Active
	Finished
)

func (s State) String() string {
	switch s {
	case Active:
		return "Active"
	case Finished:
		return "Finished"
	default:
		return "Idle"
	}
}

// Interval is one contiguous span of work. A nil Stop means the interval is still open.
type Interval struct {
	Start time.Time  `json:"start" yaml:"start"`
	Stop  *time.Time `json:"stop,omitempty" yaml:"stop,omitempty"`
}

// Open reports whether the interval has not been stopped yet.
func (i Interval) Open() bool {
	return i.Stop == nil
}

// Duration returns the worked time of the interval, measuring open intervals up to now.
func (i Interval) Duration(now time.Time) time.Duration {
	end := now
	if i.Stop != nil {
		end = *i.Stop
	}
	if end.Before(i.Start) {
		return 0
	}
	return end.Sub(i.Start)
}

// Equal compares start and stop instants, ignoring locations.
func (i Interval) Equal(o Interval) bool {
	if !i.Start.Equal(o.Start) {
		return false
	}
	if i.Stop == nil || o.Stop == nil {
		return i.Stop == nil && o.Stop == nil
	}
	return i.Stop.Equal(*o.Stop)
}

// Task is a unit of work with a mandatory estimate and the log of intervals spent on it.
type Task struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Estimate    time.Duration `json:"estimate" yaml:"estimate"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Finished    bool          `json:"finished" yaml:"finished"`
	CreatedAt   time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" yaml:"updated_at"`
	Intervals   []Interval    `json:"intervals" yaml:"intervals"`
}

// State derives the lifecycle state.
func (t *Task) State() State {
	if t.Finished {
		return Finished
	}
	if _, ok := t.OpenInterval(); ok {
		return Active
	}
	return Idle
}

// OpenInterval returns the position of the open interval, if any.
func (t *Task) OpenInterval() (int, bool) {
	for i := len(t.Intervals) - 1; i >= 0; i-- {
		if t.Intervals[i].Open() {
			return i, true
		}
	}
	return -1, false
}

// TotalWorked sums closed intervals and the open one measured up to now.
func (t *Task) TotalWorked(now time.Time) time.Duration {
	var total time.Duration
	for _, iv := range t.Intervals {
		total += iv.Duration(now)
	}
	return total
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (t Task) Clone() Task {
	c := t
	if t.Intervals != nil {
		c.Intervals = make([]Interval, len(t.Intervals))
		for i, iv := range t.Intervals {
			c.Intervals[i] = Interval{Start: iv.Start}
			if iv.Stop != nil {
				stop := *iv.Stop
				c.Intervals[i].Stop = &stop
			}
		}
	}
	return c
}

// Validate checks the task level invariants and returns an *InvalidEditError naming the
// first one that does not hold.
func (t *Task) Validate() error {
	if t.Name == "" {
		return &InvalidEditError{Invariant: "name must not be empty"}
	}
	if t.Estimate < 0 {
		return &InvalidEditError{Invariant: "estimate must not be negative"}
	}
	open := -1
	for i, iv := range t.Intervals {
		if iv.Open() {
			if open >= 0 {
				return &InvalidEditError{Invariant: "at most one interval may be open",
					Position: i + 1}
			}
			open = i
			continue
		}
		if iv.Stop.Before(iv.Start) {
			return &InvalidEditError{Invariant: "interval stop must not be before its start",
				Position: i + 1}
		}
	}
	if t.Finished && open >= 0 {
		return &InvalidEditError{Invariant: "a finished task cannot have an open interval",
			Position: open + 1}
	}
	return nil
}

// ValidateName rejects names that cannot survive a render and parse cycle.
func ValidateName(name string) error {
	switch {
	case name == "":
		return &InvalidNameError{Name: name, Reason: "must not be empty"}
	case strings.TrimSpace(name) != name:
		return &InvalidNameError{Name: name, Reason: "must not start or end with whitespace"}
	case strings.ContainsAny(name, "\r\n"):
		return &InvalidNameError{Name: name, Reason: "must be a single line"}
	}
	return nil
}
