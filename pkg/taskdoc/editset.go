package taskdoc

import (
	"time"

	"github.com/harrisonrobin/hunt/pkg/model"
)

// ChangeKind classifies what happened to an interval position during an edit.
type ChangeKind int

const (
	Unchanged ChangeKind = iota
	Modified
	Added
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Modified:
		return "modified"
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unchanged"
	}
}

// IntervalChange describes one interval position. Old is nil for added intervals and
// New is nil for removed ones.
type IntervalChange struct {
	Position int
	Kind     ChangeKind
	Old      *model.Interval
	New      *model.Interval
}

// EditSet is the full replacement state parsed from an edited task, plus the per position
// interval diff against the original.
type EditSet struct {
	Name        string
	Estimate    time.Duration
	Description string
	Finished    bool
	Intervals   []model.Interval
	Changes     []IntervalChange
}

// Apply returns a copy of t carrying the edited fields. t itself is not modified.
func (e *EditSet) Apply(t *model.Task) model.Task {
	out := t.Clone()
	out.Name = e.Name
	out.Estimate = e.Estimate
	out.Description = e.Description
	out.Finished = e.Finished
	out.Intervals = make([]model.Interval, 0, len(e.Intervals))
	for _, iv := range e.Intervals {
		c := model.Interval{Start: iv.Start}
		if iv.Stop != nil {
			stop := *iv.Stop
			c.Stop = &stop
		}
		out.Intervals = append(out.Intervals, c)
	}
	return out
}

// Changed reports whether applying the edit would alter t.
func (e *EditSet) Changed(t *model.Task) bool {
	if e.Name != t.Name || e.Estimate != t.Estimate || e.Description != t.Description || e.Finished != t.Finished {
		return true
	}
	if len(e.Intervals) != len(t.Intervals) {
		return true
	}
	for i := range e.Intervals {
		if !e.Intervals[i].Equal(t.Intervals[i]) {
			return true
		}
	}
	return false
}

// diffIntervals pairs intervals by position; intervals carry no identity of their own.
func diffIntervals(old, edited []model.Interval) []IntervalChange {
	n := len(old)
	if len(edited) > n {
		n = len(edited)
	}
	changes := make([]IntervalChange, 0, n)
	for i := 0; i < n; i++ {
		c := IntervalChange{Position: i + 1}
		if i < len(old) {
			o := old[i]
			c.Old = &o
		}
		if i < len(edited) {
			e := edited[i]
			c.New = &e
		}
		switch {
		case c.Old == nil:
			c.Kind = Added
		case c.New == nil:
			c.Kind = Removed
		case c.Old.Equal(*c.New):
			c.Kind = Unchanged
		default:
			c.Kind = Modified
		}
		changes = append(changes, c)
	}
	return changes
}
