package util

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/harrisonrobin/hunt/pkg/model"
	"github.com/harrisonrobin/hunt/pkg/overdue"
	"google.golang.org/api/calendar/v3"
)

// Private extended properties that tie a calendar event to the interval it publishes.
const (
	PropTaskID   = "hunt_id"
	PropInterval = "hunt_interval"
)

var taskIDRegex = regexp.MustCompile(`(?m)^ID: (\S+)$`)

// IntervalKeys returns the export key of every closed interval of t, by position. Open
// intervals get an empty key. Intervals sharing a start are told apart by a suffix.
func IntervalKeys(t *model.Task) []string {
	keys := make([]string, len(t.Intervals))
	seen := make(map[string]int)
	for i, iv := range t.Intervals {
		if iv.Open() {
			continue
		}
		key := t.ID + "/" + iv.Start.UTC().Format(time.RFC3339)
		if n := seen[key]; n > 0 {
			keys[i] = fmt.Sprintf("%s#%d", key, n)
		} else {
			keys[i] = key
		}
		seen[key]++
	}
	return keys
}

// TaskIDFromKey returns the task part of an interval key.
func TaskIDFromKey(key string) string {
	id, _, _ := strings.Cut(key, "/")
	return id
}

// EventNeedsUpdate returns a patch event if the published fields of the existing event differ
// from the target event (newly converted), or nil when they match.
func EventNeedsUpdate(existingEvent *calendar.Event, targetEvent *calendar.Event) (*calendar.Event, error) {
	patch := &calendar.Event{}
	needsUpdate := false

	if existingEvent.Summary != targetEvent.Summary {
		patch.Summary = targetEvent.Summary
		needsUpdate = true
	}

	if existingEvent.Description != targetEvent.Description {
		patch.Description = targetEvent.Description
		needsUpdate = true
	}

	if existingEvent.ColorId != targetEvent.ColorId {
		patch.ColorId = targetEvent.ColorId
		needsUpdate = true
	}

	if IntervalKeyOf(existingEvent) != IntervalKeyOf(targetEvent) {
		patch.ExtendedProperties = targetEvent.ExtendedProperties
		needsUpdate = true
	}

	if existingEvent.Start == nil || existingEvent.End == nil {
		patch.Start = targetEvent.Start
		patch.End = targetEvent.End
		return patch, nil
	}
	existingStartTime, err := time.Parse(time.RFC3339, existingEvent.Start.DateTime)
	if err != nil {
		return nil, err
	}
	targetStartTime, err := time.Parse(time.RFC3339, targetEvent.Start.DateTime)
	if err != nil {
		return nil, err
	}
	existingEndTime, err := time.Parse(time.RFC3339, existingEvent.End.DateTime)
	if err != nil {
		return nil, err
	}
	targetEndTime, err := time.Parse(time.RFC3339, targetEvent.End.DateTime)
	if err != nil {
		return nil, err
	}

	if !existingStartTime.Equal(targetStartTime) || !existingEndTime.Equal(targetEndTime) {
		patch.Start = targetEvent.Start
		patch.End = targetEvent.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch, nil
	}
	return nil, nil
}

// ConvertIntervalToCalendarEvent builds the event publishing the closed interval at pos.
func ConvertIntervalToCalendarEvent(task *model.Task, pos int, colorID string, now time.Time) (*calendar.Event, error) {
	if task == nil {
		return nil, fmt.Errorf("could not convert nil Task")
	}
	if pos < 0 || pos >= len(task.Intervals) {
		return nil, fmt.Errorf("task %q has no interval %d", task.Name, pos+1)
	}
	iv := task.Intervals[pos]
	if iv.Open() {
		return nil, fmt.Errorf("interval %d of task %q is still open", pos+1, task.Name)
	}

	over, isOver := overdue.Over(task, now)

	prefix := ""
	if task.Finished {
		prefix = "✓"
	} else if isOver {
		prefix = "!"
	}
	eventSummary := task.Name
	if prefix != "" {
		eventSummary = fmt.Sprintf("%s %s", prefix, task.Name)
	}

	var descBuilder strings.Builder
	if task.Description != "" {
		descBuilder.WriteString(task.Description)
		descBuilder.WriteString("\n\n")
	}

	status := "in progress"
	if task.Finished {
		status = "finished"
	}
	descBuilder.WriteString(fmt.Sprintf("Status: %s\n", status))
	descBuilder.WriteString(fmt.Sprintf("ID: %s\n", task.ID))

	spent := task.TotalWorked(now)
	descBuilder.WriteString("\nAccounting:\n")
	if task.Estimate > 0 {
		descBuilder.WriteString(fmt.Sprintf("• estimated: %s\n", FormatDuration(task.Estimate)))
	}
	descBuilder.WriteString(fmt.Sprintf("• spent: %s\n", FormatDuration(spent)))
	if task.Estimate > 0 {
		if isOver {
			descBuilder.WriteString(fmt.Sprintf("• over estimate by: %s\n", FormatDuration(over)))
		} else if under := task.Estimate - spent; under > 0 {
			descBuilder.WriteString(fmt.Sprintf("• under estimate by: %s\n", FormatDuration(under)))
		}
	}
	descBuilder.WriteString(fmt.Sprintf("• interval: %d of %d (%s)\n", pos+1, len(task.Intervals), FormatDuration(iv.Duration(now))))

	event := &calendar.Event{
		Summary: eventSummary,
		ColorId: colorID,
		Start: &calendar.EventDateTime{
			DateTime: iv.Start.UTC().Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: iv.Stop.UTC().Format(time.RFC3339),
		},
		Description: descBuilder.String(),
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				PropTaskID:   task.ID,
				PropInterval: IntervalKeys(task)[pos],
			},
		},
	}

	return event, nil
}

// GetTaskIDFromEvent returns the task ID an event was published for, from its private
// properties or, for events edited by hand, from the description.
func GetTaskIDFromEvent(event *calendar.Event) (string, bool) {
	if event.ExtendedProperties != nil {
		if id := event.ExtendedProperties.Private[PropTaskID]; id != "" {
			return id, true
		}
	}
	matches := taskIDRegex.FindStringSubmatch(event.Description)
	if len(matches) > 1 {
		return matches[1], true
	}
	return "", false
}

// IntervalKeyOf returns the interval key stored on an event.
func IntervalKeyOf(event *calendar.Event) string {
	if event.ExtendedProperties == nil {
		return ""
	}
	return event.ExtendedProperties.Private[PropInterval]
}
