package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harrisonrobin/hunt/pkg/colors"
	"github.com/harrisonrobin/hunt/pkg/index"
	"github.com/harrisonrobin/hunt/pkg/model"
	"github.com/harrisonrobin/hunt/pkg/util"
	"google.golang.org/api/calendar/v3"
)

// ExportResult counts what an export did to the calendar.
type ExportResult struct {
	Created   int
	Updated   int
	Unchanged int
	Deleted   int
}

func (r *ExportResult) add(o ExportResult) {
	r.Created += o.Created
	r.Updated += o.Updated
	r.Unchanged += o.Unchanged
	r.Deleted += o.Deleted
}

type ExporterOptions struct {
	Now    func() time.Time
	Logger *slog.Logger
}

// Exporter publishes each closed interval of a task as one event. The calendar is only
// written to: events are matched by their private properties and patched when they drift.
type Exporter struct {
	events EventService
	index  *index.EventIndex
	colors *colors.ColorCache
	now    func() time.Time
	logger *slog.Logger
}

func NewExporter(events EventService, idx *index.EventIndex, cc *colors.ColorCache, opts ExporterOptions) *Exporter {
	x := &Exporter{
		events: events,
		index:  idx,
		colors: cc,
		now:    opts.Now,
		logger: opts.Logger,
	}
	if x.now == nil {
		x.now = time.Now
	}
	if x.logger == nil {
		x.logger = slog.Default()
	}
	return x
}

// ExportTasks exports every task and removes the events of tasks that no longer exist.
// When all is false, only the given tasks are exported and nothing is pruned.
func (x *Exporter) ExportTasks(ctx context.Context, tasks []model.Task, all bool) (ExportResult, error) {
	var total ExportResult
	live := make(map[string]bool, len(tasks))
	var errs []error
	for i := range tasks {
		live[tasks[i].ID] = true
		res, err := x.ExportTask(ctx, &tasks[i])
		total.add(res)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if all {
		res, err := x.Prune(ctx, live)
		total.add(res)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// ExportTask creates, patches and deletes the events of one task so they match its closed
// intervals.
func (x *Exporter) ExportTask(ctx context.Context, task *model.Task) (ExportResult, error) {
	var res ExportResult
	now := x.now()

	published, err := x.events.ListByProperty(ctx, util.PropTaskID, task.ID)
	if err != nil {
		return res, fmt.Errorf("error searching for events of %q: %w", task.Name, err)
	}
	byKey := make(map[string]*calendar.Event)
	stale := make(map[string]string) // event ID -> interval key
	for _, ev := range published {
		key := util.IntervalKeyOf(ev)
		if key == "" || byKey[key] != nil {
			stale[ev.Id] = key
			continue
		}
		byKey[key] = ev
	}

	colorID := x.colors.ColorID(task.ID)
	wanted := make(map[string]bool)
	for pos, key := range util.IntervalKeys(task) {
		if key == "" {
			continue
		}
		wanted[key] = true

		target, err := util.ConvertIntervalToCalendarEvent(task, pos, colorID, now)
		if err != nil {
			return res, err
		}

		existing := byKey[key]
		if existing == nil {
			existing = x.fromIndex(ctx, key)
		}
		if existing == nil {
			created, err := x.events.Insert(ctx, target)
			if err != nil {
				return res, fmt.Errorf("error creating event for %q: %w", task.Name, err)
			}
			x.index.Set(key, created.Id)
			res.Created++
			continue
		}

		patch, err := util.EventNeedsUpdate(existing, target)
		if err != nil {
			x.logger.Warn("could not compare interval with its calendar event", slog.String("event", existing.Id), slog.Any("err", err))
			patch = target
		}
		if patch == nil {
			x.index.Set(key, existing.Id)
			res.Unchanged++
			continue
		}
		updated, err := x.events.Patch(ctx, existing.Id, patch)
		if err != nil {
			return res, fmt.Errorf("error patching event for %q: %w", task.Name, err)
		}
		x.index.Set(key, updated.Id)
		res.Updated++
	}

	for key, ev := range byKey {
		if !wanted[key] {
			stale[ev.Id] = key
		}
	}
	for _, key := range x.index.ForTask(task.ID) {
		if !wanted[key] {
			stale[x.index.Get(key)] = key
		}
	}
	deleted, err := x.deleteEvents(ctx, stale)
	res.Deleted += deleted
	return res, err
}

// Prune deletes the events of every indexed task not in live.
func (x *Exporter) Prune(ctx context.Context, live map[string]bool) (ExportResult, error) {
	var res ExportResult
	for _, taskID := range x.index.TaskIDs() {
		if live[taskID] {
			continue
		}
		stale := make(map[string]string)
		published, err := x.events.ListByProperty(ctx, util.PropTaskID, taskID)
		if err != nil {
			return res, fmt.Errorf("error searching for events of removed task %s: %w", taskID, err)
		}
		for _, ev := range published {
			stale[ev.Id] = util.IntervalKeyOf(ev)
		}
		for _, key := range x.index.ForTask(taskID) {
			stale[x.index.Get(key)] = key
		}
		deleted, err := x.deleteEvents(ctx, stale)
		res.Deleted += deleted
		if err != nil {
			return res, err
		}
		x.colors.Release(taskID)
	}
	return res, nil
}

// Save persists the event index and color assignments.
func (x *Exporter) Save() error {
	return errors.Join(x.index.Save(), x.colors.Save())
}

// fromIndex looks up an event the calendar search did not return, typically one whose
// private properties were removed by hand.
func (x *Exporter) fromIndex(ctx context.Context, key string) *calendar.Event {
	eventID := x.index.Get(key)
	if eventID == "" {
		return nil
	}
	ev, err := x.events.Get(ctx, eventID)
	if err != nil || ev.Status == "cancelled" {
		if err != nil && !IsGone(err) {
			x.logger.Warn("could not fetch indexed event", slog.String("event", eventID), slog.Any("err", err))
		}
		x.index.Remove(key)
		return nil
	}
	// An event stripped of its properties still names its task in the description.
	if owner, ok := util.GetTaskIDFromEvent(ev); !ok || owner != util.TaskIDFromKey(key) {
		x.logger.Warn("indexed event no longer belongs to its task, publishing a new one",
			slog.String("event", eventID), slog.String("interval", key))
		x.index.Remove(key)
		return nil
	}
	return ev
}

func (x *Exporter) deleteEvents(ctx context.Context, stale map[string]string) (int, error) {
	deleted := 0
	for eventID, key := range stale {
		if eventID != "" {
			err := x.events.Delete(ctx, eventID)
			if err != nil && !IsGone(err) {
				return deleted, fmt.Errorf("error deleting event %s: %w", eventID, err)
			}
			if err == nil {
				deleted++
			}
			x.logger.Debug("deleted event", slog.String("event", eventID), slog.String("interval", key))
		}
		if key != "" && x.index.Get(key) == eventID {
			x.index.Remove(key)
		}
	}
	return deleted, nil
}
