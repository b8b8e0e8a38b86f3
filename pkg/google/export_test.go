package google

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/hunt/pkg/colors"
	"github.com/harrisonrobin/hunt/pkg/index"
	"github.com/harrisonrobin/hunt/pkg/model"
	"github.com/harrisonrobin/hunt/pkg/util"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

type fakeEvents struct {
	events  map[string]*calendar.Event
	nextID  int
	patches int
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{events: make(map[string]*calendar.Event)}
}

func (f *fakeEvents) Get(_ context.Context, eventID string) (*calendar.Event, error) {
	ev, ok := f.events[eventID]
	if !ok {
		return nil, &googleapi.Error{Code: http.StatusNotFound}
	}
	c := *ev
	return &c, nil
}

func (f *fakeEvents) Insert(_ context.Context, event *calendar.Event) (*calendar.Event, error) {
	f.nextID++
	c := *event
	c.Id = fmt.Sprintf("ev%d", f.nextID)
	f.events[c.Id] = &c
	return &c, nil
}

func (f *fakeEvents) Patch(_ context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	ev, ok := f.events[eventID]
	if !ok {
		return nil, &googleapi.Error{Code: http.StatusNotFound}
	}
	f.patches++
	if patch.Summary != "" {
		ev.Summary = patch.Summary
	}
	if patch.Description != "" {
		ev.Description = patch.Description
	}
	if patch.ColorId != "" {
		ev.ColorId = patch.ColorId
	}
	if patch.Start != nil {
		ev.Start = patch.Start
	}
	if patch.End != nil {
		ev.End = patch.End
	}
	if patch.ExtendedProperties != nil {
		ev.ExtendedProperties = patch.ExtendedProperties
	}
	c := *ev
	return &c, nil
}

func (f *fakeEvents) Delete(_ context.Context, eventID string) error {
	if _, ok := f.events[eventID]; !ok {
		return &googleapi.Error{Code: http.StatusGone}
	}
	delete(f.events, eventID)
	return nil
}

func (f *fakeEvents) ListByProperty(_ context.Context, key, value string) ([]*calendar.Event, error) {
	var out []*calendar.Event
	for _, ev := range f.events {
		if ev.ExtendedProperties != nil && ev.ExtendedProperties.Private[key] == value {
			c := *ev
			out = append(out, &c)
		}
	}
	return out, nil
}

var t0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func closedTask(id, name string, spans ...time.Duration) model.Task {
	task := model.Task{ID: id, Name: name, Estimate: 2 * time.Hour}
	start := t0
	for _, d := range spans {
		stop := start.Add(d)
		task.Intervals = append(task.Intervals, model.Interval{Start: start, Stop: &stop})
		start = stop.Add(time.Hour)
	}
	return task
}

func newTestExporter(t *testing.T, events EventService) *Exporter {
	t.Helper()
	dir := t.TempDir()
	idx, err := index.NewEventIndex(filepath.Join(dir, index.IndexFile))
	if err != nil {
		t.Fatalf("NewEventIndex: %v", err)
	}
	cc, err := colors.NewColorCache(filepath.Join(dir, colors.CacheFile))
	if err != nil {
		t.Fatalf("NewColorCache: %v", err)
	}
	return NewExporter(events, idx, cc, ExporterOptions{Now: func() time.Time { return t0.Add(24 * time.Hour) }})
}

func TestExporter_CreatesThenLeavesUnchanged(t *testing.T) {
	ctx := context.Background()
	events := newFakeEvents()
	x := newTestExporter(t, events)

	task := closedTask("task-a", "proj-x", 30*time.Minute, time.Hour)
	task.Intervals = append(task.Intervals, model.Interval{Start: t0.Add(5 * time.Hour)})

	res, err := x.ExportTask(ctx, &task)
	if err != nil {
		t.Fatalf("ExportTask: %v", err)
	}
	if res.Created != 2 || len(events.events) != 2 {
		t.Fatalf("Expected 2 events for the closed intervals, got %+v and %d events", res, len(events.events))
	}
	for _, ev := range events.events {
		if ev.ExtendedProperties.Private[util.PropTaskID] != "task-a" {
			t.Errorf("Expected events tagged with the task ID, got %+v", ev.ExtendedProperties.Private)
		}
	}

	again, err := x.ExportTask(ctx, &task)
	if err != nil {
		t.Fatalf("ExportTask: %v", err)
	}
	if again.Unchanged != 2 || again.Created != 0 || again.Updated != 0 || events.patches != 0 {
		t.Errorf("Expected an idempotent second export, got %+v with %d patches", again, events.patches)
	}
}

func TestExporter_PatchesAndDeletes(t *testing.T) {
	ctx := context.Background()
	events := newFakeEvents()
	x := newTestExporter(t, events)

	task := closedTask("task-a", "proj-x", 30*time.Minute, time.Hour)
	if _, err := x.ExportTask(ctx, &task); err != nil {
		t.Fatalf("ExportTask: %v", err)
	}

	// Rename, finish and drop the second interval.
	task.Name = "proj-y"
	task.Finished = true
	task.Intervals = task.Intervals[:1]
	res, err := x.ExportTask(ctx, &task)
	if err != nil {
		t.Fatalf("ExportTask: %v", err)
	}
	if res.Updated != 1 || res.Deleted != 1 {
		t.Errorf("Expected 1 update and 1 delete, got %+v", res)
	}
	if len(events.events) != 1 {
		t.Fatalf("Expected 1 event left, got %d", len(events.events))
	}
	for _, ev := range events.events {
		if ev.Summary != "✓ proj-y" {
			t.Errorf("Expected patched summary, got %q", ev.Summary)
		}
	}
	if keys := x.index.ForTask("task-a"); len(keys) != 1 {
		t.Errorf("Expected 1 indexed interval, got %v", keys)
	}
}

func TestExporter_RecreatesEventsDeletedByHand(t *testing.T) {
	ctx := context.Background()
	events := newFakeEvents()
	x := newTestExporter(t, events)

	task := closedTask("task-a", "proj-x", time.Hour)
	if _, err := x.ExportTask(ctx, &task); err != nil {
		t.Fatalf("ExportTask: %v", err)
	}
	for id := range events.events {
		delete(events.events, id)
	}

	res, err := x.ExportTask(ctx, &task)
	if err != nil {
		t.Fatalf("ExportTask: %v", err)
	}
	if res.Created != 1 || len(events.events) != 1 {
		t.Errorf("Expected the event to be recreated, got %+v", res)
	}
}

func TestExporter_ExportTasksPrunesRemovedTasks(t *testing.T) {
	ctx := context.Background()
	events := newFakeEvents()
	x := newTestExporter(t, events)

	a := closedTask("task-a", "alpha", time.Hour)
	b := closedTask("task-b", "beta", time.Hour, time.Hour)
	if _, err := x.ExportTasks(ctx, []model.Task{a, b}, true); err != nil {
		t.Fatalf("ExportTasks: %v", err)
	}
	if len(events.events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events.events))
	}

	// Exporting a subset leaves the others alone.
	if _, err := x.ExportTasks(ctx, []model.Task{a}, false); err != nil {
		t.Fatalf("ExportTasks: %v", err)
	}
	if len(events.events) != 3 {
		t.Errorf("Expected a partial export to prune nothing, got %d events", len(events.events))
	}

	res, err := x.ExportTasks(ctx, []model.Task{a}, true)
	if err != nil {
		t.Fatalf("ExportTasks: %v", err)
	}
	if res.Deleted != 2 || len(events.events) != 1 {
		t.Errorf("Expected beta's events to be pruned, got %+v and %d events", res, len(events.events))
	}
	for _, ev := range events.events {
		if !strings.HasSuffix(ev.Summary, "alpha") {
			t.Errorf("Expected only alpha to remain, got %q", ev.Summary)
		}
	}
	if ids := x.index.TaskIDs(); len(ids) != 1 || ids[0] != "task-a" {
		t.Errorf("Expected only task-a indexed, got %v", ids)
	}

	if err := x.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestExporter_RestoresStrippedProperties(t *testing.T) {
	ctx := context.Background()
	events := newFakeEvents()
	x := newTestExporter(t, events)

	task := closedTask("task-a", "proj-x", time.Hour)
	if _, err := x.ExportTask(ctx, &task); err != nil {
		t.Fatalf("ExportTask: %v", err)
	}
	for _, ev := range events.events {
		ev.ExtendedProperties = nil
	}

	res, err := x.ExportTask(ctx, &task)
	if err != nil {
		t.Fatalf("ExportTask: %v", err)
	}
	if res.Updated != 1 || res.Created != 0 || len(events.events) != 1 {
		t.Fatalf("Expected the stripped event to be patched in place, got %+v and %d events", res, len(events.events))
	}
	for _, ev := range events.events {
		if id, ok := util.GetTaskIDFromEvent(ev); !ok || id != "task-a" {
			t.Errorf("Expected task-a, got %q", id)
		}
		if util.IntervalKeyOf(ev) == "" {
			t.Errorf("Expected the interval key to be restored, got %+v", ev.ExtendedProperties)
		}
	}
}

func TestExporter_IgnoresRepurposedEvents(t *testing.T) {
	ctx := context.Background()
	events := newFakeEvents()
	x := newTestExporter(t, events)

	task := closedTask("task-a", "proj-x", time.Hour)
	if _, err := x.ExportTask(ctx, &task); err != nil {
		t.Fatalf("ExportTask: %v", err)
	}
	for _, ev := range events.events {
		ev.ExtendedProperties = nil
		ev.Summary = "Lunch"
		ev.Description = "with the team"
	}

	res, err := x.ExportTask(ctx, &task)
	if err != nil {
		t.Fatalf("ExportTask: %v", err)
	}
	if res.Created != 1 || len(events.events) != 2 {
		t.Fatalf("Expected a new event next to the repurposed one, got %+v and %d events", res, len(events.events))
	}
	lunch := 0
	for _, ev := range events.events {
		if ev.Summary == "Lunch" {
			lunch++
		}
	}
	if lunch != 1 {
		t.Errorf("Expected the repurposed event to be left alone, got %d", lunch)
	}
}
