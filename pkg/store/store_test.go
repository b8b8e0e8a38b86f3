package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrisonrobin/hunt/pkg/model"
)

func newTestStore(t *testing.T, opts Options) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hunt-test.db")
	store, err := NewSQLiteStore(path, opts)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var base = time.Unix(1709539200, 0)

func testTask(id, name string) *model.Task {
	stop := base.Add(90 * time.Minute)
	return &model.Task{
		ID:          id,
		Name:        name,
		Estimate:    2 * time.Hour,
		Description: "a description",
		CreatedAt:   base,
		UpdatedAt:   base,
		Intervals: []model.Interval{
			{Start: base, Stop: &stop},
			{Start: base.Add(2 * time.Hour)},
		},
	}
}

func TestSQLiteStore_PutAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	task := testTask("id-1", "proj-x")
	if err := store.Put(ctx, task); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "proj-x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "id-1" || got.Estimate != 2*time.Hour || got.Description != "a description" {
		t.Errorf("Expected stored fields back, got %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("Expected CreatedAt %v, got %v", base, got.CreatedAt)
	}
	if len(got.Intervals) != 2 {
		t.Fatalf("Expected 2 intervals, got %d", len(got.Intervals))
	}
	for i := range task.Intervals {
		if !got.Intervals[i].Equal(task.Intervals[i]) {
			t.Errorf("Interval %d: expected %+v, got %+v", i, task.Intervals[i], got.Intervals[i])
		}
	}

	byID, err := store.GetByID(ctx, "id-1")
	if err != nil || byID.Name != "proj-x" {
		t.Errorf("Expected GetByID to find proj-x, got %v, %v", byID, err)
	}
}

func TestSQLiteStore_PutReplacesIntervals(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	task := testTask("id-1", "proj-x")
	if err := store.Put(ctx, task); err != nil {
		t.Fatalf("Put: %v", err)
	}
	task.Intervals = task.Intervals[:1]
	task.Name = "renamed"
	task.Finished = true
	if err := store.Put(ctx, task); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := store.Get(ctx, "proj-x"); !model.IsNotFound(err) {
		t.Errorf("Expected old name to be gone, got %v", err)
	}
	got, err := store.Get(ctx, "renamed")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Intervals) != 1 || !got.Finished {
		t.Errorf("Expected 1 interval and finished, got %d intervals, finished=%t", len(got.Intervals), got.Finished)
	}
}

func TestSQLiteStore_NotFoundAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	var nf *model.NotFoundError
	if _, err := store.Get(ctx, "missing"); !errors.As(err, &nf) {
		t.Errorf("Expected *model.NotFoundError, got %v", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.As(err, &nf) {
		t.Errorf("Expected *model.NotFoundError from Delete, got %v", err)
	}

	if err := store.Put(ctx, testTask("id-1", "proj-x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, "proj-x"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "proj-x"); !model.IsNotFound(err) {
		t.Errorf("Expected task to be deleted, got %v", err)
	}
	var orphans int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM intervals`).Scan(&orphans); err != nil {
		t.Fatalf("count intervals: %v", err)
	}
	if orphans != 0 {
		t.Errorf("Expected intervals to be deleted with their task, found %d", orphans)
	}
}

func TestSQLiteStore_List(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	active := testTask("id-1", "Write report")
	idle := testTask("id-2", "write tests")
	idle.Intervals = idle.Intervals[:1]
	done := testTask("id-3", "review")
	done.Intervals = done.Intervals[:1]
	done.Finished = true
	for _, task := range []*model.Task{active, idle, done} {
		if err := store.Put(ctx, task); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"default excludes finished", Filter{}, 2},
		{"all", Filter{IncludeFinished: true}, 3},
		{"only finished", Filter{OnlyFinished: true}, 1},
		{"active", Filter{ActiveOnly: true}, 1},
		{"prefix is case sensitive", Filter{StartsWith: "write"}, 1},
		{"contains", Filter{Contains: "e", IncludeFinished: true}, 3},
		{"contains is case sensitive", Filter{Contains: "Write"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Expected %d tasks, got %d", tt.want, len(got))
			}
		})
	}

	list, err := store.List(ctx, Filter{ActiveOnly: true})
	if err != nil || len(list) != 1 {
		t.Fatalf("List active: %v, %d", err, len(list))
	}
	if len(list[0].Intervals) != 2 {
		t.Errorf("Expected listed tasks to carry intervals, got %d", len(list[0].Intervals))
	}
}

func TestSQLiteStore_IgnoreCase(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{IgnoreCase: true})

	if err := store.Put(ctx, testTask("id-1", "Write report")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := store.Get(ctx, "write REPORT"); err != nil {
		t.Errorf("Expected case-insensitive Get to succeed, got %v", err)
	}
	got, err := store.List(ctx, Filter{StartsWith: "WRITE"})
	if err != nil || len(got) != 1 {
		t.Errorf("Expected case-insensitive prefix match, got %d, %v", len(got), err)
	}
}

func TestSQLiteStore_UpdateRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, Options{})

	boom := errors.New("boom")
	err := store.Update(ctx, func(r Repository) error {
		if err := r.Put(ctx, testTask("id-1", "proj-x")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if _, err := store.Get(ctx, "proj-x"); !model.IsNotFound(err) {
		t.Errorf("Expected rolled back write to be invisible, got %v", err)
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "hunt")
	store, err := NewSQLiteStore(filepath.Join(dir, "hunt.db"), Options{})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Expected database directory to exist: %v", err)
	}
}
