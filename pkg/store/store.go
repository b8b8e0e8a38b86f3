package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrisonrobin/hunt/pkg/model"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	estimate    INTEGER NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	finished    INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS intervals (
	task_id  TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	start    INTEGER NOT NULL,
	stop     INTEGER,
	PRIMARY KEY (task_id, position)
);
`

// Filter narrows List results. The zero value lists unfinished tasks.
type Filter struct {
	IncludeFinished bool
	OnlyFinished    bool
	ActiveOnly      bool
	StartsWith      string
	Contains        string
}

// Repository is the keyed task storage the lifecycle engine works against.
type Repository interface {
	Get(ctx context.Context, name string) (*model.Task, error)
	GetByID(ctx context.Context, id string) (*model.Task, error)
	List(ctx context.Context, f Filter) ([]model.Task, error)
	Put(ctx context.Context, t *model.Task) error
	Delete(ctx context.Context, name string) error
}

// Store is a Repository that can scope a whole read-modify-write cycle in one transaction.
type Store interface {
	Repository
	Update(ctx context.Context, fn func(Repository) error) error
	Close() error
}

// Options configures a SQLiteStore.
type Options struct {
	// IgnoreCase makes name lookups and filters case-insensitive.
	IgnoreCase bool
	Logger     *slog.Logger
}

// SQLiteStore persists tasks and their intervals in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	repo   *repo
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the schema exists.
// The caller is responsible for calling Close.
func NewSQLiteStore(dbPath string, opts Options) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, &model.StoreError{Op: "open", Err: fmt.Errorf("create database directory: %w", err)}
		}
	}
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &model.StoreError{Op: "open", Err: fmt.Errorf("open sqlite %s: %w", dbPath, err)}
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &model.StoreError{Op: "open", Err: fmt.Errorf("create schema: %w", err)}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStore{
		db:     db,
		repo:   &repo{q: db, ignoreCase: opts.IgnoreCase},
		logger: logger,
	}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Update runs fn inside a write transaction. Returning an error from fn rolls every write
// back, so a rejected operation leaves the stored state untouched.
func (s *SQLiteStore) Update(ctx context.Context, fn func(Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &model.StoreError{Op: "begin", Err: err}
	}
	if err := fn(&repo{q: tx, ignoreCase: s.repo.ignoreCase}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", slog.Any("err", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return &model.StoreError{Op: "commit", Err: err}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, name string) (*model.Task, error) {
	return s.repo.Get(ctx, name)
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*model.Task, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]model.Task, error) {
	return s.repo.List(ctx, f)
}

// Put writes the task row and replaces its intervals atomically.
func (s *SQLiteStore) Put(ctx context.Context, t *model.Task) error {
	return s.Update(ctx, func(r Repository) error { return r.Put(ctx, t) })
}

// Delete removes a task and its intervals.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	return s.Update(ctx, func(r Repository) error { return r.Delete(ctx, name) })
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repo struct {
	q          querier
	ignoreCase bool
}

const taskColumns = `id, name, estimate, description, finished, created_at, updated_at`

func (r *repo) Get(ctx context.Context, name string) (*model.Task, error) {
	where := `name = ?`
	if r.ignoreCase {
		where = `name = ? COLLATE NOCASE`
	}
	row := r.q.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+where+` ORDER BY updated_at DESC LIMIT 1`, name)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Name: name}
	}
	if err != nil {
		return nil, &model.StoreError{Op: "get", Err: err}
	}
	if err := r.loadIntervals(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *repo) GetByID(ctx context.Context, id string) (*model.Task, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Name: id}
	}
	if err != nil {
		return nil, &model.StoreError{Op: "get", Err: err}
	}
	if err := r.loadIntervals(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *repo) List(ctx context.Context, f Filter) ([]model.Task, error) {
	var (
		clauses []string
		params  []any
	)
	switch {
	case f.OnlyFinished:
		clauses = append(clauses, `finished = 1`)
	case !f.IncludeFinished:
		clauses = append(clauses, `finished = 0`)
	}
	if f.ActiveOnly {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM intervals i WHERE i.task_id = tasks.id AND i.stop IS NULL)`)
	}
	if f.StartsWith != "" {
		if r.ignoreCase {
			clauses = append(clauses, `lower(substr(name, 1, length(?))) = lower(?)`)
		} else {
			clauses = append(clauses, `substr(name, 1, length(?)) = ?`)
		}
		params = append(params, f.StartsWith, f.StartsWith)
	}
	if f.Contains != "" {
		if r.ignoreCase {
			clauses = append(clauses, `instr(lower(name), lower(?)) > 0`)
		} else {
			clauses = append(clauses, `instr(name, ?) > 0`)
		}
		params = append(params, f.Contains)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	query += ` ORDER BY updated_at DESC, name`

	rows, err := r.q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, &model.StoreError{Op: "list", Err: err}
	}
	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, &model.StoreError{Op: "list", Err: err}
		}
		tasks = append(tasks, *t)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, &model.StoreError{Op: "list", Err: err}
	}

	// Intervals are loaded after the task cursor is closed; the pool holds one connection.
	for i := range tasks {
		if err := r.loadIntervals(ctx, &tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (r *repo) Put(ctx context.Context, t *model.Task) error {
	if t.ID == "" {
		return &model.StoreError{Op: "put", Err: fmt.Errorf("task %q has no id", t.Name)}
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, estimate=excluded.estimate, description=excluded.description,
			finished=excluded.finished, updated_at=excluded.updated_at`,
		t.ID, t.Name, int64(t.Estimate/time.Second), t.Description, boolToInt(t.Finished),
		t.CreatedAt.Unix(), t.UpdatedAt.Unix(),
	)
	if err != nil {
		return &model.StoreError{Op: "put", Err: fmt.Errorf("write task %q: %w", t.Name, err)}
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM intervals WHERE task_id = ?`, t.ID); err != nil {
		return &model.StoreError{Op: "put", Err: fmt.Errorf("clear intervals: %w", err)}
	}
	for i, iv := range t.Intervals {
		var stop sql.NullInt64
		if iv.Stop != nil {
			stop = sql.NullInt64{Int64: iv.Stop.Unix(), Valid: true}
		}
		_, err := r.q.ExecContext(ctx,
			`INSERT INTO intervals (task_id, position, start, stop) VALUES (?,?,?,?)`,
			t.ID, i, iv.Start.Unix(), stop)
		if err != nil {
			return &model.StoreError{Op: "put", Err: fmt.Errorf("write interval %d: %w", i+1, err)}
		}
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, name string) error {
	t, err := r.Get(ctx, name)
	if err != nil {
		return err
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM intervals WHERE task_id = ?`, t.ID); err != nil {
		return &model.StoreError{Op: "delete", Err: err}
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, t.ID); err != nil {
		return &model.StoreError{Op: "delete", Err: err}
	}
	return nil
}

func (r *repo) loadIntervals(ctx context.Context, t *model.Task) error {
	rows, err := r.q.QueryContext(ctx,
		`SELECT start, stop FROM intervals WHERE task_id = ? ORDER BY position`, t.ID)
	if err != nil {
		return &model.StoreError{Op: "load intervals", Err: err}
	}
	defer rows.Close()

	t.Intervals = nil
	for rows.Next() {
		var (
			start int64
			stop  sql.NullInt64
		)
		if err := rows.Scan(&start, &stop); err != nil {
			return &model.StoreError{Op: "load intervals", Err: err}
		}
		iv := model.Interval{Start: time.Unix(start, 0)}
		if stop.Valid {
			s := time.Unix(stop.Int64, 0)
			iv.Stop = &s
		}
		t.Intervals = append(t.Intervals, iv)
	}
	if err := rows.Err(); err != nil {
		return &model.StoreError{Op: "load intervals", Err: err}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*model.Task, error) {
	var (
		t                model.Task
		estimate         int64
		finished         int
		created, updated int64
	)
	if err := row.Scan(&t.ID, &t.Name, &estimate, &t.Description, &finished, &created, &updated); err != nil {
		return nil, err
	}
	t.Estimate = time.Duration(estimate) * time.Second
	t.Finished = finished != 0
	t.CreatedAt = time.Unix(created, 0)
	t.UpdatedAt = time.Unix(updated, 0)
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
