package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrisonrobin/hunt/pkg/model"
	"github.com/harrisonrobin/hunt/pkg/store"
	"github.com/harrisonrobin/hunt/pkg/taskdoc"
)

// Options are the plain values the engine is built with.
type Options struct {
	Policy FocusPolicy
	Now    func() time.Time
	NewID  func() string
	Logger *slog.Logger
}

// Engine applies lifecycle transitions against a store, one transaction per operation.
// The store is the only record of which task is active.
type Engine struct {
	store  store.Store
	policy FocusPolicy
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
	last   time.Time
}

// Scope limits which tasks a name prefix is matched against. An exact name always matches.
type Scope int

const (
	AnyTask Scope = iota
	Unfinished
	FinishedOnly
)

func (sc Scope) filter(prefix string) store.Filter {
	switch sc {
	case Unfinished:
		return store.Filter{StartsWith: prefix}
	case FinishedOnly:
		return store.Filter{OnlyFinished: true, StartsWith: prefix}
	}
	return store.Filter{IncludeFinished: true, StartsWith: prefix}
}

// NewTask carries what is needed to create a task.
type NewTask struct {
	Name        string
	Estimate    time.Duration
	Description string
}

// WorkonResult reports the outcome of Workon.
type WorkonResult struct {
	Task *model.Task
	// Stopped is the task that was auto-stopped, if any.
	Stopped *model.Task
	Created bool
	// AlreadyActive is set when the task was already being worked on.
	AlreadyActive bool
}

// FinishResult reports the outcome of Finish.
type FinishResult struct {
	Task            *model.Task
	Stopped         bool
	AlreadyFinished bool
}

// EditResult reports the outcome of ApplyEdit.
type EditResult struct {
	Task    *model.Task
	Stopped *model.Task
	Changed bool
}

// New builds an Engine.
func New(s store.Store, opts Options) *Engine {
	e := &Engine{
		store:  s,
		policy: opts.Policy,
		now:    opts.Now,
		newID:  opts.NewID,
		logger: opts.Logger,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Policy returns the configured focus policy.
func (e *Engine) Policy() FocusPolicy { return e.policy }

// stamp returns the wall clock truncated to seconds, never earlier than a previous stamp.
func (e *Engine) stamp() time.Time {
	now := e.now().Truncate(time.Second)
	if now.Before(e.last) {
		now = e.last
	}
	e.last = now
	return now
}

// Create adds a new idle task.
func (e *Engine) Create(ctx context.Context, nt NewTask) (*model.Task, error) {
	var created *model.Task
	err := e.store.Update(ctx, func(r store.Repository) error {
		t, err := e.create(ctx, r, nt)
		created = t
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (e *Engine) create(ctx context.Context, r store.Repository, nt NewTask) (*model.Task, error) {
	name := strings.TrimSpace(nt.Name)
	if err := model.ValidateName(name); err != nil {
		return nil, err
	}
	if nt.Estimate < 0 {
		return nil, &model.InvalidEstimateError{Estimate: nt.Estimate}
	}
	existing, err := r.Get(ctx, name)
	if err == nil {
		return nil, &model.DuplicateTaskError{Name: existing.Name}
	}
	if !model.IsNotFound(err) {
		return nil, err
	}

	now := e.stamp()
	t := &model.Task{
		ID:          e.newID(),
		Name:        name,
		Estimate:    nt.Estimate.Round(time.Second),
		Description: strings.TrimSpace(nt.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.Put(ctx, t); err != nil {
		return nil, err
	}
	e.logger.Debug("created task", slog.String("task", t.Name), slog.Duration("estimate", t.Estimate))
	return t, nil
}

// Workon starts tracking time on the task named by ident. When create is non-nil and no
// task matches, the task is created first, in the same transaction.
func (e *Engine) Workon(ctx context.Context, ident string, create *NewTask) (*WorkonResult, error) {
	res := &WorkonResult{}
	err := e.store.Update(ctx, func(r store.Repository) error {
		t, err := resolve(ctx, r, ident, Unfinished)
		if err != nil {
			if create == nil || !model.IsNotFound(err) {
				return err
			}
			if t, err = e.create(ctx, r, *create); err != nil {
				return err
			}
			res.Created = true
		}
		res.Task = t

		switch t.State() {
		case model.Finished:
			return &model.AlreadyFinishedError{Name: t.Name}
		case model.Active:
			res.AlreadyActive = true
			return nil
		}

		now := e.stamp()
		stopped, err := e.releaseFocus(ctx, r, t.ID, now)
		if err != nil {
			return err
		}
		res.Stopped = stopped

		if err := Start(t, now); err != nil {
			return err
		}
		t.UpdatedAt = now
		if err := r.Put(ctx, t); err != nil {
			return err
		}
		e.logger.Debug("started task", slog.String("task", t.Name), slog.Time("at", now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// releaseFocus applies the focus policy to whichever task other than taskID is active.
func (e *Engine) releaseFocus(ctx context.Context, r store.Repository, taskID string, now time.Time) (*model.Task, error) {
	cur, err := activeTask(ctx, r)
	if err != nil || cur == nil || cur.ID == taskID {
		return nil, err
	}
	if e.policy == Reject {
		return nil, &model.AlreadyActiveError{Name: cur.Name}
	}
	if err := Stop(cur, now); err != nil {
		return nil, err
	}
	cur.UpdatedAt = now
	if err := r.Put(ctx, cur); err != nil {
		return nil, err
	}
	e.logger.Debug("auto-stopped task", slog.String("task", cur.Name), slog.Time("at", now))
	return cur, nil
}

// Stop closes the open interval of the named task, or of the active task when ident is empty.
func (e *Engine) Stop(ctx context.Context, ident string) (*model.Task, error) {
	var stopped *model.Task
	err := e.store.Update(ctx, func(r store.Repository) error {
		t, err := resolveOr(ctx, r, ident, Unfinished, &model.NotActiveError{})
		if err != nil {
			return err
		}
		now := e.stamp()
		if err := Stop(t, now); err != nil {
			return err
		}
		t.UpdatedAt = now
		stopped = t
		return r.Put(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("stopped task", slog.String("task", stopped.Name))
	return stopped, nil
}

// Finish finishes the named task, or the active one when ident is empty. An active task is
// stopped with the finish timestamp in the same write.
func (e *Engine) Finish(ctx context.Context, ident string) (*FinishResult, error) {
	res := &FinishResult{}
	err := e.store.Update(ctx, func(r store.Repository) error {
		t, err := resolveOr(ctx, r, ident, Unfinished, &model.NotFoundError{})
		if err != nil {
			return err
		}
		res.Task = t
		if t.Finished {
			res.AlreadyFinished = true
			return nil
		}
		now := e.stamp()
		if res.Stopped, err = Finish(t, now); err != nil {
			return err
		}
		t.UpdatedAt = now
		return r.Put(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Restart moves a finished task back to idle.
func (e *Engine) Restart(ctx context.Context, ident string) (*model.Task, error) {
	return e.mutate(ctx, ident, FinishedOnly, func(t *model.Task) error { return Restart(t) })
}

// SetEstimate replaces the estimate of the named task, or of the active one.
func (e *Engine) SetEstimate(ctx context.Context, ident string, d time.Duration) (*model.Task, error) {
	return e.mutate(ctx, ident, AnyTask, func(t *model.Task) error { return SetEstimate(t, d.Round(time.Second)) })
}

func (e *Engine) mutate(ctx context.Context, ident string, scope Scope, fn func(*model.Task) error) (*model.Task, error) {
	var out *model.Task
	err := e.store.Update(ctx, func(r store.Repository) error {
		t, err := resolveOr(ctx, r, ident, scope, &model.NotFoundError{})
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		t.UpdatedAt = e.stamp()
		out = t
		return r.Put(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a task and its intervals.
func (e *Engine) Delete(ctx context.Context, ident string) (*model.Task, error) {
	var deleted *model.Task
	err := e.store.Update(ctx, func(r store.Repository) error {
		t, err := resolve(ctx, r, ident, AnyTask)
		if err != nil {
			return err
		}
		deleted = t
		return r.Delete(ctx, t.Name)
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ApplyEdit validates an edit parsed against original and writes the result. The stored
// task must not have changed since original was read.
func (e *Engine) ApplyEdit(ctx context.Context, original *model.Task, edit *taskdoc.EditSet) (*EditResult, error) {
	res := &EditResult{}
	err := e.store.Update(ctx, func(r store.Repository) error {
		current, err := r.GetByID(ctx, original.ID)
		if err != nil {
			return err
		}
		if !current.UpdatedAt.Equal(original.UpdatedAt) {
			return &model.StoreError{Op: "edit", Err: fmt.Errorf("task %q changed while it was being edited", original.Name)}
		}
		res.Task = current
		if !edit.Changed(current) {
			return nil
		}

		edited := edit.Apply(current)
		if err := model.ValidateName(edited.Name); err != nil {
			return &model.InvalidEditError{Invariant: err.Error()}
		}
		if err := edited.Validate(); err != nil {
			return err
		}
		if edited.Name != current.Name {
			other, err := r.Get(ctx, edited.Name)
			if err == nil && other.ID != current.ID {
				return &model.DuplicateTaskError{Name: edited.Name}
			}
			if err != nil && !model.IsNotFound(err) {
				return err
			}
		}

		now := e.stamp()
		if edited.State() == model.Active {
			if res.Stopped, err = e.releaseFocus(ctx, r, edited.ID, now); err != nil {
				return err
			}
		}
		edited.UpdatedAt = now
		if err := r.Put(ctx, &edited); err != nil {
			return err
		}
		res.Task = &edited
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		e.logger.Debug("applied edit", slog.String("task", res.Task.Name))
	}
	return res, nil
}

// Resolve finds a task by exact name, then by unique prefix. An empty ident means the
// active task.
func (e *Engine) Resolve(ctx context.Context, ident string) (*model.Task, error) {
	return e.ResolveIn(ctx, ident, AnyTask)
}

// ResolveIn is Resolve with prefix matches limited to scope.
func (e *Engine) ResolveIn(ctx context.Context, ident string, scope Scope) (*model.Task, error) {
	return resolveOr(ctx, e.store, ident, scope, &model.NotFoundError{})
}

// Active returns the active task, or nil when none is active.
func (e *Engine) Active(ctx context.Context) (*model.Task, error) {
	return activeTask(ctx, e.store)
}

// List returns tasks matching f.
func (e *Engine) List(ctx context.Context, f store.Filter) ([]model.Task, error) {
	return e.store.List(ctx, f)
}

func resolveOr(ctx context.Context, r store.Repository, ident string, scope Scope, missing error) (*model.Task, error) {
	if ident != "" {
		return resolve(ctx, r, ident, scope)
	}
	t, err := activeTask(ctx, r)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, missing
	}
	return t, nil
}

func resolve(ctx context.Context, r store.Repository, ident string, scope Scope) (*model.Task, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return nil, &model.NotFoundError{}
	}
	t, err := r.Get(ctx, ident)
	if err == nil || !model.IsNotFound(err) {
		return t, err
	}
	matches, err := r.List(ctx, scope.filter(ident))
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, &model.NotFoundError{Name: ident}
	case 1:
		return &matches[0], nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Name
	}
	return nil, &model.AmbiguousNameError{Prefix: ident, Matches: names}
}

func activeTask(ctx context.Context, r store.Repository) (*model.Task, error) {
	tasks, err := r.List(ctx, store.Filter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	switch len(tasks) {
	case 0:
		return nil, nil
	case 1:
		return &tasks[0], nil
	}
	return nil, &model.StoreError{Op: "active", Err: errors.New("more than one task is active")}
}
