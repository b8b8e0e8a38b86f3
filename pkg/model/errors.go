package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DuplicateTaskError is returned when a task name is already taken.
type DuplicateTaskError struct {
	Name string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("task %q already exists", e.Name)
}

// NotFoundError is returned when no task matches an identifier.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return "no active task found"
	}
	return fmt.Sprintf("could not find task %q", e.Name)
}

// AmbiguousNameError is returned when a name prefix matches several tasks.
type AmbiguousNameError struct {
	Prefix  string
	Matches []string
}

func (e *AmbiguousNameError) Error() string {
	return fmt.Sprintf("%q matches several tasks: %s", e.Prefix, strings.Join(e.Matches, ", "))
}

// AlreadyActiveError is returned by the reject focus policy when another task is active.
type AlreadyActiveError struct {
	Name string
}

func (e *AlreadyActiveError) Error() string {
	return fmt.Sprintf("already working on %q, stop it first", e.Name)
}

// NotActiveError is returned when stopping a task that has no open interval.
type NotActiveError struct {
	Name string
}

func (e *NotActiveError) Error() string {
	if e.Name == "" {
		return "no task is being worked on"
	}
	return fmt.Sprintf("task %q is not being worked on", e.Name)
}

// NotFinishedError is returned when restarting a task that is not finished.
type NotFinishedError struct {
	Name string
}

func (e *NotFinishedError) Error() string {
	return fmt.Sprintf("task %q is not finished", e.Name)
}

// AlreadyFinishedError is returned when starting work on a finished task.
type AlreadyFinishedError struct {
	Name string
}

func (e *AlreadyFinishedError) Error() string {
	return fmt.Sprintf("task %q is finished, restart it first", e.Name)
}

// InvalidEstimateError is returned for negative estimates.
type InvalidEstimateError struct {
	Estimate time.Duration
}

func (e *InvalidEstimateError) Error() string {
	return fmt.Sprintf("invalid estimate %s: must not be negative", e.Estimate)
}

// InvalidDurationError is returned when a duration given on the command line cannot be read.
type InvalidDurationError struct {
	Value string
	Err   error
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("invalid duration %q: %v", e.Value, e.Err)
}

func (e *InvalidDurationError) Unwrap() error { return e.Err }

// InvalidNameError is returned for names that cannot be rendered and parsed back.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid task name %q: %s", e.Name, e.Reason)
}

// ParseError pinpoints the line of an edited task that could not be parsed.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// InvalidEditError names the invariant an edited task violates. Position is the
// 1-based interval position at fault, or 0 when the violation is task wide.
type InvalidEditError struct {
	Invariant string
	Position  int
}

func (e *InvalidEditError) Error() string {
	if e.Position > 0 {
		return fmt.Sprintf("invalid edit: interval %d: %s", e.Position, e.Invariant)
	}
	return "invalid edit: " + e.Invariant
}

// StoreError wraps persistence failures.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// EditorError is returned when the external editor exits unsuccessfully.
type EditorError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *EditorError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("editor %q exited with code %d, edit aborted", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("editor %q failed, edit aborted: %v", e.Command, e.Err)
}

func (e *EditorError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
