package editor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrisonrobin/hunt/pkg/model"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-editor")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func newTestEditor(command string) *Editor {
	e := New(command)
	e.Stdin = strings.NewReader("")
	e.Stdout = &bytes.Buffer{}
	e.Stderr = &bytes.Buffer{}
	return e
}

func TestEdit_ReturnsSavedText(t *testing.T) {
	script := writeScript(t, `sed 's/estimate: 2h/estimate: 3h/' "$1" > "$1.new" && mv "$1.new" "$1"`)

	got, err := newTestEditor(script).Edit(context.Background(), "name: proj-x\nestimate: 2h\n")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got != "name: proj-x\nestimate: 3h\n" {
		t.Errorf("Expected edited text, got %q", got)
	}
}

func TestEdit_PassesArguments(t *testing.T) {
	script := writeScript(t, `[ "$1" = "--wait" ] || exit 9; echo extra >> "$2"`)

	got, err := newTestEditor(script+" --wait").Edit(context.Background(), "line\n")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got != "line\nextra\n" {
		t.Errorf("Expected appended text, got %q", got)
	}
}

func TestEdit_NonZeroExit(t *testing.T) {
	script := writeScript(t, `echo changed > "$1"; exit 3`)

	_, err := newTestEditor(script).Edit(context.Background(), "text\n")
	var edErr *model.EditorError
	if !errors.As(err, &edErr) {
		t.Fatalf("Expected *model.EditorError, got %v", err)
	}
	if edErr.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", edErr.ExitCode)
	}
}

func TestEdit_MissingEditor(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-editor")

	_, err := newTestEditor(missing).Edit(context.Background(), "text\n")
	if !errors.As(err, new(*model.EditorError)) {
		t.Fatalf("Expected *model.EditorError, got %v", err)
	}
	if _, err := newTestEditor("  ").Edit(context.Background(), "text\n"); !errors.As(err, new(*model.EditorError)) {
		t.Errorf("Expected *model.EditorError for an empty command, got %v", err)
	}
}
