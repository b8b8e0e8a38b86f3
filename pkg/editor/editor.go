// Package editor round-trips text through the user's external editor.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/harrisonrobin/hunt/pkg/model"
)

// Editor runs an external text editor attached to the given terminal streams.
type Editor struct {
	command []string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// New builds an Editor for a command line such as "vim" or "code --wait". The file to edit
// is appended as the last argument.
func New(command string) *Editor {
	return &Editor{
		command: strings.Fields(command),
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Edit writes text to a temporary file, opens it in the editor and returns the saved contents.
// A failed or non-zero editor run returns *model.EditorError.
func (e *Editor) Edit(ctx context.Context, text string) (string, error) {
	if len(e.command) == 0 {
		return "", &model.EditorError{Err: errors.New("no editor configured")}
	}
	name := strings.Join(e.command, " ")

	f, err := os.CreateTemp("", "hunt-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	args := append(append([]string{}, e.command[1:]...), path)
	cmd := exec.CommandContext(ctx, e.command[0], args...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &model.EditorError{Command: name, ExitCode: exitErr.ExitCode(), Err: err}
		}
		return "", &model.EditorError{Command: name, Err: err}
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read edited file: %w", err)
	}
	return string(edited), nil
}
