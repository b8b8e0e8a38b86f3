// Package cli wires the hunt commands to the lifecycle engine, the store and the calendar
// exporter.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/hunt/pkg/colors"
	"github.com/harrisonrobin/hunt/pkg/config"
	"github.com/harrisonrobin/hunt/pkg/editor"
	"github.com/harrisonrobin/hunt/pkg/google"
	"github.com/harrisonrobin/hunt/pkg/lifecycle"
	"github.com/harrisonrobin/hunt/pkg/store"
)

// TextEditor lets the user edit a block of text.
type TextEditor interface {
	Edit(ctx context.Context, text string) (string, error)
}

// App carries the resolved configuration and the I/O of one invocation.
type App struct {
	Config *config.Config
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Now    func() time.Time

	NewEditor func(command string) TextEditor
	Calendar  func(ctx context.Context, name string) (google.EventService, error)

	silent bool
	debug  bool
	logger *slog.Logger
	print  *printer
	reader *bufio.Reader
	store  store.Store
	engine *lifecycle.Engine
}

// NewApp returns an App talking to the terminal.
func NewApp(cfg *config.Config) *App {
	a := &App{
		Config: cfg,
		In:     os.Stdin,
		Out:    os.Stdout,
		Err:    os.Stderr,
		Now:    time.Now,
		NewEditor: func(command string) TextEditor {
			return editor.New(command)
		},
	}
	a.Calendar = func(ctx context.Context, name string) (google.EventService, error) {
		client, err := google.NewClient(ctx, name, a.Out)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return a
}

// NewRootCmd builds the command tree for a.
func NewRootCmd(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "hunt",
		Short: "hunt - track the time spent on your TODO list",
		Long: `hunt tracks time spent on tasks against their estimates.

Only one task is worked on at a time: starting one stops the other, unless the focus
policy is "reject". Tasks can be edited as plain text in $EDITOR.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().BoolVarP(&a.silent, "silent", "s", false, "No output except errors")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Log diagnostics to stderr")

	root.AddCommand(newInitCmd(a))
	root.AddCommand(newCreateCmd(a))
	root.AddCommand(newWorkonCmd(a))
	root.AddCommand(newStopCmd(a))
	root.AddCommand(newFinishCmd(a))
	root.AddCommand(newRestartCmd(a))
	root.AddCommand(newEstimateCmd(a))
	root.AddCommand(newEditCmd(a))
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newRmCmd(a))
	root.AddCommand(newLsCmd(a))
	root.AddCommand(newDumpCmd(a))
	root.AddCommand(newConfigCmd(a))
	root.AddCommand(newCalendarCmd(a))
	return root
}

// Run executes args and returns the process exit code. Errors are printed to a.Err.
func (a *App) Run(ctx context.Context, args []string) int {
	err := a.Execute(ctx, args)
	if err != nil {
		fmt.Fprintln(a.Err, colors.Error.Render("Error:"), err)
	}
	return ExitCode(err)
}

// Execute runs the command tree against args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := NewRootCmd(a)
	root.SetArgs(args)
	root.SetIn(a.In)
	root.SetOut(a.Out)
	root.SetErr(a.Err)
	defer a.Close()
	return root.ExecuteContext(ctx)
}

// Close releases the store, if one was opened.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store, a.engine = nil, nil
	return err
}

func (a *App) setup() error {
	if a.silent {
		a.Config.Silent = true
	}
	if a.debug {
		a.Config.Debug = true
	}
	level := slog.LevelWarn
	if a.Config.Debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.Err, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	a.print = &printer{out: a.Out, silent: a.Config.Silent}
	return nil
}

// openEngine opens the store on first use, creating the database if needed.
func (a *App) openEngine() (*lifecycle.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}
	policy, err := lifecycle.ParseFocusPolicy(a.Config.FocusPolicy)
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteStore(a.Config.DatabasePath(), store.Options{
		IgnoreCase: a.Config.IgnoreCase,
		Logger:     a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.store = s
	a.engine = lifecycle.New(s, lifecycle.Options{
		Policy: policy,
		Now:    a.Now,
		Logger: a.logger,
	})
	a.logger.Debug("opened store", slog.String("path", a.Config.DatabasePath()), slog.String("policy", a.engine.Policy().String()))
	return a.engine, nil
}

// prompt asks a question on the terminal and returns the trimmed answer. Prompts are shown
// even in silent mode.
func (a *App) prompt(question string) (string, error) {
	if a.reader == nil {
		a.reader = bufio.NewReader(a.In)
	}
	fmt.Fprint(a.Out, question)
	line, err := a.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (a *App) confirm(question string) (bool, error) {
	answer, err := a.prompt(question)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
