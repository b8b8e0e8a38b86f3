package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/harrisonrobin/hunt/pkg/model"
)

// printer writes user-facing messages unless silenced. Errors bypass it.
type printer struct {
	out    io.Writer
	silent bool
}

func (p *printer) Printf(format string, args ...any) {
	if p.silent {
		return
	}
	fmt.Fprintf(p.out, format, args...)
}

func (p *printer) Print(s string) {
	if p.silent {
		return
	}
	fmt.Fprint(p.out, s)
}

// Exit codes, one per error family.
const (
	ExitOK            = 0
	ExitGeneric       = 1
	ExitNotFound      = 2
	ExitAlreadyActive = 3
	ExitNotActive     = 4
	ExitAmbiguous     = 5
	ExitValidation    = 6
	ExitStore         = 7
	ExitDuplicate     = 8
	ExitFinishedState = 9
	ExitEditor        = 10
)

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		notFound      *model.NotFoundError
		ambiguous     *model.AmbiguousNameError
		alreadyActive *model.AlreadyActiveError
		notActive     *model.NotActiveError
		notFinished   *model.NotFinishedError
		finished      *model.AlreadyFinishedError
		duplicate     *model.DuplicateTaskError
		parseErr      *model.ParseError
		editErr       *model.InvalidEditError
		estimateErr   *model.InvalidEstimateError
		durationErr   *model.InvalidDurationError
		nameErr       *model.InvalidNameError
		storeErr      *model.StoreError
		editorErr     *model.EditorError
	)
	switch {
	case errors.As(err, &notFound):
		return ExitNotFound
	case errors.As(err, &ambiguous):
		return ExitAmbiguous
	case errors.As(err, &alreadyActive):
		return ExitAlreadyActive
	case errors.As(err, &notActive):
		return ExitNotActive
	case errors.As(err, &notFinished), errors.As(err, &finished):
		return ExitFinishedState
	case errors.As(err, &duplicate):
		return ExitDuplicate
	case errors.As(err, &parseErr), errors.As(err, &editErr), errors.As(err, &estimateErr),
		errors.As(err, &durationErr), errors.As(err, &nameErr):
		return ExitValidation
	case errors.As(err, &storeErr):
		return ExitStore
	case errors.As(err, &editorErr):
		return ExitEditor
	}
	return ExitGeneric
}
