package errors

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrCorpusUnavailable       = errors.New("corpus unavailable")
	ErrGoldStandardUnavailable = errors.New("gold standard unavailable")
	ErrIndexLocked             = errors.New("index locked")
	ErrUndecodableEntry        = errors.New("undecodable corpus entry")
	ErrInvalidDocument         = errors.New("invalid document")
	ErrInvalidConfig           = errors.New("invalid configuration")
	ErrInvalidCutoff           = errors.New("invalid cutoff")
)

// Exit codes returned by the CLI for the failure classes above.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfig      = 2
	ExitAborted     = 3
	ExitInterrupted = 130
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsFatal reports whether err stops a benchmark run before evaluation.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCorpusUnavailable) ||
		errors.Is(err, ErrGoldStandardUnavailable) ||
		errors.Is(err, ErrIndexLocked)
}

func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrInvalidCutoff):
		return ExitConfig
	case IsFatal(err):
		return ExitAborted
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}
