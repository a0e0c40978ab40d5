package cli

import (
	"errors"
	"fmt"
)

// Process exit statuses. A run failure is a missing reference under the
// abort policy, a failed scenario or a failed integrity check; a command
// error is bad usage, unreadable input or an invalid config.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitCommandError = 2
)

// ExitError is a command failure that knows its exit status.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// Exitf formats message and returns it as an ExitError.
func Exitf(code int, format string, args ...any) *ExitError {
	return NewExitError(code, fmt.Sprintf(format, args...))
}

// WrapExitError attaches an exit status to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode maps err to a process exit status. Errors that carry no status
// are run failures.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
