package daemon

import (
	"errors"
	"fmt"

	"github.com/fenilsonani/dircompress/internal/config"
)

// State is a step in the process lifecycle
type State int

const (
	StateForeground State = iota
	StateFirstChild
	StateDetached
	StateRunning
	StateStopping
	StateExited
)

// String returns a human-readable name for the state
func (s State) String() string {
	switch s {
	case StateForeground:
		return "foreground"
	case StateFirstChild:
		return "first-child"
	case StateDetached:
		return "detached"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Process exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	// ExitUsage means the invocation was rejected before any work started
	ExitUsage = 2
	// ExitStartup covers a held lock, an inaccessible directory or an unusable log
	ExitStartup = 3
	ExitDetach  = 4
	// ExitSignal is 128 + SIGTERM
	ExitSignal = 143
)

// ErrTerminated is wrapped by the ExitError returned after a shutdown signal
var ErrTerminated = errors.New("terminated by signal")

// ExitError carries the process exit code up to main
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitError(code int, format string, args ...interface{}) *ExitError {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error returned by the command layer to a process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, config.ErrInvalidInvocation) {
		return ExitUsage
	}
	return ExitFailure
}
