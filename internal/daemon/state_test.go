package daemon

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fenilsonani/dircompress/internal/config"
)

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateForeground: "foreground",
		StateFirstChild: "first-child",
		StateDetached:   "detached",
		StateRunning:    "running",
		StateStopping:   "stopping",
		StateExited:     "exited",
		State(42):       "state(42)",
	}
	for state, want := range tests {
		assert.Equal(t, want, state.String())
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"generic", errors.New("boom"), ExitFailure},
		{"invalid invocation", fmt.Errorf("%w: size is required", config.ErrInvalidInvocation), ExitUsage},
		{"startup", &ExitError{Code: ExitStartup, Err: ErrAlreadyRunning}, ExitStartup},
		{"wrapped exit error", fmt.Errorf("run: %w", &ExitError{Code: ExitSignal}), ExitSignal},
		{"detach", exitError(ExitDetach, "failed"), ExitDetach},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExitErrorUnwrap(t *testing.T) {
	err := &ExitError{Code: ExitSignal, Err: ErrTerminated}
	assert.ErrorIs(t, err, ErrTerminated)
	assert.Equal(t, "terminated by signal", err.Error())
	assert.Equal(t, "exit status 3", (&ExitError{Code: 3}).Error())
}
