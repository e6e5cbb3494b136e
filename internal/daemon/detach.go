package daemon

import (
	"fmt"
	"os"
	"strings"
)

// StageEnv marks a re-executed child with its detach stage
const StageEnv = "DIRCOMPRESS_DAEMON_STAGE"

const (
	stageFirstChild = "1"
	stageDetached   = "2"
)

// StageFromEnv reports which detach stage this process is in
func StageFromEnv(getenv func(string) string) (State, error) {
	switch v := strings.TrimSpace(getenv(StageEnv)); v {
	case "":
		return StateForeground, nil
	case stageFirstChild:
		return StateFirstChild, nil
	case stageDetached:
		return StateDetached, nil
	default:
		return StateForeground, fmt.Errorf("invalid %s value %q", StageEnv, v)
	}
}

func stageValue(s State) string {
	switch s {
	case StateFirstChild:
		return stageFirstChild
	case StateDetached:
		return stageDetached
	default:
		return ""
	}
}

// Detacher moves the process into the background by re-executing itself
// twice. The first child becomes a session leader with no controlling
// terminal; the second is not a session leader and so can never acquire one.
type Detacher struct {
	state State

	// spawn starts the next stage. It waits for the first child to exit so
	// the foreground learns whether the second child started.
	spawn func(next State) error
	// prepare sets up the detached environment in the final stage
	prepare func() error
}

// NewDetacher reads the current stage from the environment
func NewDetacher() (*Detacher, error) {
	state, err := StageFromEnv(os.Getenv)
	if err != nil {
		return nil, &ExitError{Code: ExitDetach, Err: err}
	}
	return &Detacher{
		state:   state,
		spawn:   spawnStage,
		prepare: prepareDetached,
	}, nil
}

// State returns the detach stage this process has reached
func (d *Detacher) State() State {
	return d.state
}

// Detach advances one stage. When exit is true the caller must exit with
// status 0 straight away because a child carries on the work.
func (d *Detacher) Detach() (exit bool, err error) {
	switch d.state {
	case StateForeground:
		if err := d.spawn(StateFirstChild); err != nil {
			return false, exitError(ExitDetach, "failed to detach: %w", err)
		}
		return true, nil

	case StateFirstChild:
		if err := d.spawn(StateDetached); err != nil {
			return false, exitError(ExitDetach, "failed to start detached process: %w", err)
		}
		return true, nil

	case StateDetached:
		if err := d.prepare(); err != nil {
			return false, exitError(ExitDetach, "failed to prepare detached process: %w", err)
		}
		return false, nil

	default:
		return false, exitError(ExitDetach, "cannot detach from state %s", d.state)
	}
}

// childEnv returns env with the stage marker replaced
func childEnv(env []string, next State) []string {
	out := make([]string, 0, len(env)+1)
	prefix := StageEnv + "="
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+stageValue(next))
}
