//go:build !linux && !darwin

package daemon

import "errors"

var errDetachUnsupported = errors.New("background mode is not supported on this platform, use --foreground")

func spawnStage(State) error {
	return errDetachUnsupported
}

func prepareDetached() error {
	return errDetachUnsupported
}
