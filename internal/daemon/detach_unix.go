//go:build linux || darwin

package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// fdScanLimit caps the fallback descriptor sweep when RLIMIT_NOFILE is huge
const fdScanLimit = 1 << 16

func spawnStage(next State) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	// Stdin, Stdout and Stderr left nil are connected to /dev/null
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = childEnv(os.Environ(), next)

	if next == StateFirstChild {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("first child: %w", err)
		}
		return nil
	}

	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// prepareDetached gives the final process a neutral environment: root
// working directory, zero umask, no inherited descriptors beyond stdio and
// stdio pointing at /dev/null.
func prepareDetached() error {
	if err := unix.Chdir("/"); err != nil {
		return fmt.Errorf("chdir /: %w", err)
	}
	unix.Umask(0)

	closeInheritedFDs()

	null, err := unix.Open("/dev/null", unix.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open /dev/null: %w", err)
	}
	for fd := 0; fd <= 2; fd++ {
		if err := dupTo(null, fd); err != nil {
			return fmt.Errorf("redirect fd %d: %w", fd, err)
		}
	}
	if null > 2 {
		unix.Close(null)
	}
	return nil
}

// closeInheritedFDs marks every descriptor >= 3 close-on-exec. Closing them
// outright could pull descriptors out from under the Go runtime.
func closeInheritedFDs() {
	for _, fd := range inheritedFDs() {
		unix.CloseOnExec(fd)
	}
}

// inheritedFDs lists open descriptors >= 3, from /proc/self/fd (or
// /dev/fd) when available, otherwise every number below RLIMIT_NOFILE.
func inheritedFDs() []int {
	for _, dir := range []string{"/proc/self/fd", "/dev/fd"} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		fds := make([]int, 0, len(entries))
		for _, e := range entries {
			fd, err := strconv.Atoi(e.Name())
			if err == nil && fd > 2 {
				fds = append(fds, fd)
			}
		}
		return fds
	}

	limit := uint64(1024)
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err == nil && rl.Cur > 0 {
		limit = rl.Cur
	}
	if limit > fdScanLimit {
		limit = fdScanLimit
	}
	fds := make([]int, 0, limit)
	for fd := 3; uint64(fd) < limit; fd++ {
		fds = append(fds, fd)
	}
	return fds
}
