package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
)

var (
	// ErrAlreadyRunning is returned when another instance holds the lock
	ErrAlreadyRunning = errors.New("another dircompress instance is already running")
	// ErrNotRunning is returned by Stop when no instance holds the lock
	ErrNotRunning = errors.New("dircompress is not running")
)

// Lock guards against two instances working at once and advertises the
// holder's pid
type Lock struct {
	lock    *flock.Flock
	pidFile string
	held    bool
}

// NewLock creates a lock over lockFile. pidFile may be empty.
func NewLock(lockFile, pidFile string) *Lock {
	return &Lock{
		lock:    flock.New(lockFile),
		pidFile: pidFile,
	}
}

// Acquire takes the lock without blocking and writes the pid file
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.lock.Path()), 0700); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		if pid, err := ReadPID(l.pidFile); err == nil {
			return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		return ErrAlreadyRunning
	}
	l.held = true

	if l.pidFile != "" {
		if err := writePIDFile(l.pidFile); err != nil {
			_ = l.Release()
			return fmt.Errorf("write pid file: %w", err)
		}
	}
	return nil
}

// Release removes the pid file and drops the lock
func (l *Lock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false

	if l.pidFile != "" {
		if err := os.Remove(l.pidFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			_ = l.lock.Unlock()
			return fmt.Errorf("remove pid file: %w", err)
		}
	}
	return l.lock.Unlock()
}

// Path returns the lock file location
func (l *Lock) Path() string {
	return l.lock.Path()
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0644)
}

// ReadPID reads a pid file
func ReadPID(path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("no pid file configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %s", path)
	}
	return pid, nil
}

// Status reports whether an instance holds the lock, and its pid when the
// pid file is readable
func Status(lockFile, pidFile string) (running bool, pid int, err error) {
	if _, statErr := os.Stat(lockFile); errors.Is(statErr, os.ErrNotExist) {
		return false, 0, nil
	}

	fl := flock.New(lockFile)
	ok, err := fl.TryLock()
	if err != nil {
		return false, 0, fmt.Errorf("check lock: %w", err)
	}
	if ok {
		_ = fl.Unlock()
		return false, 0, nil
	}

	pid, _ = ReadPID(pidFile)
	return true, pid, nil
}

// Stop sends SIGTERM to the running instance and waits up to timeout for
// it to release the lock. The pid of the signalled process is returned.
func Stop(lockFile, pidFile string, timeout time.Duration) (int, error) {
	running, pid, err := Status(lockFile, pidFile)
	if err != nil {
		return 0, err
	}
	if !running {
		return 0, ErrNotRunning
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine pid (pid file: %s)", pidFile)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return 0, fmt.Errorf("signal process %d: %w", pid, err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if running, _, _ := Status(lockFile, pidFile); !running {
			return pid, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return pid, fmt.Errorf("process %d still running after %s", pid, timeout)
}
