package platform

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories
const AppName = "dircompress"

// Platform represents the operating system platform
type Platform string

const (
	MacOS   Platform = "darwin"
	Linux   Platform = "linux"
	Unknown Platform = "unknown"
)

// Paths holds the default locations of everything dircompress persists
type Paths struct {
	OS         Platform
	HomeDir    string
	ConfigFile string
	StateDir   string
	LogFile    string
	PidFile    string
	LockFile   string
	ReportFile string
	HistoryDB  string
}

// Detect returns the current platform
func Detect() Platform {
	switch runtime.GOOS {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	default:
		return Unknown
	}
}

// DefaultPaths returns the default locations for the current user
func DefaultPaths() (*Paths, error) {
	homeDir, err := homeDir()
	if err != nil {
		return nil, err
	}
	return PathsFor(Detect(), homeDir, os.Getenv), nil
}

// PathsFor builds the default locations for a platform and home directory.
// getenv is consulted for XDG overrides on Linux and other unix systems.
func PathsFor(p Platform, homeDir string, getenv func(string) string) *Paths {
	var paths *Paths
	switch p {
	case MacOS:
		paths = getMacOSPaths(homeDir)
	default:
		paths = getLinuxPaths(homeDir, getenv)
	}
	paths.OS = p
	paths.HomeDir = homeDir
	paths.PidFile = filepath.Join(paths.StateDir, AppName+".pid")
	paths.LockFile = filepath.Join(paths.StateDir, AppName+".lock")
	paths.ReportFile = filepath.Join(paths.StateDir, "last-report.txt")
	paths.HistoryDB = filepath.Join(paths.StateDir, "history.db")
	return paths
}

// EnsureStateDir creates the state directory with owner-only permissions
func (p *Paths) EnsureStateDir() error {
	return os.MkdirAll(p.StateDir, 0700)
}

func homeDir() (string, error) {
	if dir, err := os.UserHomeDir(); err == nil && dir != "" {
		return dir, nil
	}
	currentUser, err := user.Current()
	if err != nil {
		return "", err
	}
	return currentUser.HomeDir, nil
}
