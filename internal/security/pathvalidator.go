package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator decides whether a directory may be used as a compression target
type PathValidator struct {
	// protectedPaths may not be targeted themselves; their subdirectories may
	protectedPaths []string
	// virtualPaths hold pseudo filesystems; nothing below them may be targeted
	virtualPaths []string
}

// NewPathValidator creates a new PathValidator with default protected paths
func NewPathValidator() *PathValidator {
	return &PathValidator{
		protectedPaths: []string{
			// Unix system directories
			"/",
			"/bin",
			"/boot",
			"/etc",
			"/lib",
			"/lib32",
			"/lib64",
			"/root",
			"/sbin",
			"/usr",
			"/usr/bin",
			"/usr/lib",
			"/usr/sbin",
			"/var",
			// macOS system directories
			"/System",
			"/Applications",
			"/Library",
			"/private",
		},
		virtualPaths: []string{
			"/dev",
			"/proc",
			"/sys",
			"/run",
		},
	}
}

// ValidateTarget checks a target directory before anything below it is rewritten
// and returns its cleaned, symlink-resolved form
func (pv *PathValidator) ValidateTarget(path string) (string, error) {
	if path == "" {
		return "", errors.New("target directory is empty")
	}
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("path contains a null byte: %q", path)
	}
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("path must be absolute: %s", path)
	}

	// Resolve symlinks so a link cannot point the run at a protected tree
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory does not exist: %s", path)
		}
		return "", fmt.Errorf("failed to resolve symlinks: %w", err)
	}
	cleanPath := filepath.Clean(resolved)

	if err := pv.checkProtectedPaths(cleanPath); err != nil {
		return "", err
	}

	return cleanPath, nil
}

// checkProtectedPaths validates that a path is not a protected system directory
func (pv *PathValidator) checkProtectedPaths(cleanPath string) error {
	for _, protected := range pv.protectedPaths {
		if cleanPath == protected {
			return fmt.Errorf("refusing to compress protected path: %s", cleanPath)
		}
	}

	for _, virtual := range pv.virtualPaths {
		if cleanPath == virtual || strings.HasPrefix(cleanPath, virtual+"/") {
			return fmt.Errorf("refusing to compress pseudo filesystem: %s", cleanPath)
		}
	}

	return nil
}

// IsProtectedPath reports whether a path may not be used as a target
func (pv *PathValidator) IsProtectedPath(path string) bool {
	return pv.checkProtectedPaths(filepath.Clean(path)) != nil
}

// AddProtectedPath adds a custom protected path
func (pv *PathValidator) AddProtectedPath(path string) {
	cleanPath := filepath.Clean(path)
	pv.protectedPaths = append(pv.protectedPaths, cleanPath)
}
