// Package testutil provides test helpers and fixtures for dircompress tests.
// All file operations use t.TempDir() for safe, isolated testing.
package testutil

import (
	"bytes"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// TestFixture holds the root of an isolated directory tree
type TestFixture struct {
	T       *testing.T
	RootDir string // Root temp directory (auto-cleaned)
}

// NewFixture creates a new, empty test fixture
func NewFixture(t *testing.T) *TestFixture {
	t.Helper()
	return &TestFixture{T: t, RootDir: t.TempDir()}
}

// =============================================================================
// File Creation Helpers
// =============================================================================

// CreateFile creates a file with specified content and returns its path
func (f *TestFixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		f.T.Fatalf("failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateTextFile creates a highly compressible text file of the given size
func (f *TestFixture) CreateTextFile(relPath string, size int) string {
	f.T.Helper()
	return f.CreateFile(relPath, TextContent(size))
}

// CreateRandomFile creates a file with random (incompressible) content
func (f *TestFixture) CreateRandomFile(relPath string, size int) string {
	f.T.Helper()
	content := make([]byte, size)
	rand.Read(content)
	return f.CreateFile(relPath, content)
}

// CreateJPEG creates a file that sniffs as image/jpeg, padded to size
func (f *TestFixture) CreateJPEG(relPath string, size int) string {
	f.T.Helper()
	return f.CreateFile(relPath, JPEGContent(size))
}

// CreateGzip creates a real gzip stream wrapping size bytes of text
func (f *TestFixture) CreateGzip(relPath string, size int) string {
	f.T.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(TextContent(size)); err != nil {
		f.T.Fatalf("failed to gzip content: %v", err)
	}
	if err := zw.Close(); err != nil {
		f.T.Fatalf("failed to close gzip writer: %v", err)
	}
	return f.CreateFile(relPath, buf.Bytes())
}

// TextContent returns size bytes of repetitive ASCII text
func TextContent(size int) []byte {
	line := "the quick brown fox jumps over the lazy dog 0123456789\n"
	content := []byte(strings.Repeat(line, size/len(line)+1))
	return content[:size]
}

// JPEGContent returns a JPEG magic header padded with zeros to size
func JPEGContent(size int) []byte {
	header := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	if size < len(header) {
		size = len(header)
	}
	content := make([]byte, size)
	copy(content, header)
	return content
}

// =============================================================================
// Directory Helpers
// =============================================================================

// CreateDir creates a directory and returns its path
func (f *TestFixture) CreateDir(relPath string) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(fullPath, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateUnreadableDir creates a directory with mode 000 and restores it on cleanup
func (f *TestFixture) CreateUnreadableDir(relPath string) string {
	f.T.Helper()

	dirPath := f.CreateDir(relPath)
	f.CreateFile(filepath.Join(relPath, "hidden.txt"), TextContent(128))
	if err := os.Chmod(dirPath, 0000); err != nil {
		f.T.Fatalf("failed to chmod directory %s: %v", dirPath, err)
	}

	f.T.Cleanup(func() {
		os.Chmod(dirPath, 0755)
	})

	return dirPath
}

// CreateReadOnlyDir creates a read-only directory (files inside can't be removed)
func (f *TestFixture) CreateReadOnlyDir(relPath string) string {
	f.T.Helper()

	dirPath := f.CreateDir(relPath)
	if err := os.Chmod(dirPath, 0555); err != nil {
		f.T.Fatalf("failed to chmod directory %s: %v", dirPath, err)
	}

	f.T.Cleanup(func() {
		os.Chmod(dirPath, 0755)
	})

	return dirPath
}

// =============================================================================
// Symlink Helpers
// =============================================================================

// CreateSymlink creates a symbolic link
func (f *TestFixture) CreateSymlink(target, linkPath string) string {
	f.T.Helper()

	fullLinkPath := filepath.Join(f.RootDir, linkPath)
	dir := filepath.Dir(fullLinkPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.Symlink(target, fullLinkPath); err != nil {
		f.T.Fatalf("failed to create symlink %s -> %s: %v", fullLinkPath, target, err)
	}

	return fullLinkPath
}

// CreateBrokenSymlink creates a symlink pointing to a non-existent target
func (f *TestFixture) CreateBrokenSymlink(linkPath string) string {
	f.T.Helper()
	return f.CreateSymlink(filepath.Join(f.RootDir, "does-not-exist"), linkPath)
}

// =============================================================================
// Permission Helpers
// =============================================================================

// CreateNoPermissionFile creates a file with no permissions (000)
func (f *TestFixture) CreateNoPermissionFile(relPath string, content []byte) string {
	f.T.Helper()
	path := f.CreateFile(relPath, content)
	if err := os.Chmod(path, 0000); err != nil {
		f.T.Fatalf("failed to chmod file %s: %v", path, err)
	}
	f.T.Cleanup(func() {
		os.Chmod(path, 0644)
	})
	return path
}

// =============================================================================
// Path Helpers
// =============================================================================

// Path returns the full path for a relative path within the fixture
func (f *TestFixture) Path(relPath string) string {
	return filepath.Join(f.RootDir, relPath)
}

// =============================================================================
// Assertion Helpers
// =============================================================================

// FileExists checks if a file exists
func (f *TestFixture) FileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// AssertFileExists fails the test if the file doesn't exist
func (f *TestFixture) AssertFileExists(path string) {
	f.T.Helper()
	if !f.FileExists(path) {
		f.T.Errorf("expected file to exist: %s", path)
	}
}

// AssertFileNotExists fails the test if the file exists
func (f *TestFixture) AssertFileNotExists(path string) {
	f.T.Helper()
	if f.FileExists(path) {
		f.T.Errorf("expected file to not exist: %s", path)
	}
}

// AssertFileContent fails unless the file holds exactly want
func (f *TestFixture) AssertFileContent(path string, want []byte) {
	f.T.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		f.T.Errorf("failed to read %s: %v", path, err)
		return
	}
	if !bytes.Equal(got, want) {
		f.T.Errorf("file %s content mismatch (%d bytes, want %d)", path, len(got), len(want))
	}
}

// AssertGzipContent fails unless path is a gzip stream decoding to want
func (f *TestFixture) AssertGzipContent(path string, want []byte) {
	f.T.Helper()
	file, err := os.Open(path)
	if err != nil {
		f.T.Errorf("failed to open %s: %v", path, err)
		return
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		f.T.Errorf("%s is not a gzip stream: %v", path, err)
		return
	}
	defer zr.Close()

	got, err := io.ReadAll(zr)
	if err != nil {
		f.T.Errorf("failed to decompress %s: %v", path, err)
		return
	}
	if !bytes.Equal(got, want) {
		f.T.Errorf("decompressed %s differs from original (%d bytes, want %d)", path, len(got), len(want))
	}
}

// AssertIsSymlink fails if path is not a symlink
func (f *TestFixture) AssertIsSymlink(path string) {
	f.T.Helper()
	info, err := os.Lstat(path)
	if err != nil {
		f.T.Errorf("failed to stat %s: %v", path, err)
		return
	}
	if info.Mode()&os.ModeSymlink == 0 {
		f.T.Errorf("expected %s to be a symlink", path)
	}
}

// AssertFileMode checks if file has expected permissions
func (f *TestFixture) AssertFileMode(path string, expectedMode os.FileMode) {
	f.T.Helper()
	info, err := os.Stat(path)
	if err != nil {
		f.T.Errorf("failed to stat %s: %v", path, err)
		return
	}
	actualMode := info.Mode().Perm()
	if actualMode != expectedMode {
		f.T.Errorf("file %s has mode %o, want %o", path, actualMode, expectedMode)
	}
}

// CountFiles returns the number of regular files below the fixture root
func (f *TestFixture) CountFiles() int {
	f.T.Helper()
	count := 0
	filepath.WalkDir(f.RootDir, func(_ string, d os.DirEntry, err error) error {
		if err == nil && d.Type().IsRegular() {
			count++
		}
		return nil
	})
	return count
}

// =============================================================================
// Environment Helpers
// =============================================================================

// SkipIfRoot skips tests that rely on permission checks
func SkipIfRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("skipping: permission checks do not apply to root")
	}
}

// SkipIfWindows skips tests that need POSIX semantics
func SkipIfWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping on windows")
	}
}
