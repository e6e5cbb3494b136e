package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateTarget(t *testing.T) {
	pv := NewPathValidator()
	tmp := t.TempDir()
	resolvedTmp, _ := filepath.EvalSymlinks(tmp)

	realDir := filepath.Join(tmp, "data")
	os.MkdirAll(realDir, 0755)
	linkDir := filepath.Join(tmp, "link")
	os.Symlink(realDir, linkDir)

	tests := []struct {
		name     string
		path     string
		want     string
		errorMsg string
	}{
		{"temp directory", tmp, resolvedTmp, ""},
		{"unclean path is cleaned", realDir + "/./", filepath.Join(resolvedTmp, "data"), ""},
		{"symlink resolves to target", linkDir, filepath.Join(resolvedTmp, "data"), ""},
		{"empty path", "", "", "empty"},
		{"relative path", "relative/dir", "", "path must be absolute"},
		{"null byte", "/tmp/a\x00b", "", "null byte"},
		{"missing directory", filepath.Join(tmp, "missing"), "", "does not exist"},
		{"root directory", "/", "", "protected path"},
		{"etc directory", "/etc", "", "protected path"},
		{"proc subtree", "/proc/self", "", "pseudo filesystem"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pv.ValidateTarget(tt.path)

			if tt.errorMsg != "" {
				if err == nil {
					t.Fatalf("Expected error containing '%s', got nil", tt.errorMsg)
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateTarget(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestValidateTargetSymlinkIntoProtected(t *testing.T) {
	if _, err := os.Stat("/etc"); err != nil {
		t.Skip("no /etc on this system")
	}
	link := filepath.Join(t.TempDir(), "etc-link")
	if err := os.Symlink("/etc", link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	resolved, _ := filepath.EvalSymlinks("/etc")
	_, err := NewPathValidator().ValidateTarget(link)
	if resolved == "/etc" && err == nil {
		t.Error("expected symlink to /etc to be rejected")
	}
}

func TestIsProtectedPath(t *testing.T) {
	pv := NewPathValidator()

	tests := []struct {
		name        string
		path        string
		isProtected bool
	}{
		{"root directory", "/", true},
		{"etc directory", "/etc", true},
		{"usr directory", "/usr", true},
		{"var directory", "/var", true},
		{"system directory (macOS)", "/System", true},
		{"trailing slash", "/usr/", true},
		{"proc subtree", "/proc/1/fd", true},
		{"sys subtree", "/sys/class", true},
		{"var log", "/var/log", false},
		{"usr share", "/usr/share/doc", false},
		{"home user subdir", "/home/user/logs", false},
		{"temp dir", "/tmp/data", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pv.IsProtectedPath(tt.path)
			if result != tt.isProtected {
				t.Errorf("IsProtectedPath(%s) = %v, want %v", tt.path, result, tt.isProtected)
			}
		})
	}
}

func TestAddProtectedPath(t *testing.T) {
	pv := NewPathValidator()
	if pv.IsProtectedPath("/srv/archive") {
		t.Fatal("/srv/archive should not be protected by default")
	}

	pv.AddProtectedPath("/srv/archive/")
	if !pv.IsProtectedPath("/srv/archive") {
		t.Error("expected custom path to be protected")
	}
	if pv.IsProtectedPath("/srv/archive/2024") {
		t.Error("subdirectories of a custom path remain allowed")
	}
}
