package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fenilsonani/dircompress/internal/platform"
)

// =============================================================================
// GetDefault Tests
// =============================================================================

func TestGetDefault(t *testing.T) {
	cfg := GetDefault()

	if cfg == nil {
		t.Fatal("GetDefault returned nil")
	}
	if cfg.MinSize != "1K" {
		t.Errorf("expected MinSize 1K, got %q", cfg.MinSize)
	}
	if cfg.DryRun {
		t.Error("expected DryRun to be disabled by default")
	}
	if cfg.FollowSymlinks {
		t.Error("expected FollowSymlinks to be disabled by default")
	}
	if !cfg.Compression.Verify {
		t.Error("expected artifact verification to be enabled by default")
	}
	if cfg.Compression.Level != -1 {
		t.Errorf("expected default gzip level -1, got %d", cfg.Compression.Level)
	}
	if cfg.Report.Format != "summary" {
		t.Errorf("expected summary report format, got %q", cfg.Report.Format)
	}
	if cfg.Daemon.Schedule != "" {
		t.Error("expected no schedule by default")
	}
	if !cfg.History.Enabled {
		t.Error("expected history to be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(GetExampleConfig()), 0600); err != nil {
		t.Fatalf("failed to write example config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
	def := GetDefault()
	if cfg.MinSize != def.MinSize || cfg.Compression != def.Compression || cfg.Report.Format != def.Report.Format {
		t.Errorf("example config drifted from defaults: %+v", cfg)
	}
}

// =============================================================================
// Load / Save Tests
// =============================================================================

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load should not error for non-existent file: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.MinSize != "1K" {
		t.Error("expected default config")
	}
}

func TestLoadValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
target: /srv/logs
min_size: 1.5M
email: ops@example.com
dry_run: true
follow_symlinks: true
compression:
  level: 9
  verify: false
report:
  format: json
daemon:
  log_level: debug
  schedule: "0 3 * * *"
notifications:
  enabled: true
  webhook:
    url: https://hooks.example.com/run
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Target != "/srv/logs" {
		t.Errorf("expected target /srv/logs, got %q", cfg.Target)
	}
	if cfg.MinSize != "1.5M" {
		t.Errorf("expected min_size 1.5M, got %q", cfg.MinSize)
	}
	if !cfg.DryRun || !cfg.FollowSymlinks {
		t.Error("expected dry_run and follow_symlinks to be true")
	}
	if cfg.Compression.Level != 9 || cfg.Compression.Verify {
		t.Errorf("unexpected compression config %+v", cfg.Compression)
	}
	if cfg.Report.Format != "json" {
		t.Errorf("expected json format, got %q", cfg.Report.Format)
	}
	if cfg.Daemon.Schedule != "0 3 * * *" {
		t.Errorf("unexpected schedule %q", cfg.Daemon.Schedule)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
compression:
  level: 1
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Compression.Level != 1 {
		t.Errorf("expected level 1, got %d", cfg.Compression.Level)
	}
	// Defaults are kept for unspecified values
	if !cfg.Compression.Verify {
		t.Error("expected verify default to survive a partial compression block")
	}
	if cfg.Daemon.LogMaxBackups != 5 {
		t.Errorf("expected default log backups 5, got %d", cfg.Daemon.LogMaxBackups)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "compression: [invalid\n"},
		{"bad min size", "min_size: 10KB\n"},
		{"min size overflow", "min_size: 10000000000G\n"},
		{"bad level", "compression:\n  level: 12\n"},
		{"bad format", "report:\n  format: xml\n"},
		{"relative protected path", "protected_paths:\n  - relative/dir\n"},
		{"bad log level", "daemon:\n  log_level: loud\n"},
		{"bad schedule", "daemon:\n  schedule: \"every day\"\n"},
		{"negative rotation", "daemon:\n  log_max_backups: -1\n"},
		{"bad webhook", "notifications:\n  enabled: true\n  webhook:\n    url: ftp://example.com\n"},
		{"bad smtp port", "notifications:\n  enabled: true\n  email:\n    smtp_host: mail\n    smtp_port: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}
			if _, err := Load(configPath); err == nil {
				t.Error("expected Load to fail")
			}
		})
	}
}

func TestSaveConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

	cfg := GetDefault()
	cfg.Target = "/data"
	cfg.Notifications.Email.Password = "secret"

	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %o, want 600", info.Mode().Perm())
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Target != "/data" || loaded.Notifications.Email.Password != "secret" {
		t.Errorf("saved config not loaded back: %+v", loaded)
	}
}

func TestResolvePaths(t *testing.T) {
	cfg := GetDefault()
	cfg.Daemon.LogFile = "/custom/log"

	p := platform.PathsFor(platform.Linux, "/home/u", func(string) string { return "" })
	cfg.ResolvePaths(p)

	if cfg.Daemon.LogFile != "/custom/log" {
		t.Errorf("explicit log file overwritten: %q", cfg.Daemon.LogFile)
	}
	if cfg.Daemon.PidFile != p.PidFile || cfg.Daemon.LockFile != p.LockFile {
		t.Errorf("pid/lock not resolved: %+v", cfg.Daemon)
	}
	if cfg.Report.Path != p.ReportFile || cfg.History.Path != p.HistoryDB {
		t.Errorf("report/history not resolved")
	}

	cfg.ResolvePaths(nil)
}

// =============================================================================
// Invocation Tests
// =============================================================================

func TestInvocationValidate(t *testing.T) {
	dir := t.TempDir()
	resolved, _ := filepath.EvalSymlinks(dir)
	file := filepath.Join(dir, "plain.txt")
	os.WriteFile(file, []byte("x"), 0644)

	tests := []struct {
		name     string
		inv      Invocation
		wantErr  string
		wantSize int64
	}{
		{"valid", Invocation{Dir: dir, Size: "1K"}, "", 1024},
		{"trailing separator", Invocation{Dir: dir + "///", Size: "1.5M"}, "", 1572864},
		{"zero size", Invocation{Dir: dir, Size: "0"}, "", 0},
		{"missing dir", Invocation{Dir: filepath.Join(dir, "nope"), Size: "1K"}, "does not exist", 0},
		{"file as dir", Invocation{Dir: file, Size: "1K"}, "not a directory", 0},
		{"empty dir", Invocation{Size: "1K"}, "no directory", 0},
		{"empty size", Invocation{Dir: dir}, "size is required", 0},
		{"bad size", Invocation{Dir: dir, Size: "1KB"}, "must look like", 0},
		{"negative size", Invocation{Dir: dir, Size: "-1"}, "must look like", 0},
		{"overflowing size", Invocation{Dir: dir, Size: "10000000000G"}, "too large", 0},
		{"bad email", Invocation{Dir: dir, Size: "1K", Email: "not-an-email"}, "not a valid address", 0},
		{"protected root", Invocation{Dir: "/", Size: "1K"}, "protected", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.inv.Validate(nil)

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error %q does not contain %q", err, tt.wantErr)
				}
				if !isInvalidInvocation(err) {
					t.Errorf("error should wrap ErrInvalidInvocation: %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Target != resolved {
				t.Errorf("Target = %q, want %q", req.Target, resolved)
			}
			if req.MinSize != tt.wantSize {
				t.Errorf("MinSize = %d, want %d", req.MinSize, tt.wantSize)
			}
		})
	}
}

func TestInvocationEmail(t *testing.T) {
	dir := t.TempDir()

	req, err := Invocation{Dir: dir, Size: "1K", Email: "Ops Team <ops@example.com>"}.Validate(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Email != "ops@example.com" {
		t.Errorf("Email = %q, want bare address", req.Email)
	}
}

func TestInvocationWithDefaults(t *testing.T) {
	cfg := GetDefault()
	cfg.Target = "/from/config"
	cfg.Email = "cfg@example.com"
	cfg.DryRun = true

	inv := Invocation{Size: "2G"}.WithDefaults(cfg)
	if inv.Dir != "/from/config" || inv.Size != "2G" || inv.Email != "cfg@example.com" || !inv.DryRun {
		t.Errorf("unexpected merge result %+v", inv)
	}

	flags := Invocation{Dir: "/flag", Email: "flag@example.com"}.WithDefaults(cfg)
	if flags.Dir != "/flag" || flags.Size != "1K" || flags.Email != "flag@example.com" {
		t.Errorf("flags should win over config: %+v", flags)
	}
}

func isInvalidInvocation(err error) bool {
	return errors.Is(err, ErrInvalidInvocation)
}

func TestEnsureConfigExists(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	path, created, err := EnsureConfigExists(configPath)
	if err != nil {
		t.Fatalf("EnsureConfigExists failed: %v", err)
	}
	if path != configPath || !created {
		t.Errorf("got (%q, %v), want (%q, true)", path, created, configPath)
	}

	if _, err := Load(configPath); err != nil {
		t.Errorf("example config does not load: %v", err)
	}

	if err := os.WriteFile(configPath, []byte("min_size: 2M\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, created, err := EnsureConfigExists(configPath); err != nil || created {
		t.Errorf("existing config must be kept, created=%v err=%v", created, err)
	}
	cfg, err := Load(configPath)
	if err != nil || cfg.MinSize != "2M" {
		t.Errorf("existing config overwritten: %+v %v", cfg, err)
	}
}
