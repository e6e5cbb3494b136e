package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/dircompress/internal/config"
	"github.com/fenilsonani/dircompress/internal/daemon"
	"github.com/fenilsonani/dircompress/internal/testutil"
)

type cliTestEnv struct {
	fixture    *testutil.TestFixture
	cfg        *config.Config
	configPath string
	stateDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "home", ".config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "home", ".local", "state"))
	t.Setenv(daemon.StageEnv, "")

	stateDir := filepath.Join(base, "state")
	cfg := config.GetDefault()
	cfg.Daemon.LockFile = filepath.Join(stateDir, "dircompress.lock")
	cfg.Daemon.PidFile = filepath.Join(stateDir, "dircompress.pid")
	cfg.Daemon.LogFile = filepath.Join(stateDir, "dircompress.log")
	cfg.Report.Path = filepath.Join(stateDir, "last-report.txt")
	cfg.History.Path = filepath.Join(stateDir, "history.db")

	configPath := filepath.Join(base, "config.yaml")
	require.NoError(t, config.Save(cfg, configPath))

	return &cliTestEnv{
		fixture:    testutil.NewFixture(t),
		cfg:        cfg,
		configPath: configPath,
		stateDir:   stateDir,
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "scan", "stop", "status", "history", "config", "version"} {
		assert.Contains(t, names, want)
	}

	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	for short, long := range map[string]string{"d": "dir", "s": "size", "e": "email"} {
		f := run.Flags().ShorthandLookup(short)
		require.NotNil(t, f, short)
		assert.Equal(t, long, f.Name)
	}
	for _, name := range []string{"dry-run", "foreground", "format", "report"} {
		assert.NotNil(t, run.Flags().Lookup(name), name)
	}
}

func TestVersionCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dircompress "+Version)
	assert.Contains(t, out, "commit:")
}

// =============================================================================
// run
// =============================================================================

func TestRunForegroundCompresses(t *testing.T) {
	env := setupCLITestEnv(t)
	f := env.fixture
	content := testutil.TextContent(2048)
	big := f.CreateFile("a.txt", content)
	small := f.CreateTextFile("b.txt", 500)
	photo := f.CreateJPEG("c.jpg", 4096)

	out, stderr, err := runCLI(t, env, "run", "--foreground", "-d", f.RootDir, "-s", "1K", "--format", "json")
	require.NoError(t, err, stderr)
	assert.Equal(t, daemon.ExitOK, daemon.ExitCode(err))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	assert.Equal(t, "ok", doc["status"])
	assert.Greater(t, doc["saved_bytes"], float64(0))
	assert.Len(t, doc["compressed"], 1)
	assert.Len(t, doc["excluded_type"], 1)
	assert.Equal(t, float64(1), doc["too_small"])

	f.AssertFileNotExists(big)
	f.AssertGzipContent(big+".gz", content)
	f.AssertFileExists(small)
	f.AssertFileExists(photo)

	assert.Contains(t, stderr, "[INFO]")
	assert.FileExists(t, env.cfg.Report.Path)
	assert.NoFileExists(t, env.cfg.Daemon.PidFile)

	hist, _, err := runCLI(t, env, "history")
	require.NoError(t, err)
	assert.Contains(t, hist, f.RootDir)
	assert.Contains(t, hist, "ok")
	assert.Contains(t, hist, "Total")
}

func TestRunDryRunReportFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	f := env.fixture
	content := testutil.TextContent(4096)
	big := f.CreateFile("logs/app.log", content)
	reportPath := filepath.Join(env.stateDir, "custom", "report.yaml")

	out, stderr, err := runCLI(t, env, "run", "--foreground", "--dry-run",
		"-d", f.RootDir+"/", "-s", "1K", "--format", "yaml", "--report", reportPath)
	require.NoError(t, err, stderr)

	assert.Contains(t, out, "dry_run: true")
	f.AssertFileContent(big, content)
	f.AssertFileNotExists(big + ".gz")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dry_run: true")
}

func TestRunInvalidInvocation(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := env.fixture.RootDir

	tests := []struct {
		name string
		args []string
	}{
		{"bad size", []string{"run", "--foreground", "-d", dir, "-s", "1X"}},
		{"missing directory", []string{"run", "--foreground", "-d", filepath.Join(dir, "nope"), "-s", "1K"}},
		{"not a directory", []string{"run", "--foreground", "-d", env.fixture.CreateTextFile("f.txt", 10), "-s", "1K"}},
		{"bad email", []string{"run", "--foreground", "-d", dir, "-s", "1K", "-e", "not-an-address"}},
		{"bad format", []string{"run", "--foreground", "-d", dir, "-s", "1K", "--format", "xml"}},
		{"unknown flag", []string{"run", "--nope"}},
		{"extra argument", []string{"run", "--foreground", "-d", dir, "-s", "1K", "extra"}},
		{"protected root", []string{"run", "--foreground", "-d", "/", "-s", "1K"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, env, tt.args...)
			require.Error(t, err)
			assert.Equal(t, daemon.ExitUsage, daemon.ExitCode(err), err.Error())
		})
	}
}

func TestRunLockHeld(t *testing.T) {
	env := setupCLITestEnv(t)
	f := env.fixture
	big := f.CreateTextFile("a.txt", 2048)

	require.NoError(t, os.MkdirAll(env.stateDir, 0700))
	lock := daemon.NewLock(env.cfg.Daemon.LockFile, env.cfg.Daemon.PidFile)
	require.NoError(t, lock.Acquire())
	defer lock.Release()

	// Foreground fails inside the controller
	_, _, err := runCLI(t, env, "run", "--foreground", "-d", f.RootDir, "-s", "1K")
	assert.Equal(t, daemon.ExitStartup, daemon.ExitCode(err))
	assert.ErrorIs(t, err, daemon.ErrAlreadyRunning)

	// Background mode fails before detaching
	_, _, err = runCLI(t, env, "run", "-d", f.RootDir, "-s", "1K")
	assert.Equal(t, daemon.ExitStartup, daemon.ExitCode(err))

	f.AssertFileExists(big)
}

func TestRunLoggerUnwritableFile(t *testing.T) {
	testutil.SkipIfRoot(t)
	env := setupCLITestEnv(t)

	ro := env.fixture.CreateReadOnlyDir("ro")
	env.cfg.Daemon.LogFile = filepath.Join(ro, "sub", "dircompress.log")

	_, err := newRunLogger(env.cfg, true, &bytes.Buffer{})
	assert.Error(t, err)

	env.cfg.Daemon.LogFile = ""
	_, err = newRunLogger(env.cfg, true, &bytes.Buffer{})
	assert.Error(t, err)
	_, err = newRunLogger(env.cfg, false, &bytes.Buffer{})
	assert.Error(t, err)

	env.cfg.Daemon.LogFile = filepath.Join(env.stateDir, "dircompress.log")
	logger, err := newRunLogger(env.cfg, false, &bytes.Buffer{})
	require.NoError(t, err)
	assert.NoError(t, logger.Close())
}

func TestRunForegroundAppendsAuditLog(t *testing.T) {
	env := setupCLITestEnv(t)
	f := env.fixture
	first := f.CreateTextFile("first/a.txt", 4096)

	_, stderr, err := runCLI(t, env, "run", "--foreground", "-d", filepath.Dir(first), "-s", "1K")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, first)

	data, err := os.ReadFile(env.cfg.Daemon.LogFile)
	require.NoError(t, err)
	firstLog := string(data)
	assert.Contains(t, firstLog, first)

	second := f.CreateTextFile("second/b.txt", 4096)
	_, stderr, err = runCLI(t, env, "run", "--foreground", "-d", filepath.Dir(second), "-s", "1K")
	require.NoError(t, err, stderr)

	data, err = os.ReadFile(env.cfg.Daemon.LogFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), firstLog), "second run rewrote earlier log lines")
	assert.Greater(t, len(data), len(firstLog))
	assert.Contains(t, string(data), second)
}

// =============================================================================
// scan
// =============================================================================

func TestScanDoesNotModify(t *testing.T) {
	env := setupCLITestEnv(t)
	f := env.fixture
	content := testutil.TextContent(2048)
	big := f.CreateFile("a.txt", content)
	f.CreateTextFile("b.txt", 100)
	f.CreateGzip("old.gz", 4096)

	out, _, err := runCLI(t, env, "scan", "-d", f.RootDir, "-s", "1K")
	require.NoError(t, err)

	assert.Contains(t, out, "Would compress (1,")
	assert.Contains(t, out, big)
	assert.Contains(t, out, "old.gz (application/gzip)")
	assert.Contains(t, out, "below minimum size: 1 files")

	f.AssertFileContent(big, content)
	f.AssertFileNotExists(big + ".gz")
	assert.NoFileExists(t, env.cfg.History.Path)
}

func TestScanJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	f := env.fixture
	f.CreateTextFile("a.txt", 2048)

	out, _, err := runCLI(t, env, "scan", "-d", f.RootDir, "-s", "1K", "--format", "json")
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, float64(2048), doc["eligible_bytes"])
}

// =============================================================================
// status, stop, history, config
// =============================================================================

func TestStatusAndStopWhenIdle(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: not running")
	assert.NoFileExists(t, env.cfg.Daemon.LockFile)

	out, _, err = runCLI(t, env, "stop")
	require.NoError(t, err)
	assert.Contains(t, out, "not running")
}

func TestStatusWhileLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	require.NoError(t, os.MkdirAll(env.stateDir, 0700))

	lock := daemon.NewLock(env.cfg.Daemon.LockFile, env.cfg.Daemon.PidFile)
	require.NoError(t, lock.Acquire())
	defer lock.Release()

	out, _, err := runCLI(t, env, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: running (pid ")

	// The lock holder is this process, which stop refuses to signal
	_, _, err = runCLI(t, env, "stop")
	assert.Error(t, err)
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded yet")
	assert.NoFileExists(t, env.cfg.History.Path)
}

func TestHistoryJSONAndStatusLastRun(t *testing.T) {
	env := setupCLITestEnv(t)
	f := env.fixture
	f.CreateTextFile("a.txt", 2048)

	_, stderr, err := runCLI(t, env, "run", "--foreground", "--dry-run", "-d", f.RootDir, "-s", "1K")
	require.NoError(t, err, stderr)

	out, _, err := runCLI(t, env, "history", "--json", "--limit", "1")
	require.NoError(t, err)
	var runs []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, true, runs[0]["DryRun"])

	out, _, err = runCLI(t, env, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Last run:")
}

func TestConfigInit(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(t.TempDir(), "fresh", "config.yaml")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "config", "--init"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Wrote default configuration to "+path)

	out.Reset()
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "config"})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "Config file: "+path))
	assert.Contains(t, out.String(), "Report:")

	show, _, err := runCLI(t, env, "config")
	require.NoError(t, err)
	assert.Contains(t, show, env.cfg.Daemon.LogFile)
}
