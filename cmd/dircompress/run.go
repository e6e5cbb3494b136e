package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/dircompress/internal/config"
	"github.com/fenilsonani/dircompress/internal/daemon"
	"github.com/fenilsonani/dircompress/internal/history"
	"github.com/fenilsonani/dircompress/internal/logging"
	"github.com/fenilsonani/dircompress/internal/notify"
	"github.com/fenilsonani/dircompress/internal/progress"
	"github.com/fenilsonani/dircompress/internal/reporter"
	"github.com/fenilsonani/dircompress/internal/scanner"
	"github.com/fenilsonani/dircompress/internal/security"
	"github.com/fenilsonani/dircompress/internal/ui"
)

type runOptions struct {
	foreground bool
	format     string
	reportPath string
}

func newRunCommand(load func() (*config.Config, error)) *cobra.Command {
	var (
		inv  config.Invocation
		opts runOptions
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compress eligible files under a directory",
		Long: `Compresses every regular file under --dir whose size is at least --size
and whose content is not already compressed or media. Each file is replaced by
<file>.gz once the archive has been written and verified.

Without --foreground the work continues in a detached background process and
the command returns immediately. With --dry-run the savings are measured but
every file is left as it was.`,
		Example: `  dircompress run -d /var/data -s 1M
  dircompress run -d ./logs -s 500K -e ops@example.com --dry-run --foreground`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runCompress(cmd, cfg, inv, opts)
		},
	}

	cmd.Flags().StringVarP(&inv.Dir, "dir", "d", "", "directory to compress")
	cmd.Flags().StringVarP(&inv.Size, "size", "s", "", "minimum file size, e.g. 10, 1K, 1.5M, 2G")
	cmd.Flags().StringVarP(&inv.Email, "email", "e", "", "email the report to this address")
	cmd.Flags().BoolVar(&inv.DryRun, "dry-run", false, "measure savings without changing any file")
	cmd.Flags().BoolVar(&opts.foreground, "foreground", false, "run in the foreground instead of detaching")
	cmd.Flags().StringVar(&opts.format, "format", "", "report format (summary, table, json, yaml)")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "write the report to this file")

	return cmd
}

func runCompress(cmd *cobra.Command, cfg *config.Config, inv config.Invocation, opts runOptions) error {
	out := cmd.OutOrStdout()

	if opts.reportPath != "" {
		// Resolved now; the detached process runs from /
		path, err := filepath.Abs(opts.reportPath)
		if err != nil {
			return fmt.Errorf("%w: report path: %v", config.ErrInvalidInvocation, err)
		}
		cfg.Report.Path = path
	}
	if opts.format != "" {
		format, err := reporter.ParseFormat(opts.format)
		if err != nil {
			return fmt.Errorf("%w: %v", config.ErrInvalidInvocation, err)
		}
		cfg.Report.Format = string(format)
	}

	req, err := inv.WithDefaults(cfg).Validate(newPathValidator(cfg))
	if err != nil {
		return err
	}

	state := daemon.StateForeground
	if !opts.foreground {
		detacher, err := daemon.NewDetacher()
		if err != nil {
			return err
		}
		started := detacher.State()
		if started == daemon.StateForeground {
			// Fail here, while the user can still see the error
			if running, pid, _ := daemon.Status(cfg.Daemon.LockFile, cfg.Daemon.PidFile); running {
				return &daemon.ExitError{Code: daemon.ExitStartup, Err: fmt.Errorf("%w (pid %d)", daemon.ErrAlreadyRunning, pid)}
			}
		}

		exit, err := detacher.Detach()
		if err != nil {
			return err
		}
		if exit {
			if started == daemon.StateForeground {
				fmt.Fprintf(out, "Compressing %s in the background\n", req.Target)
				fmt.Fprintf(out, "Log: %s\n", cfg.Daemon.LogFile)
				if cfg.Report.Path != "" {
					fmt.Fprintf(out, "Report: %s\n", cfg.Report.Path)
				}
			}
			return nil
		}
		state = detacher.State()
	}

	// The live display owns the terminal, so only plain foreground runs echo
	// the audit log to stderr
	interactive := opts.foreground && ui.IsTerminal(out)

	logger, err := newRunLogger(cfg, opts.foreground && !interactive, cmd.ErrOrStderr())
	if err != nil {
		return &daemon.ExitError{Code: daemon.ExitStartup, Err: fmt.Errorf("log unavailable: %w", err)}
	}
	defer logger.Close()

	var store *history.Store
	if cfg.History.Enabled && cfg.History.Path != "" {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("Run history disabled: %v", err)
			store = nil
		}
		defer store.Close()
	}

	ctrlOpts := daemon.Options{
		Sniffer:      scanner.MimeSniffer{},
		Notifier:     notify.New(&cfg.Notifications, logger),
		History:      store,
		InitialState: state,
	}

	var live *ui.LiveProgress
	if interactive {
		ctrlOpts.Progress = progress.NewProgressReporter()
		live = ui.StartLiveProgress(ctrlOpts.Progress, req.Target, out)
	}

	summary, runErr := daemon.New(cfg, req, logger, ctrlOpts).Run(cmd.Context())
	if live != nil {
		live.Stop()
	}

	if state == daemon.StateDetached || summary.RunID == "" {
		return runErr
	}
	if err := printSummary(out, summary, cfg.Report.Format, opts.format == ""); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// printSummary styles the summary for a terminal unless a format was asked for
func printSummary(out io.Writer, s reporter.Summary, format string, styled bool) error {
	if styled && ui.IsTerminal(out) {
		_, err := fmt.Fprintln(out, ui.RenderSummary(s, ui.TerminalWidth(out)))
		return err
	}
	f, err := reporter.ParseFormat(format)
	if err != nil {
		f = reporter.FormatSummary
	}
	return reporter.New(out, f).Report(s)
}

// newRunLogger opens the audit log every run appends to. With echo set the
// lines are copied to stderr as well.
func newRunLogger(cfg *config.Config, echo bool, stderr io.Writer) (*logging.Logger, error) {
	if cfg.Daemon.LogFile == "" {
		return nil, fmt.Errorf("no log file configured")
	}
	return logging.New(logging.Options{
		File:       cfg.Daemon.LogFile,
		Level:      cfg.Daemon.LogLevel,
		MaxSizeMB:  cfg.Daemon.LogMaxSizeMB,
		MaxBackups: cfg.Daemon.LogMaxBackups,
		MaxAgeDays: cfg.Daemon.LogMaxAgeDays,
		Compress:   cfg.Daemon.LogCompress,
		Output:     stderr,
		Tee:        echo,
	})
}

func newPathValidator(cfg *config.Config) *security.PathValidator {
	pv := security.NewPathValidator()
	for _, p := range cfg.ProtectedPaths {
		pv.AddProtectedPath(p)
	}
	return pv
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: unexpected argument %q for %q", config.ErrInvalidInvocation, args[0], cmd.CommandPath())
	}
	return nil
}
