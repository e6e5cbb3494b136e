package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/fenilsonani/dircompress/internal/config"
	"github.com/fenilsonani/dircompress/internal/daemon"
	"github.com/fenilsonani/dircompress/internal/history"
	"github.com/fenilsonani/dircompress/internal/logging"
	"github.com/fenilsonani/dircompress/internal/reporter"
	"github.com/fenilsonani/dircompress/internal/scanner"
	"github.com/fenilsonani/dircompress/pkg/utils"
)

func newScanCommand(load func() (*config.Config, error)) *cobra.Command {
	var (
		inv    config.Invocation
		format string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Preview which files a run would compress",
		Long:  `Walks and classifies the directory like run does, without writing anything.`,
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			f, err := reporter.ParseFormat(format)
			if err != nil {
				return fmt.Errorf("%w: %v", config.ErrInvalidInvocation, err)
			}

			inv.Email = ""
			req, err := inv.WithDefaults(cfg).Validate(newPathValidator(cfg))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger, err := logging.New(logging.Options{Level: "warn", Output: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}

			walk, err := scanner.Walk(ctx, req.Target, scanner.WalkOptions{FollowSymlinks: cfg.FollowSymlinks})
			if walk == nil {
				return &daemon.ExitError{Code: daemon.ExitStartup, Err: err}
			}
			if err != nil {
				return err
			}

			cls, err := scanner.NewClassifier(scanner.MimeSniffer{}, logger).Classify(ctx, walk.Entries, req.MinSize)
			if err != nil {
				return err
			}

			sr := reporter.NewScanReport(req.Target, req.MinSize, cls, len(walk.Errors))
			return reporter.New(cmd.OutOrStdout(), f).ReportScan(sr)
		},
	}

	cmd.Flags().StringVarP(&inv.Dir, "dir", "d", "", "directory to scan")
	cmd.Flags().StringVarP(&inv.Size, "size", "s", "", "minimum file size, e.g. 10, 1K, 1.5M, 2G")
	cmd.Flags().StringVar(&format, "format", "summary", "output format (summary, table, json, yaml)")

	return cmd
}

func newStopCommand(load func() (*config.Config, error)) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a background run",
		Long: `Sends SIGTERM to the running instance. It finishes the file in progress,
writes its report and exits.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			pid, err := daemon.Stop(cfg.Daemon.LockFile, cfg.Daemon.PidFile, timeout)
			if errors.Is(err, daemon.ErrNotRunning) {
				fmt.Fprintln(cmd.OutOrStdout(), "dircompress is not running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped dircompress (pid %d)\n", pid)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for the current file to finish")
	return cmd
}

func newStatusCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a run is in progress",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			running, pid, err := daemon.Status(cfg.Daemon.LockFile, cfg.Daemon.PidFile)
			if err != nil {
				return err
			}
			switch {
			case running && pid > 0:
				fmt.Fprintf(out, "Status: running (pid %d)\n", pid)
			case running:
				fmt.Fprintln(out, "Status: running")
			default:
				fmt.Fprintln(out, "Status: not running")
			}
			fmt.Fprintf(out, "Log: %s\n", cfg.Daemon.LogFile)

			// Never create the database just to report on it
			if !cfg.History.Enabled || !fileExists(cfg.History.Path) {
				return nil
			}
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), 1)
			if err != nil {
				return err
			}
			if len(runs) > 0 {
				last := runs[0]
				fmt.Fprintf(out, "Last run: %s on %s (%s, saved %s)\n",
					last.StartedAt.Local().Format("2006-01-02 15:04:05"), last.Target, last.Status, utils.FormatBytes(last.SavedBytes))
			}
			return nil
		},
	}
}

func newHistoryCommand(load func() (*config.Config, error)) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !fileExists(cfg.History.Path) {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(runs)
			}

			total, err := store.TotalSaved(cmd.Context())
			if err != nil {
				return err
			}
			return renderHistory(out, runs, total)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")
	return cmd
}

func renderHistory(out io.Writer, runs []history.Run, total int64) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded yet")
		return err
	}

	tw := table.NewWriter()
	tw.SetStyle(reporter.TableStyle())
	tw.AppendHeader(table.Row{"Started", "Target", "Status", "Compressed", "Failed", "Saved", "Took"})
	for _, r := range runs {
		status := r.Status
		if r.DryRun {
			status += " (dry run)"
		}
		tw.AppendRow(table.Row{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Target,
			status,
			r.Compressed,
			r.Failed,
			utils.FormatBytes(r.SavedBytes),
			r.Duration.Round(time.Second).String(),
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "Total", utils.FormatBytes(total), ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})

	_, err := fmt.Fprintln(out, tw.Render())
	return err
}

func newConfigCommand(configPath *string) *cobra.Command {
	var initConfig bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Display or create the configuration file",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if initConfig {
				path, created, err := config.EnsureConfigExists(*configPath)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(out, "Wrote default configuration to %s\n", path)
				} else {
					fmt.Fprintf(out, "Config file already exists: %s\n", path)
				}
				return nil
			}

			path := *configPath
			if path == "" {
				p, err := config.GetConfigPath()
				if err != nil {
					return err
				}
				path = p
			}

			fmt.Fprintf(out, "Config file: %s\n", path)
			if !fileExists(path) {
				fmt.Fprintln(out, "Config file does not exist. Using default configuration.")
				fmt.Fprintln(out, "\nTo create a config file:")
				fmt.Fprintln(out, "  dircompress config --init")
				return nil
			}

			cfg, err := loadConfig(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Log file: %s\n", cfg.Daemon.LogFile)
			fmt.Fprintf(out, "Report: %s (%s)\n", cfg.Report.Path, cfg.Report.Format)
			if cfg.History.Enabled {
				fmt.Fprintf(out, "History: %s\n", cfg.History.Path)
			}
			if cfg.Daemon.Schedule != "" {
				fmt.Fprintf(out, "Schedule: %s\n", cfg.Daemon.Schedule)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&initConfig, "init", false, "write the default configuration if none exists")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dircompress %s\n", versionString())
		},
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
