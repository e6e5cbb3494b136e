package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/dircompress/internal/config"
	"github.com/fenilsonani/dircompress/internal/daemon"
	"github.com/fenilsonani/dircompress/internal/platform"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, daemon.ErrTerminated) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(daemon.ExitCode(err))
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime)
}

func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "dircompress",
		Short: "Compress large files in a directory tree",
		Long: `dircompress walks a directory, gzips every file at or above a size
threshold that is not already compressed or media, and reports the space saved.

It detaches into the background unless --foreground is given, keeps an
append-only audit log and can email the report when it is done.`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")

	load := func() (*config.Config, error) {
		return loadConfig(configPath)
	}

	rootCmd.AddCommand(newRunCommand(load))
	rootCmd.AddCommand(newScanCommand(load))
	rootCmd.AddCommand(newStopCommand(load))
	rootCmd.AddCommand(newStatusCommand(load))
	rootCmd.AddCommand(newHistoryCommand(load))
	rootCmd.AddCommand(newConfigCommand(&configPath))
	rootCmd.AddCommand(newVersionCommand())

	// Flag parse errors are invocation errors
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", config.ErrInvalidInvocation, err)
	})

	return rootCmd
}

// loadConfig reads the config file and fills unset file locations with the
// platform defaults
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		p, err := config.GetConfigPath()
		if err != nil {
			return nil, &daemon.ExitError{Code: daemon.ExitStartup, Err: err}
		}
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, &daemon.ExitError{Code: daemon.ExitStartup, Err: fmt.Errorf("failed to load config: %w", err)}
	}

	paths, err := platform.DefaultPaths()
	if err != nil {
		return nil, &daemon.ExitError{Code: daemon.ExitStartup, Err: err}
	}
	cfg.ResolvePaths(paths)
	return cfg, nil
}
