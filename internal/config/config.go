package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/dircompress/internal/platform"
	"github.com/fenilsonani/dircompress/pkg/utils"
)

// Config represents the application configuration
type Config struct {
	// Target, MinSize and Email are used when the command line leaves them out,
	// which is how scheduled daemon runs get their arguments.
	Target         string             `yaml:"target"`
	MinSize        string             `yaml:"min_size"`
	Email          string             `yaml:"email"`
	DryRun         bool               `yaml:"dry_run"`
	FollowSymlinks bool               `yaml:"follow_symlinks"`
	Compression    CompressionConfig  `yaml:"compression"`
	ProtectedPaths []string           `yaml:"protected_paths"`
	Report         ReportConfig       `yaml:"report"`
	Daemon         DaemonConfig       `yaml:"daemon"`
	Notifications  NotificationConfig `yaml:"notifications"`
	History        HistoryConfig      `yaml:"history"`
}

// CompressionConfig holds gzip settings
type CompressionConfig struct {
	Level  int  `yaml:"level"`  // -2 (huffman only) to 9 (best), -1 default
	Verify bool `yaml:"verify"` // decompress and checksum every artifact
}

// ReportConfig controls the per-run report file
type ReportConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // summary, table, json, yaml
}

// DaemonConfig holds daemon mode configuration
type DaemonConfig struct {
	PidFile       string `yaml:"pid_file"`
	LockFile      string `yaml:"lock_file"`
	LogFile       string `yaml:"log_file"`
	LogLevel      string `yaml:"log_level"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`
	LogCompress   bool   `yaml:"log_compress"`
	// Schedule is an optional cron expression. Empty means a single run.
	Schedule string `yaml:"schedule"`
}

// NotificationConfig holds notification settings
type NotificationConfig struct {
	Enabled   bool          `yaml:"enabled"`
	OnSuccess bool          `yaml:"on_success"`
	OnFailure bool          `yaml:"on_failure"`
	Email     EmailConfig   `yaml:"email"`
	Webhook   WebhookConfig `yaml:"webhook"`
}

// EmailConfig holds email notification settings
type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	UseTLS   bool     `yaml:"use_tls"`
}

// WebhookConfig holds webhook notification settings
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	Headers map[string]string `yaml:"headers"`
}

// HistoryConfig controls the run history database
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ReportFormats lists the accepted report formats
var ReportFormats = []string{"summary", "table", "json", "yaml"}

// Load loads configuration from a file
func Load(configPath string) (*Config, error) {
	// If config doesn't exist, return default config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefault(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unset keys keep their defaults
	config := GetDefault()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func Save(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may hold SMTP credentials
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MinSize != "" {
		if _, err := utils.ParseSize(c.MinSize); err != nil {
			return fmt.Errorf("min_size %q must look like 10, 1K, 1.5M or 2G: %w", c.MinSize, err)
		}
	}

	if c.Compression.Level < -2 || c.Compression.Level > 9 {
		return fmt.Errorf("compression level must be between -2 and 9, got %d", c.Compression.Level)
	}

	if c.Report.Format != "" && !isReportFormat(c.Report.Format) {
		return fmt.Errorf("report format must be one of %s, got %q", strings.Join(ReportFormats, ", "), c.Report.Format)
	}

	for _, path := range c.ProtectedPaths {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("protected path must be absolute: %s", path)
		}
	}

	switch strings.ToLower(c.Daemon.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Daemon.LogLevel)
	}

	if c.Daemon.LogMaxSizeMB < 0 || c.Daemon.LogMaxBackups < 0 || c.Daemon.LogMaxAgeDays < 0 {
		return fmt.Errorf("log rotation limits must be >= 0")
	}

	if c.Daemon.Schedule != "" {
		if _, err := cron.ParseStandard(c.Daemon.Schedule); err != nil {
			return fmt.Errorf("invalid daemon schedule %q: %w", c.Daemon.Schedule, err)
		}
	}

	if c.Notifications.Enabled {
		if err := c.Notifications.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (n *NotificationConfig) validate() error {
	if n.Email.SMTPHost != "" && (n.Email.SMTPPort <= 0 || n.Email.SMTPPort > 65535) {
		return fmt.Errorf("smtp_port must be between 1 and 65535, got %d", n.Email.SMTPPort)
	}

	if n.Webhook.URL != "" {
		u, err := url.Parse(n.Webhook.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("webhook url must be an absolute http(s) URL: %q", n.Webhook.URL)
		}
	}

	return nil
}

// ResolvePaths fills empty file locations from the platform defaults
func (c *Config) ResolvePaths(p *platform.Paths) {
	if p == nil {
		return
	}
	setDefault(&c.Daemon.PidFile, p.PidFile)
	setDefault(&c.Daemon.LockFile, p.LockFile)
	setDefault(&c.Daemon.LogFile, p.LogFile)
	setDefault(&c.Report.Path, p.ReportFile)
	setDefault(&c.History.Path, p.HistoryDB)
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func isReportFormat(format string) bool {
	for _, f := range ReportFormats {
		if f == format {
			return true
		}
	}
	return false
}

// GetConfigPath returns the default config path
func GetConfigPath() (string, error) {
	paths, err := platform.DefaultPaths()
	if err != nil {
		return "", err
	}
	return paths.ConfigFile, nil
}

// EnsureConfigExists writes the commented example config to configPath
// (the default location when empty) unless a file is already there
func EnsureConfigExists(configPath string) (path string, created bool, err error) {
	if configPath == "" {
		if configPath, err = GetConfigPath(); err != nil {
			return "", false, err
		}
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(GetExampleConfig()), 0600); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}
	return configPath, true, nil
}
