package config

// GetDefault returns the default configuration
func GetDefault() *Config {
	return &Config{
		MinSize:        "1K",
		DryRun:         false,
		FollowSymlinks: false,
		Compression: CompressionConfig{
			Level:  -1, // gzip default
			Verify: true,
		},
		ProtectedPaths: []string{},
		Report: ReportConfig{
			Format: "summary",
		},
		Daemon: DaemonConfig{
			LogLevel:      "info",
			LogMaxSizeMB:  10,
			LogMaxBackups: 5,
			LogMaxAgeDays: 90,
			LogCompress:   false,
		},
		Notifications: NotificationConfig{
			Enabled:   false,
			OnSuccess: true,
			OnFailure: true,
			Email: EmailConfig{
				SMTPPort: 587,
				UseTLS:   true,
				To:       []string{},
			},
			Webhook: WebhookConfig{
				Method:  "POST",
				Headers: map[string]string{},
			},
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// GetExampleConfig returns an example configuration with comments
func GetExampleConfig() string {
	return `# dircompress configuration file
# Location: ~/.config/dircompress/config.yaml
# Command line flags override the values below.

# Defaults for -d, -s and -e. Scheduled daemon runs rely on these.
target: ""
min_size: "1K"     # files smaller than this are left alone (10, 1K, 1.5M, 2G)
email: ""

dry_run: false          # compress, measure, then discard the .gz and keep originals
follow_symlinks: false  # descend into symlinked directories (each directory once)

compression:
  level: -1      # -1 default, 1 fastest ... 9 smallest, -2 huffman only
  verify: true   # decompress every artifact and compare checksums before deleting

# Extra directories that may never be used as a target
protected_paths: []

report:
  path: ""           # default: <state dir>/last-report.txt
  format: summary    # summary, table, json, yaml

daemon:
  pid_file: ""
  lock_file: ""
  log_file: ""       # default: <state dir>/dircompress.log
  log_level: info
  log_max_size_mb: 10
  log_max_backups: 5
  log_max_age_days: 90
  log_compress: false
  schedule: ""       # cron expression, e.g. "0 3 * * *"; empty runs once and exits

notifications:
  enabled: false
  on_success: true
  on_failure: true
  email:
    smtp_host: ""
    smtp_port: 587
    username: ""
    password: ""
    from: ""
    to: []
    use_tls: true
  webhook:
    url: ""
    method: POST
    headers: {}

history:
  enabled: true
  path: ""           # default: <state dir>/history.db
`
}
