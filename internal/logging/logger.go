package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is a log severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Options configures a Logger
type Options struct {
	// File is the audit log path. Empty means log to Output only.
	File       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	// Output receives log lines when File is empty (defaults to stderr).
	Output io.Writer
	// Tee also copies file lines to Output.
	Tee bool
}

// Logger writes timestamped, leveled lines. File output is append-only
// across runs.
type Logger struct {
	mu     sync.Mutex
	logger *log.Logger
	level  Level
	closer io.Closer
	prefix string
}

// New creates a new logger
func New(opts Options) (*Logger, error) {
	var out io.Writer = os.Stderr
	if opts.Output != nil {
		out = opts.Output
	}

	var closer io.Closer
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		// Open once so an unwritable path fails at startup, not on first write
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		f.Close()

		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		if opts.Tee {
			out = io.MultiWriter(lj, out)
		} else {
			out = lj
		}
		closer = lj
	}

	return &Logger{
		logger: log.New(out, "", log.LstdFlags),
		level:  ParseLevel(opts.Level),
		closer: closer,
	}, nil
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return &Logger{logger: log.New(io.Discard, "", 0), level: LevelError + 1}
}

// WithRunID returns a logger sharing the same output whose lines are tagged with id
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		logger: l.logger,
		level:  l.level,
		prefix: "[run " + id + "] ",
	}
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(LevelInfo, "[INFO] ", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(LevelError, "[ERROR] ", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(LevelWarn, "[WARN] ", format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(LevelDebug, "[DEBUG] ", format, args...)
}

func (l *Logger) logf(level Level, tag, format string, args ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Printf(tag+l.prefix+format, args...)
}

// Close closes the underlying log file, if any
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
