package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/dircompress/pkg/utils"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatSummary OutputFormat = "summary"
)

// ParseFormat maps a config or flag value to an OutputFormat
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML, FormatSummary:
		return f, nil
	case "":
		return FormatSummary, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Reporter handles report generation
type Reporter struct {
	writer io.Writer
	format OutputFormat
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
	}
}

// Report renders a run summary
func (r *Reporter) Report(s Summary) error {
	switch r.format {
	case FormatTable:
		return r.reportTable(s)
	case FormatJSON:
		return r.reportJSON(s)
	case FormatYAML:
		return r.reportYAML(s)
	case FormatSummary:
		return r.reportSummary(s)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// reportSummary generates a plain text report
func (r *Reporter) reportSummary(s Summary) error {
	w := &errWriter{w: r.writer}

	w.printf("=== Compression Summary ===\n")
	w.printf("Run: %s\n", s.RunID)
	w.printf("Directory: %s\n", s.Target)
	w.printf("Date: %s\n", s.Timestamp.Format(time.RFC1123))
	if s.DryRun {
		w.printf("Mode: dry run (no files were changed)\n")
	}
	w.printf("Minimum size: %s\n", minSizeLabel(s))
	w.printf("Space saved: %s\n", utils.FormatBytes(s.SavedBytes))
	if s.Interrupted {
		w.printf("Status: interrupted by signal, remaining files were left untouched\n")
	}

	w.printf("\nCompressed files (%d):\n", len(s.Compressed))
	for _, f := range s.Compressed {
		w.printf("  %s (%s -> %s, saved %s)\n",
			f.Path, utils.FormatBytes(f.OriginalSize), utils.FormatBytes(f.CompressedSize), utils.FormatBytes(f.Saved))
	}

	w.printf("\nSkipped, already compressed or media (%d):\n", len(s.ExcludedType))
	for _, f := range s.ExcludedType {
		w.printf("  %s (%s)\n", f.Path, f.MIME)
	}

	w.printf("\nSkipped, below minimum size: %d files, %s\n", s.TooSmall, utils.FormatBytes(s.TooSmallBytes))

	if len(s.Failed) > 0 {
		w.printf("\nFailed (%d):\n", len(s.Failed))
		for _, f := range s.Failed {
			w.printf("  %s: %s\n", f.Path, f.Reason)
		}
	}

	if s.ScanErrors > 0 {
		w.printf("\nUnreadable entries: %d\n", s.ScanErrors)
	}

	return w.err
}

// reportJSON generates a JSON report
func (r *Reporter) reportJSON(s Summary) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newDocument(s))
}

// reportYAML generates a YAML report
func (r *Reporter) reportYAML(s Summary) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(newDocument(s))
}

// document adds derived fields for machine readable formats
type document struct {
	Summary             `yaml:",inline"`
	Status              string `json:"status" yaml:"status"`
	SavedBytesFormatted string `json:"saved_bytes_formatted" yaml:"saved_bytes_formatted"`
}

func newDocument(s Summary) document {
	return document{
		Summary:             s,
		Status:              s.Status(),
		SavedBytesFormatted: utils.FormatBytes(s.SavedBytes),
	}
}

// SaveToFile writes the report atomically, replacing any previous report
func SaveToFile(s Summary, path string, format OutputFormat) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := New(tmp, format).Report(s); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	return nil
}

// Render returns the report as a string
func Render(s Summary, format OutputFormat) (string, error) {
	var b strings.Builder
	if err := New(&b, format).Report(s); err != nil {
		return "", err
	}
	return b.String(), nil
}

func minSizeLabel(s Summary) string {
	if s.MinSizeText != "" {
		return fmt.Sprintf("%s (%d bytes)", s.MinSizeText, s.MinSize)
	}
	return utils.FormatBytes(s.MinSize)
}

// errWriter keeps the first write error so the report code stays linear
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
