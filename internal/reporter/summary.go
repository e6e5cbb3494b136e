package reporter

import (
	"time"

	"github.com/fenilsonani/dircompress/internal/compressor"
	"github.com/fenilsonani/dircompress/internal/scanner"
)

// RunInfo describes a run independent of its results
type RunInfo struct {
	RunID       string
	Target      string
	Started     time.Time
	Finished    time.Time
	DryRun      bool
	MinSize     int64
	MinSizeText string
	// ScanErrors counts directories and files that could not be read
	ScanErrors int
}

// CompressedFile is one successfully compressed (or, in a dry run, measured) file
type CompressedFile struct {
	Path           string `json:"path" yaml:"path"`
	OriginalSize   int64  `json:"original_size" yaml:"original_size"`
	CompressedSize int64  `json:"compressed_size" yaml:"compressed_size"`
	Saved          int64  `json:"saved" yaml:"saved"`
}

// ExcludedFile is a file skipped because of its content type
type ExcludedFile struct {
	Path     string `json:"path" yaml:"path"`
	MIME     string `json:"mime" yaml:"mime"`
	Category string `json:"category" yaml:"category"`
}

// FailedFile is a file that could not be compressed
type FailedFile struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

// Summary is the immutable outcome of one run. Build it with NewSummary.
type Summary struct {
	RunID         string           `json:"run_id" yaml:"run_id"`
	Target        string           `json:"target" yaml:"target"`
	Timestamp     time.Time        `json:"timestamp" yaml:"timestamp"`
	Duration      time.Duration    `json:"duration_ns" yaml:"duration"`
	DryRun        bool             `json:"dry_run" yaml:"dry_run"`
	MinSize       int64            `json:"min_size" yaml:"min_size"`
	MinSizeText   string           `json:"min_size_text,omitempty" yaml:"min_size_text,omitempty"`
	SavedBytes    int64            `json:"saved_bytes" yaml:"saved_bytes"`
	Compressed    []CompressedFile `json:"compressed" yaml:"compressed"`
	ExcludedType  []ExcludedFile   `json:"excluded_type" yaml:"excluded_type"`
	TooSmall      int              `json:"too_small" yaml:"too_small"`
	TooSmallBytes int64            `json:"too_small_bytes" yaml:"too_small_bytes"`
	Failed        []FailedFile     `json:"failed" yaml:"failed"`
	ScanErrors    int              `json:"scan_errors" yaml:"scan_errors"`
	Interrupted   bool             `json:"interrupted" yaml:"interrupted"`
}

// NewSummary aggregates a classification and a compression result.
// Either may be nil, for example when only a scan was requested.
func NewSummary(info RunInfo, cls *scanner.Classification, res *compressor.Result) Summary {
	s := Summary{
		RunID:        info.RunID,
		Target:       info.Target,
		Timestamp:    info.Started,
		DryRun:       info.DryRun,
		MinSize:      info.MinSize,
		MinSizeText:  info.MinSizeText,
		ScanErrors:   info.ScanErrors,
		Compressed:   []CompressedFile{},
		ExcludedType: []ExcludedFile{},
		Failed:       []FailedFile{},
	}
	if !info.Finished.IsZero() && !info.Started.IsZero() {
		s.Duration = info.Finished.Sub(info.Started)
	}

	if cls != nil {
		for _, f := range cls.ExcludedType {
			s.ExcludedType = append(s.ExcludedType, ExcludedFile{Path: f.Path, MIME: f.MIME, Category: f.Category})
		}
		s.TooSmall = len(cls.TooSmall)
		for _, f := range cls.TooSmall {
			s.TooSmallBytes += f.Size
		}
	}

	if res != nil {
		s.Interrupted = res.Interrupted
		for _, o := range res.Outcomes {
			if o.Success {
				s.Compressed = append(s.Compressed, CompressedFile{
					Path:           o.Path,
					OriginalSize:   o.OriginalSize,
					CompressedSize: o.CompressedSize,
					Saved:          o.Saved,
				})
				s.SavedBytes += o.Saved
				continue
			}
			s.Failed = append(s.Failed, FailedFile{Path: o.Path, Reason: o.Reason()})
		}
	}

	return s
}

// Status is a one-word outcome used in subjects and history rows
func (s Summary) Status() string {
	switch {
	case s.Interrupted:
		return "interrupted"
	case len(s.Failed) > 0:
		return "partial"
	default:
		return "ok"
	}
}

// HasFailures reports whether any file failed to compress
func (s Summary) HasFailures() bool {
	return len(s.Failed) > 0
}

// CompressedPaths returns the paths of all compressed files
func (s Summary) CompressedPaths() []string {
	paths := make([]string, len(s.Compressed))
	for i, f := range s.Compressed {
		paths[i] = f.Path
	}
	return paths
}

// ExcludedPaths returns the paths of all excluded-type files
func (s Summary) ExcludedPaths() []string {
	paths := make([]string, len(s.ExcludedType))
	for i, f := range s.ExcludedType {
		paths[i] = f.Path
	}
	return paths
}
