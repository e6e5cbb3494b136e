package compressor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/fenilsonani/dircompress/internal/logging"
	"github.com/fenilsonani/dircompress/internal/progress"
	"github.com/fenilsonani/dircompress/internal/scanner"
	"github.com/fenilsonani/dircompress/pkg/utils"
)

// ArtifactSuffix is appended to a file's path to name its compressed copy
const ArtifactSuffix = ".gz"

// Options controls how files are compressed
type Options struct {
	DryRun bool
	// Level is a gzip level from gzip.HuffmanOnly (-2) to gzip.BestCompression (9)
	Level int
	// Verify decompresses every artifact and compares it with the original
	Verify bool
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Level:  gzip.DefaultCompression,
		Verify: true,
	}
}

// Outcome is the result of compressing one file
type Outcome struct {
	Path           string            `json:"path" yaml:"path"`
	OriginalSize   int64             `json:"original_size" yaml:"original_size"`
	CompressedSize int64             `json:"compressed_size" yaml:"compressed_size"`
	Saved          int64             `json:"saved" yaml:"saved"` // may be negative
	DryRun         bool              `json:"dry_run" yaml:"dry_run"`
	Success        bool              `json:"success" yaml:"success"`
	Err            *CompressionError `json:"-" yaml:"-"`
}

// Reason returns the failure message for a failed outcome
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.UserMessage()
}

// Result represents the result of a compression run
type Result struct {
	Outcomes    []Outcome
	Compressed  []string
	Failed      []Outcome
	SavedBytes  int64
	DryRun      bool
	Interrupted bool
}

// Errors returns the categorized errors of all failed outcomes
func (r *Result) Errors() []*CompressionError {
	errs := make([]*CompressionError, 0, len(r.Failed))
	for _, o := range r.Failed {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}

func (r *Result) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Success {
		r.Compressed = append(r.Compressed, o.Path)
		r.SavedBytes += o.Saved
		return
	}
	r.Failed = append(r.Failed, o)
}

// Compressor gzips eligible files in place, one at a time
type Compressor struct {
	opts             Options
	logger           *logging.Logger
	progressReporter *progress.ProgressReporter
	retryDelays      []time.Duration
	check            func(original *os.File, artifact string, written int64) error
}

// New creates a new Compressor
func New(opts Options, logger *logging.Logger) *Compressor {
	if logger == nil {
		logger = logging.Discard()
	}
	c := &Compressor{
		opts:   opts,
		logger: logger,
		retryDelays: []time.Duration{
			100 * time.Millisecond,
			500 * time.Millisecond,
		},
	}
	c.check = c.checkArtifact
	return c
}

// SetProgressReporter sets a custom progress reporter
func (c *Compressor) SetProgressReporter(pr *progress.ProgressReporter) {
	c.progressReporter = pr
}

// Compress processes files in order. Cancellation is only observed between
// files: the file in flight always completes or is rolled back, then the
// result is returned with Interrupted set.
func (c *Compressor) Compress(ctx context.Context, files []scanner.FileInfo) *Result {
	result := &Result{DryRun: c.opts.DryRun}
	start := time.Now()

	c.reportProgress(progress.PhaseCompressing, "", result, len(files), start)

	for i, file := range files {
		if ctx.Err() != nil {
			result.Interrupted = true
			c.logger.Warn("Compression interrupted, %d of %d files left untouched", len(files)-i, len(files))
			break
		}

		c.reportProgress(progress.PhaseCompressing, file.Path, result, len(files), start)

		outcome := c.compressWithRetry(ctx, file.Path)
		result.add(outcome)

		if outcome.Success {
			c.logger.Info("Compressed %s: %s -> %s (saved %s)%s",
				outcome.Path,
				utils.FormatBytes(outcome.OriginalSize),
				utils.FormatBytes(outcome.CompressedSize),
				utils.FormatBytes(outcome.Saved),
				dryRunSuffix(c.opts.DryRun))
		} else {
			c.logger.Error("Failed to compress %s: %v", outcome.Path, outcome.Err)
		}
	}

	c.reportProgress(progress.PhaseComplete, "", result, len(files), start)
	return result
}

// compressWithRetry retries files that are temporarily busy
func (c *Compressor) compressWithRetry(ctx context.Context, path string) Outcome {
	var outcome Outcome
	for attempt := 0; ; attempt++ {
		outcome = c.compressFile(path)
		if outcome.Success || outcome.Err.Reason != ErrorFileInUse || attempt >= len(c.retryDelays) {
			return outcome
		}

		c.logger.Debug("Retrying %s in %s: %v", path, c.retryDelays[attempt], outcome.Err)
		select {
		case <-time.After(c.retryDelays[attempt]):
		case <-ctx.Done():
			return outcome
		}
	}
}

// compressFile compresses a single file. On any failure the original is
// left as it was and no temporary or artifact file remains.
func (c *Compressor) compressFile(path string) Outcome {
	outcome := Outcome{Path: path, DryRun: c.opts.DryRun}
	fail := func(err error) Outcome {
		outcome.Err = CategorizeError(path, err)
		return outcome
	}

	// Lstat so a file swapped for a symlink since the walk is never followed
	info, err := os.Lstat(path)
	if err != nil {
		return fail(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fail(&CompressionError{Path: path, Reason: ErrorInvalidPath, Original: errors.New("path is a symlink")})
	}
	if info.IsDir() {
		return fail(&CompressionError{Path: path, Reason: ErrorIsDirectory, Original: errors.New("path is a directory")})
	}
	if !info.Mode().IsRegular() {
		return fail(&CompressionError{Path: path, Reason: ErrorInvalidPath, Original: errors.New("not a regular file")})
	}

	// Read-write so files we could read but never replace fail up front
	original, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fail(err)
	}
	defer original.Close()

	tmp, originalSize, compressedSize, err := c.writeArtifact(original, info)
	if err != nil {
		if tmp != "" {
			os.Remove(tmp)
		}
		return fail(err)
	}

	// The temporary file is verified before anything is renamed, so an
	// existing <path>.gz survives a failed check and dry runs never touch it
	if err := c.check(original, tmp, compressedSize); err != nil {
		os.Remove(tmp)
		return fail(err)
	}

	outcome.OriginalSize = originalSize
	outcome.CompressedSize = compressedSize
	outcome.Saved = originalSize - compressedSize

	if c.opts.DryRun {
		if err := os.Remove(tmp); err != nil {
			return fail(fmt.Errorf("failed to remove dry-run artifact: %w", err))
		}
		outcome.Success = true
		return outcome
	}

	if err := os.Chmod(tmp, info.Mode().Perm()); err != nil {
		os.Remove(tmp)
		return fail(fmt.Errorf("failed to copy permissions: %w", err))
	}

	artifact := path + ArtifactSuffix
	if err := os.Rename(tmp, artifact); err != nil {
		os.Remove(tmp)
		return fail(fmt.Errorf("failed to move artifact into place: %w", err))
	}

	original.Close()
	if err := os.Remove(path); err != nil {
		os.Remove(artifact)
		return fail(err)
	}

	outcome.Success = true
	return outcome
}

// writeArtifact streams original into a temporary gzip file next to it and
// returns its path with the number of bytes read and written
func (c *Compressor) writeArtifact(original *os.File, info os.FileInfo) (string, int64, int64, error) {
	dir, base := filepath.Split(original.Name())
	out, err := os.CreateTemp(dir, "."+base+".*"+ArtifactSuffix+".tmp")
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to create artifact: %w", err)
	}
	defer out.Close()
	tmp := out.Name()

	counter := &countingWriter{w: out}
	zw, err := gzip.NewWriterLevel(counter, c.opts.Level)
	if err != nil {
		return tmp, 0, 0, fmt.Errorf("invalid gzip level %d: %w", c.opts.Level, err)
	}
	zw.Name = base
	zw.ModTime = info.ModTime()

	reader := &countingReader{r: original}
	if _, err := io.Copy(zw, reader); err != nil {
		return tmp, 0, 0, fmt.Errorf("failed to compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return tmp, 0, 0, fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	if err := out.Sync(); err != nil {
		return tmp, 0, 0, fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		return tmp, 0, 0, fmt.Errorf("failed to close artifact: %w", err)
	}

	return tmp, reader.n, counter.n, nil
}

// checkArtifact confirms the artifact on disk is the one just produced and,
// when verification is on, that it decompresses to the original content
func (c *Compressor) checkArtifact(original *os.File, artifact string, written int64) error {
	st, err := os.Stat(artifact)
	if err != nil {
		return fmt.Errorf("failed to stat artifact: %w", err)
	}
	if st.Size() != written {
		return fmt.Errorf("%w: %d bytes on disk, %d written", ErrArtifactMismatch, st.Size(), written)
	}

	if !c.opts.Verify {
		return nil
	}

	if _, err := original.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind original: %w", err)
	}
	want, err := utils.HashReader(original)
	if err != nil {
		return fmt.Errorf("failed to hash original: %w", err)
	}

	f, err := os.Open(artifact)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactMismatch, err)
	}
	defer zr.Close()

	got, err := utils.HashReader(zr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactMismatch, err)
	}
	if got != want {
		return fmt.Errorf("%w: checksum %s, want %s", ErrArtifactMismatch, got, want)
	}
	return nil
}

// reportProgress reports compression progress to listeners
func (c *Compressor) reportProgress(phase progress.Phase, currentFile string, result *Result, totalFiles int, startTime time.Time) {
	if c.progressReporter == nil {
		return
	}

	c.progressReporter.UpdateCompressProgress(&progress.CompressProgress{
		Phase:       phase,
		CurrentFile: currentFile,
		Done:        len(result.Outcomes),
		TotalFiles:  totalFiles,
		Failed:      len(result.Failed),
		SavedBytes:  result.SavedBytes,
		DryRun:      result.DryRun,
		StartTime:   startTime,
	})
}

func dryRunSuffix(dryRun bool) string {
	if dryRun {
		return " [dry run]"
	}
	return ""
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
