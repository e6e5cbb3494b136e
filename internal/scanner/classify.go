package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fenilsonani/dircompress/internal/logging"
	"github.com/fenilsonani/dircompress/internal/progress"
)

// Classifier assigns each discovered file to exactly one bucket
type Classifier struct {
	sniffer          Sniffer
	logger           *logging.Logger
	progressReporter *progress.ProgressReporter
}

// NewClassifier creates a classifier. A nil sniffer means MimeSniffer.
func NewClassifier(sniffer Sniffer, logger *logging.Logger) *Classifier {
	if sniffer == nil {
		sniffer = MimeSniffer{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Classifier{
		sniffer: sniffer,
		logger:  logger,
	}
}

// SetProgressReporter sets a custom progress reporter
func (c *Classifier) SetProgressReporter(pr *progress.ProgressReporter) {
	c.progressReporter = pr
}

// Classify partitions the non-directory entries. Directories are dropped.
// Type exclusion is decided before the size threshold, so a tiny image is
// ExcludedType, never TooSmall. If ctx is cancelled the partial result is
// returned together with ctx.Err().
func (c *Classifier) Classify(ctx context.Context, entries []Entry, minSize int64) (*Classification, error) {
	result := &Classification{}
	start := time.Now()

	for i, entry := range entries {
		if entry.IsDir {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fi, sized, err := c.inspect(entry.Path)
		if err != nil {
			result.Errors = append(result.Errors, err)
			c.logger.Warn("Classify %s: %v", entry.Path, err)
		}

		switch {
		case fi.Category != "":
			fi.Bucket = BucketExcludedType
		case sized && fi.Size < minSize:
			fi.Bucket = BucketTooSmall
		default:
			// Files that could not be stat'ed stay eligible so the
			// compression step records an explicit failure for them.
			fi.Bucket = BucketEligible
		}
		result.add(fi)

		c.logger.Debug("Classified %s as %s (%s, %d bytes)", fi.Path, fi.Bucket, fi.MIME, fi.Size)

		if c.progressReporter != nil && (i%100 == 0 || i == len(entries)-1) {
			c.progressReporter.UpdateScanProgress(&progress.ScanProgress{
				Phase:       progress.PhaseClassifying,
				CurrentPath: entry.Path,
				Entries:     len(entries),
				Classified:  i + 1,
				StartTime:   start,
			})
		}
	}

	return result, nil
}

// inspect stats the file and sniffs its leading bytes. sized reports
// whether the size is known, which holds even when reading failed.
func (c *Classifier) inspect(path string) (fi FileInfo, sized bool, err error) {
	fi = FileInfo{Path: path}

	info, err := os.Lstat(path)
	if err != nil {
		return fi, false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	fi.Size = info.Size()

	f, err := os.Open(path)
	if err != nil {
		return fi, true, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, SniffLimit)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fi, true, fmt.Errorf("failed to read %s: %w", path, err)
	}

	fi.MIME = c.sniffer.Detect(head[:n])
	fi.Category = ExcludedCategory(fi.MIME)
	return fi, true, nil
}
