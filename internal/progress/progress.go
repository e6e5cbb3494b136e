package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/fenilsonani/dircompress/pkg/utils"
)

// Phase represents the current phase of operation
type Phase string

const (
	PhaseScanning    Phase = "scanning"
	PhaseClassifying Phase = "classifying"
	PhaseCompressing Phase = "compressing"
	PhaseComplete    Phase = "complete"
	PhaseError       Phase = "error"
)

// ScanProgress represents progress during traversal and classification
type ScanProgress struct {
	Phase       Phase
	CurrentPath string
	Entries     int
	Classified  int
	StartTime   time.Time
	Error       error
}

// CompressProgress represents progress while compressing eligible files
type CompressProgress struct {
	Phase       Phase
	CurrentFile string
	Done        int
	TotalFiles  int
	Failed      int
	SavedBytes  int64
	DryRun      bool
	StartTime   time.Time
	Error       error
}

// ProgressReporter provides thread-safe progress reporting
type ProgressReporter struct {
	scanProgress     *ScanProgress
	compressProgress *CompressProgress
	mu               sync.RWMutex
	listeners        []chan interface{}
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		listeners: make([]chan interface{}, 0),
	}
}

// Subscribe returns a channel that receives progress updates
func (pr *ProgressReporter) Subscribe() <-chan interface{} {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	ch := make(chan interface{}, 10)
	pr.listeners = append(pr.listeners, ch)
	return ch
}

// Unsubscribe closes and removes a listener channel
func (pr *ProgressReporter) Unsubscribe(ch <-chan interface{}) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	for i, listener := range pr.listeners {
		if listener == ch {
			close(listener)
			pr.listeners = append(pr.listeners[:i], pr.listeners[i+1:]...)
			return
		}
	}
}

// UpdateScanProgress updates scan progress and notifies listeners
func (pr *ProgressReporter) UpdateScanProgress(update *ScanProgress) {
	pr.mu.Lock()
	pr.scanProgress = update
	pr.mu.Unlock()

	pr.broadcast(update)
}

// UpdateCompressProgress updates compression progress and notifies listeners
func (pr *ProgressReporter) UpdateCompressProgress(update *CompressProgress) {
	pr.mu.Lock()
	pr.compressProgress = update
	pr.mu.Unlock()

	pr.broadcast(update)
}

func (pr *ProgressReporter) broadcast(update interface{}) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	// Notify all listeners (non-blocking)
	for _, listener := range pr.listeners {
		select {
		case listener <- update:
		default:
			// Skip if channel is full
		}
	}
}

// GetScanProgress returns the current scan progress
func (pr *ProgressReporter) GetScanProgress() *ScanProgress {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.scanProgress
}

// GetCompressProgress returns the current compression progress
func (pr *ProgressReporter) GetCompressProgress() *CompressProgress {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.compressProgress
}

// FormatScanProgress returns a human-readable scan progress string
func FormatScanProgress(p *ScanProgress) string {
	if p == nil {
		return "Initializing..."
	}

	elapsed := time.Since(p.StartTime)

	switch p.Phase {
	case PhaseScanning:
		return fmt.Sprintf("Scanning... %d entries [%s]", p.Entries, FormatDuration(elapsed))
	case PhaseClassifying:
		return fmt.Sprintf("Classifying... %d/%d entries [%s]", p.Classified, p.Entries, FormatDuration(elapsed))
	case PhaseComplete:
		return fmt.Sprintf("Scan complete: %d entries in %s", p.Entries, FormatDuration(elapsed))
	case PhaseError:
		return fmt.Sprintf("Scan error: %v", p.Error)
	default:
		return "Scanning..."
	}
}

// FormatCompressProgress returns a human-readable compression progress string
func FormatCompressProgress(p *CompressProgress) string {
	if p == nil {
		return "Preparing..."
	}

	elapsed := time.Since(p.StartTime)

	switch p.Phase {
	case PhaseCompressing:
		percentage := 0
		if p.TotalFiles > 0 {
			percentage = (p.Done * 100) / p.TotalFiles
		}

		eta := ""
		if p.Done > 0 && p.TotalFiles > p.Done {
			avgTime := elapsed / time.Duration(p.Done)
			remaining := time.Duration(p.TotalFiles-p.Done) * avgTime
			eta = fmt.Sprintf(" ETA: %s", FormatDuration(remaining))
		}

		mode := ""
		if p.DryRun {
			mode = " [DRY RUN]"
		}

		return fmt.Sprintf("Compressing... %d/%d files (%d%%) - %s saved%s%s",
			p.Done,
			p.TotalFiles,
			percentage,
			utils.FormatBytes(p.SavedBytes),
			mode,
			eta)
	case PhaseComplete:
		return fmt.Sprintf("Compression complete: %d files (%s saved) in %s",
			p.Done-p.Failed,
			utils.FormatBytes(p.SavedBytes),
			FormatDuration(elapsed))
	case PhaseError:
		return fmt.Sprintf("Compression error: %v", p.Error)
	default:
		return "Preparing compression..."
	}
}

// Fraction returns the completed share of the run in [0, 1]
func (p *CompressProgress) Fraction() float64 {
	if p == nil || p.TotalFiles == 0 {
		return 0
	}
	return float64(p.Done) / float64(p.TotalFiles)
}

// FormatDuration formats duration in human-readable format
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
