package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fenilsonani/dircompress/internal/compressor"
	"github.com/fenilsonani/dircompress/internal/config"
	"github.com/fenilsonani/dircompress/internal/history"
	"github.com/fenilsonani/dircompress/internal/logging"
	"github.com/fenilsonani/dircompress/internal/notify"
	"github.com/fenilsonani/dircompress/internal/progress"
	"github.com/fenilsonani/dircompress/internal/reporter"
	"github.com/fenilsonani/dircompress/internal/scanner"
	"github.com/fenilsonani/dircompress/pkg/utils"
)

// deliveryTimeout bounds report delivery after the run itself is over,
// including after a shutdown signal
const deliveryTimeout = 30 * time.Second

// Pipeline performs one end-to-end run: walk, classify, compress, report
type Pipeline struct {
	cfg      *config.Config
	req      *config.Request
	logger   *logging.Logger
	sniffer  scanner.Sniffer
	progress *progress.ProgressReporter
	notifier *notify.Notifier
	history  *history.Store
	newRunID func() string
	now      func() time.Time
}

// Run executes the pipeline. Per-file failures are part of the summary; an
// error is returned only when the target cannot be walked at all. A
// cancelled ctx stops the run between files and yields an interrupted
// summary.
func (p *Pipeline) Run(ctx context.Context) (reporter.Summary, error) {
	runID := p.newRunID()
	log := p.logger.WithRunID(runID)

	info := reporter.RunInfo{
		RunID:       runID,
		Target:      p.req.Target,
		Started:     p.now(),
		DryRun:      p.req.DryRun,
		MinSize:     p.req.MinSize,
		MinSizeText: p.req.MinSizeText,
	}

	log.Info("Starting run on %s (min size %s, dry run %v)", info.Target, utils.FormatBytes(info.MinSize), info.DryRun)

	walk, err := scanner.Walk(ctx, p.req.Target, scanner.WalkOptions{
		FollowSymlinks: p.cfg.FollowSymlinks,
		Progress:       p.progress,
	})
	if walk == nil {
		log.Error("Cannot walk %s: %v", p.req.Target, err)
		return reporter.Summary{}, fmt.Errorf("walk %s: %w", p.req.Target, err)
	}
	for _, werr := range walk.Errors {
		log.Warn("%v", werr)
	}
	log.Info("Found %d files", len(walk.Files()))

	var (
		cls *scanner.Classification
		res *compressor.Result
	)
	if err == nil {
		classifier := scanner.NewClassifier(p.sniffer, log)
		classifier.SetProgressReporter(p.progress)
		cls, err = classifier.Classify(ctx, walk.Entries, p.req.MinSize)
	}

	if err != nil {
		// Only cancellation ends walk or classify early; nothing was modified
		log.Warn("Run interrupted before compression: %v", err)
		res = &compressor.Result{DryRun: p.req.DryRun, Interrupted: true}
	} else {
		log.Info("Classified: %d eligible (%s), %d excluded by type, %d below minimum size",
			len(cls.Eligible), utils.FormatBytes(cls.EligibleSize()), len(cls.ExcludedType), len(cls.TooSmall))

		opts := compressor.DefaultOptions()
		opts.DryRun = p.req.DryRun
		opts.Level = p.cfg.Compression.Level
		opts.Verify = p.cfg.Compression.Verify

		comp := compressor.New(opts, log)
		comp.SetProgressReporter(p.progress)
		res = comp.Compress(ctx, cls.Eligible)
	}

	info.Finished = p.now()
	info.ScanErrors = len(walk.Errors)
	if cls != nil {
		info.ScanErrors += len(cls.Errors)
	}
	summary := reporter.NewSummary(info, cls, res)

	log.Info("Run finished (%s): %d compressed, %d failed, saved %s in %s",
		summary.Status(), len(summary.Compressed), len(summary.Failed),
		utils.FormatBytes(summary.SavedBytes), summary.Duration.Round(time.Millisecond))
	if errs := res.Errors(); len(errs) > 0 {
		log.Warn("Failures by reason:\n%s", compressor.FormatErrorSummary(errs))
	}

	p.deliver(ctx, log, summary)
	return summary, nil
}

// deliver writes the report file, records history and sends notifications.
// None of these can fail the run.
func (p *Pipeline) deliver(ctx context.Context, log *logging.Logger, summary reporter.Summary) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
	defer cancel()

	if path := p.cfg.Report.Path; path != "" {
		format, err := reporter.ParseFormat(p.cfg.Report.Format)
		if err != nil {
			format = reporter.FormatSummary
		}
		if err := reporter.SaveToFile(summary, path, format); err != nil {
			log.Error("Failed to write report: %v", err)
		} else {
			log.Info("Report written to %s", path)
		}
	}

	if p.history != nil {
		if _, err := p.history.Record(ctx, summary); err != nil {
			log.Error("Failed to record run history: %v", err)
		}
	}

	if p.notifier != nil {
		_ = p.notifier.SendRunReport(ctx, summary, p.req.Email)
	}
}

func defaultRunID() string {
	return uuid.NewString()
}
