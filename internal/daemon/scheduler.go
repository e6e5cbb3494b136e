package daemon

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fenilsonani/dircompress/internal/logging"
)

// Scheduler repeats a run on a cron schedule. A run that is still going
// when the next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logging.Logger
	spec    string
	job     func()
	entry   cron.EntryID
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a new scheduler for a standard five-field cron spec
func NewScheduler(spec string, logger *logging.Logger, job func()) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}

	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	cronLogger := cron.PrintfLogger(cronLogAdapter{logger})

	c := cron.New(cron.WithParser(parser), cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))

	return &Scheduler{
		cron:   c,
		logger: logger,
		spec:   spec,
		job:    job,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	id, err := s.cron.AddFunc(s.spec, s.job)
	if err != nil {
		return fmt.Errorf("failed to add schedule %q: %w", s.spec, err)
	}
	s.entry = id

	s.cron.Start()
	s.running = true

	s.logger.Info("Scheduler started (%s), next run: %v", s.spec, s.cron.Entry(id).Next)
	return nil
}

// Stop stops the scheduler and waits up to timeout for a run in progress
func (s *Scheduler) Stop(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(timeout):
		s.logger.Warn("Scheduler stop timed out")
	}

	s.running = false
	s.logger.Info("Scheduler stopped")
}

// NextRun returns the next scheduled run, or the zero time when stopped
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// cronLogAdapter routes cron's own messages into the audit log
type cronLogAdapter struct {
	logger *logging.Logger
}

func (a cronLogAdapter) Printf(format string, args ...interface{}) {
	a.logger.Debug("cron: "+format, args...)
}
