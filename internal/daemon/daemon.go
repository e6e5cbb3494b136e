package daemon

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fenilsonani/dircompress/internal/config"
	"github.com/fenilsonani/dircompress/internal/history"
	"github.com/fenilsonani/dircompress/internal/logging"
	"github.com/fenilsonani/dircompress/internal/notify"
	"github.com/fenilsonani/dircompress/internal/progress"
	"github.com/fenilsonani/dircompress/internal/reporter"
	"github.com/fenilsonani/dircompress/internal/scanner"
)

const schedulerStopTimeout = 10 * time.Minute

// Options are the collaborators of a Controller. Zero values are fine.
type Options struct {
	Sniffer  scanner.Sniffer
	Progress *progress.ProgressReporter
	Notifier *notify.Notifier
	History  *history.Store
	// InitialState is StateDetached after a successful Detach, otherwise
	// StateForeground
	InitialState State
	// OnState observes every state change
	OnState func(State)
	// NotifySignals subscribes ch to process signals and returns an
	// unsubscribe func. Defaults to os/signal.
	NotifySignals func(ch chan<- os.Signal) func()
}

// Controller supervises runs for one process: it holds the instance lock,
// turns SIGTERM and SIGINT into an orderly stop and maps the outcome to an
// exit code
type Controller struct {
	config   *config.Config
	logger   *logging.Logger
	lock     *Lock
	pipeline *Pipeline

	onState       func(State)
	notifySignals func(ch chan<- os.Signal) func()

	mu    sync.RWMutex
	state State
}

// New creates a new controller for a validated request
func New(cfg *config.Config, req *config.Request, logger *logging.Logger, opts Options) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}

	lockFile := cfg.Daemon.LockFile
	if lockFile == "" {
		lockFile = filepath.Join(os.TempDir(), "dircompress.lock")
	}

	notifySignals := opts.NotifySignals
	if notifySignals == nil {
		notifySignals = func(ch chan<- os.Signal) func() {
			signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
			return func() { signal.Stop(ch) }
		}
	}

	return &Controller{
		config: cfg,
		logger: logger,
		lock:   NewLock(lockFile, cfg.Daemon.PidFile),
		pipeline: &Pipeline{
			cfg:      cfg,
			req:      req,
			logger:   logger,
			sniffer:  opts.Sniffer,
			progress: opts.Progress,
			notifier: opts.Notifier,
			history:  opts.History,
			newRunID: defaultRunID,
			now:      time.Now,
		},
		onState:       opts.OnState,
		notifySignals: notifySignals,
		state:         opts.InitialState,
	}
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()

	c.logger.Debug("State %s -> %s", prev, s)
	if c.onState != nil {
		c.onState(s)
	}
}

// Run holds the lock for the lifetime of the work and performs a single
// run, or repeated runs when a schedule is configured. After a shutdown
// signal the file in flight is finished and an ExitError with ExitSignal
// is returned together with the partial summary.
func (c *Controller) Run(ctx context.Context) (reporter.Summary, error) {
	if err := c.lock.Acquire(); err != nil {
		c.logger.Error("Startup failed: %v", err)
		c.setState(StateExited)
		return reporter.Summary{}, &ExitError{Code: ExitStartup, Err: err}
	}
	defer func() {
		if err := c.lock.Release(); err != nil {
			c.logger.Warn("Failed to release lock: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopSignals := c.watchSignals(cancel)
	c.setState(StateRunning)
	c.logger.Info("dircompress started (pid %d)", os.Getpid())

	var (
		summary reporter.Summary
		err     error
	)
	if spec := c.config.Daemon.Schedule; spec != "" {
		summary, err = c.runScheduled(ctx, spec)
	} else {
		summary, err = c.pipeline.Run(ctx)
	}

	stopSignals()
	signalled := c.State() == StateStopping
	c.setState(StateExited)

	switch {
	case err != nil:
		return summary, &ExitError{Code: ExitStartup, Err: err}
	case signalled || summary.Interrupted:
		c.logger.Info("Shutdown complete")
		return summary, &ExitError{Code: ExitSignal, Err: ErrTerminated}
	default:
		c.logger.Info("dircompress finished")
		return summary, nil
	}
}

func (c *Controller) runScheduled(ctx context.Context, spec string) (reporter.Summary, error) {
	var (
		mu   sync.Mutex
		last reporter.Summary
	)

	sched := NewScheduler(spec, c.logger, func() {
		summary, err := c.pipeline.Run(ctx)
		if err != nil {
			// The target may come back before the next tick
			c.logger.Error("Scheduled run failed: %v", err)
			return
		}
		mu.Lock()
		last = summary
		mu.Unlock()
	})
	if err := sched.Start(); err != nil {
		return reporter.Summary{}, err
	}

	<-ctx.Done()
	sched.Stop(schedulerStopTimeout)

	mu.Lock()
	defer mu.Unlock()
	return last, nil
}

// watchSignals cancels the run on SIGTERM or SIGINT. SIGHUP is ignored so
// that a closing terminal cannot stop a foreground run.
func (c *Controller) watchSignals(cancel context.CancelFunc) (stop func()) {
	ch := make(chan os.Signal, 1)
	unsubscribe := c.notifySignals(ch)
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		for {
			select {
			case sig := <-ch:
				if sig == syscall.SIGHUP {
					c.logger.Info("Received SIGHUP, ignoring")
					continue
				}
				cancel()
				if c.State() == StateRunning {
					c.setState(StateStopping)
					c.logger.Info("Received shutdown signal: %v, finishing current file", sig)
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			close(done)
			<-finished
		})
	}
}
