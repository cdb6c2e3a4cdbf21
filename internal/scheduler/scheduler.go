package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kjannette/market-etl/internal/dag"
)

// ErrBusy is returned by RunNow while a run is already in progress.
var ErrBusy = errors.New("scheduler: run already in progress")

// RunFunc executes the pipeline once.
type RunFunc func(ctx context.Context) (*dag.Run, error)

type Config struct {
	Schedule string        // cron spec or descriptor, e.g. "@daily"
	Timeout  time.Duration // per-run ceiling, 0 for none
	Location *time.Location

	// OnRunComplete is called after every run, scheduled or manual.
	OnRunComplete func(run *dag.Run, err error)
}

type Scheduler struct {
	runFn  RunFunc
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	entry   cron.EntryID
	cancel  context.CancelFunc

	busy atomic.Bool
}

func New(run RunFunc, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = "@daily"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runFn:  run,
		cfg:    cfg,
		logger: logger.With("component", "scheduler"),
	}
}

// Start registers the pipeline with cron and begins ticking. Runs inherit
// ctx; cancelling it aborts an in-flight run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn("already running")
		return nil
	}

	cl := cronLogger{s.logger}
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	runCtx, cancel := context.WithCancel(ctx)
	id, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.execute(runCtx, "cron"); err != nil && !errors.Is(err, ErrBusy) {
			s.logger.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("schedule %q: %w", s.cfg.Schedule, err)
	}

	c.Start()
	s.cron, s.entry = c, id
	s.cancel = cancel
	s.running = true
	s.logger.Info("started", "schedule", s.cfg.Schedule, "next_run", c.Entry(id).Next)
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	c, cancel := s.cron, s.cancel
	s.running = false
	s.mu.Unlock()

	<-c.Stop().Done()
	cancel()
	s.logger.Info("stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Next reports the next scheduled run, or the zero time when stopped.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// RunNow triggers a run outside the schedule. It fails with ErrBusy rather
// than overlap a run already in progress.
func (s *Scheduler) RunNow(ctx context.Context) (*dag.Run, error) {
	s.logger.Info("manual run triggered")
	return s.execute(ctx, "manual")
}

func (s *Scheduler) execute(ctx context.Context, trigger string) (*dag.Run, error) {
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Warn("run skipped, previous run still in progress", "trigger", trigger)
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	run, err := s.runFn(ctx)
	if err == nil && run != nil {
		s.logger.Info("run complete", "trigger", trigger, "run_id", run.ID, "succeeded", run.Succeeded())
	}
	if s.cfg.OnRunComplete != nil {
		s.cfg.OnRunComplete(run, err)
	}
	return run, err
}

// cronLogger routes robfig/cron's logging through slog.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
