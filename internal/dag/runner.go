package dag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusSuccess        Status = "success"
	StatusFailed         Status = "failed"
	StatusUpstreamFailed Status = "upstream_failed"
)

type TaskResult struct {
	ID       string
	Status   Status
	Attempts int
	Err      error
	Output   any
	Started  time.Time
	Finished time.Time
}

func (r *TaskResult) Duration() time.Duration {
	if r.Started.IsZero() || r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Run is the state of one execution of a graph.
type Run struct {
	ID       string
	DAG      string
	Started  time.Time
	Finished time.Time

	order   []string
	results map[string]*TaskResult
}

func (r *Run) Result(id string) *TaskResult { return r.results[id] }

// Results returns task results in execution order.
func (r *Run) Results() []*TaskResult {
	out := make([]*TaskResult, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.results[id])
	}
	return out
}

func (r *Run) Succeeded() bool {
	for _, res := range r.results {
		if res.Status != StatusSuccess {
			return false
		}
	}
	return true
}

// Counts tallies tasks per status.
func (r *Run) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, res := range r.results {
		counts[res.Status]++
	}
	return counts
}

// Err joins the errors of failed tasks, or returns nil.
func (r *Run) Err() error {
	var errs []error
	for _, id := range r.order {
		if res := r.results[id]; res.Status == StatusFailed {
			errs = append(errs, fmt.Errorf("%s: %w", id, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Summary is a one-line human description of the run.
func (r *Run) Summary() string {
	c := r.Counts()
	s := fmt.Sprintf("%s run %s: %d succeeded, %d failed, %d upstream_failed in %s",
		r.DAG, r.ID, c[StatusSuccess], c[StatusFailed], c[StatusUpstreamFailed],
		r.Finished.Sub(r.Started).Round(time.Millisecond))

	var failed []string
	for _, id := range r.order {
		if r.results[id].Status == StatusFailed {
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		s += " (failed: " + strings.Join(failed, ", ") + ")"
	}
	return s
}

type Runner struct {
	Parallelism int
	Retries     int
	RetryDelay  time.Duration
	Logger      *slog.Logger
}

// Run executes every task of g. A task starts once all of its upstream
// tasks succeeded; if any of them did not, the task is marked
// upstream_failed without running. Task failures never abort the run, and
// the returned error only reports an invalid graph.
func (r *Runner) Run(ctx context.Context, g *Graph) (*Run, error) {
	order, err := g.Order()
	if err != nil {
		return nil, err
	}

	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parallelism := r.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	run := &Run{
		ID:      uuid.NewString(),
		DAG:     g.Name,
		Started: time.Now(),
		order:   order,
		results: make(map[string]*TaskResult, len(order)),
	}
	done := make(map[string]chan struct{}, len(order))
	for _, id := range order {
		run.results[id] = &TaskResult{ID: id, Status: StatusPending}
		done[id] = make(chan struct{})
	}

	logger = logger.With("dag", g.Name, "run_id", run.ID)
	logger.Info("dag run started", "tasks", len(order), "parallelism", parallelism)

	sem := semaphore.NewWeighted(int64(parallelism))
	var group errgroup.Group
	for _, id := range order {
		group.Go(func() error {
			defer close(done[id])

			res := run.results[id]
			inputs := make(Inputs)
			var blocked []string
			for _, up := range g.upstream[id] {
				<-done[up]
				upRes := run.results[up]
				if upRes.Status != StatusSuccess {
					blocked = append(blocked, up)
					continue
				}
				inputs[up] = upRes.Output
			}
			tlog := logger.With("task", id)
			if len(blocked) > 0 {
				res.Status = StatusUpstreamFailed
				tlog.Warn("task skipped", "status", res.Status, "upstream", blocked)
				return nil
			}

			if err := sem.Acquire(ctx, 1); err != nil {
				res.Status = StatusFailed
				res.Err = err
				tlog.Error("task not started", "error", err)
				return nil
			}
			defer sem.Release(1)

			r.execute(ctx, g.tasks[id], inputs, res, tlog)
			return nil
		})
	}
	_ = group.Wait()

	run.Finished = time.Now()
	c := run.Counts()
	logger.Info("dag run finished",
		"success", c[StatusSuccess],
		"failed", c[StatusFailed],
		"upstream_failed", c[StatusUpstreamFailed],
		"duration", run.Finished.Sub(run.Started),
	)
	return run, nil
}

// RunTask runs id together with its upstream ancestors.
func (r *Runner) RunTask(ctx context.Context, g *Graph, id string) (*Run, error) {
	sub, err := g.Subgraph(id)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, sub)
}

func (r *Runner) execute(ctx context.Context, fn TaskFunc, in Inputs, res *TaskResult, logger *slog.Logger) {
	res.Started = time.Now()
	defer func() { res.Finished = time.Now() }()

	attempts := 1 + max(r.Retries, 0)
	for attempt := 1; attempt <= attempts; attempt++ {
		res.Attempts = attempt
		logger.Info("task started", "attempt", attempt)

		start := time.Now()
		out, err := call(ctx, fn, in)
		if err == nil {
			res.Status = StatusSuccess
			res.Output = out
			res.Err = nil
			logger.Info("task succeeded", "attempt", attempt, "duration", time.Since(start))
			return
		}
		res.Err = err

		if attempt == attempts {
			break
		}
		logger.Warn("task failed, retrying",
			"attempt", attempt,
			"retry_in", r.RetryDelay,
			"error", err,
		)
		if !sleep(ctx, r.RetryDelay) {
			res.Err = errors.Join(err, ctx.Err())
			break
		}
	}

	res.Status = StatusFailed
	logger.Error("task failed", "attempts", res.Attempts, "error", res.Err)
}

// call runs fn, turning a panic into an error so one task cannot take
// down the run.
func call(ctx context.Context, fn TaskFunc, in Inputs) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, in)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Statuses maps every task id to its final status.
func (r *Run) Statuses() map[string]Status {
	out := make(map[string]Status, len(r.results))
	for id, res := range r.results {
		out[id] = res.Status
	}
	return out
}

// Failed lists failed task ids in sorted order.
func (r *Run) Failed() []string {
	var ids []string
	for id, res := range r.results {
		if res.Status == StatusFailed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
