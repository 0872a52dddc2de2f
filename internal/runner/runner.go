// Package runner drives a plan to completion by repeatedly asking the
// scheduler for the next batch and executing it on a bounded worker pool.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/jfelton/stagehand/internal/graph"
	"github.com/jfelton/stagehand/internal/logging"
	"github.com/jfelton/stagehand/internal/plan"
	"github.com/jfelton/stagehand/internal/scheduler"
	"github.com/jfelton/stagehand/internal/tracker"
)

// ErrNoProgress is returned when unfinished tasks remain but no batch
// can be formed, typically because every remaining task sits behind a
// failed dependency with no retries left.
var ErrNoProgress = errors.New("no runnable tasks remain")

// ExecFunc executes one task and reports whether it succeeded.
type ExecFunc func(ctx context.Context, task plan.Task) error

// CommandExec returns an ExecFunc that runs the given shell command with
// the task ID appended as the final argument.
func CommandExec(command string) ExecFunc {
	return func(ctx context.Context, task plan.Task) error {
		cmd := exec.CommandContext(ctx, "sh", "-c", command+" \"$1\"", "stagehand-task", task.ID)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("%s: %w: %s", task.ID, err, string(out))
		}
		return nil
	}
}

// Options configures a Runner.
type Options struct {
	// MaxParallel bounds both the batch size and the worker pool.
	MaxParallel int
	// Scheduler carries the readiness knobs.
	Scheduler scheduler.Config
	// StuckTimeout is how long a task may stay in_progress before the
	// between-round sweep fails it. Zero uses the tracker default.
	StuckTimeout time.Duration
	// PollInterval is the pause between rounds that made no progress.
	PollInterval time.Duration
	// StateDir, when set, receives a state snapshot after every round.
	StateDir string
	// Exec runs a single task. Required.
	Exec ExecFunc
	// Logger receives progress entries. Defaults to a nop logger.
	Logger *logging.Logger
}

// Runner executes batches until the plan is done or stalls.
type Runner struct {
	tracker *tracker.Tracker
	cache   *graph.Cache
	opts    Options
	log     *logging.Logger
}

// New creates a Runner over the given tracker.
func New(tr *tracker.Tracker, opts Options) (*Runner, error) {
	if opts.Exec == nil {
		return nil, errors.New("runner: Exec is required")
	}
	if opts.MaxParallel < 1 {
		return nil, fmt.Errorf("runner: MaxParallel must be at least 1, got %d", opts.MaxParallel)
	}
	log := opts.Logger
	if log == nil {
		log = logging.NopLogger()
	}
	return &Runner{
		tracker: tr,
		cache:   graph.NewCache(),
		opts:    opts,
		log:     log,
	}, nil
}

// Run executes rounds until every task is satisfied or permanently
// failed. It returns ErrNoProgress when unfinished tasks remain but no
// batch can be formed, and the context error if ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.sweepStuck()

		snap := r.tracker.Snapshot()
		res, err := r.cache.Resolve(snap)
		if err != nil {
			return err
		}

		batch, err := scheduler.NextBatch(snap, res, r.opts.MaxParallel, r.opts.Scheduler)
		if err != nil {
			return err
		}

		if len(batch) == 0 {
			if done, stalled := r.progressState(snap); done {
				return nil
			} else if stalled {
				return ErrNoProgress
			}
			// Work is in flight elsewhere; wait for the state to move.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.opts.PollInterval):
			}
			continue
		}

		if err := r.runBatch(ctx, snap, batch); err != nil {
			return err
		}

		if r.opts.StateDir != "" {
			if err := r.tracker.Save(r.opts.StateDir); err != nil {
				return fmt.Errorf("save state: %w", err)
			}
		}
	}
}

// runBatch starts every task in the batch, executes them on the pool,
// and records each outcome.
func (r *Runner) runBatch(ctx context.Context, snap *plan.Snapshot, batch []string) error {
	r.log.Info("batch assembled", "size", len(batch), "tasks", batch)

	started := make([]plan.Task, 0, len(batch))
	for _, id := range batch {
		task := snap.Task(id)
		if task.Status == plan.StatusFailed {
			if err := r.tracker.Retry(id); err != nil {
				return fmt.Errorf("retry %s: %w", id, err)
			}
		}
		if err := r.tracker.MarkStarted(id, time.Now()); err != nil {
			return fmt.Errorf("start %s: %w", id, err)
		}
		started = append(started, *task)
	}

	p := pool.New().WithMaxGoroutines(r.opts.MaxParallel)
	for _, task := range started {
		p.Go(func() {
			taskLog := r.log.WithTask(task.ID).WithPhase(task.Phase)
			if err := r.opts.Exec(ctx, task); err != nil {
				taskLog.Warn("task failed", "error", err.Error())
				if mErr := r.tracker.MarkFailed(task.ID, err.Error()); mErr != nil {
					taskLog.Error("record failure", "error", mErr.Error())
				}
				return
			}
			taskLog.Info("task completed")
			if mErr := r.tracker.MarkCompleted(task.ID); mErr != nil {
				taskLog.Error("record completion", "error", mErr.Error())
			}
		})
	}
	p.Wait()
	return nil
}

// sweepStuck fails tasks that have sat in_progress past the timeout so
// they become retry candidates.
func (r *Runner) sweepStuck() {
	for _, id := range r.tracker.DetectStuck(r.opts.StuckTimeout, time.Now()) {
		r.log.Warn("task stuck", "task_id", id)
		if err := r.tracker.MarkFailed(id, "timed out in progress"); err != nil {
			r.log.Error("fail stuck task", "task_id", id, "error", err.Error())
		}
	}
}

// progressState classifies an empty batch: done when every task is
// satisfied or permanently failed, stalled when nothing is in flight but
// unfinished tasks remain.
func (r *Runner) progressState(snap *plan.Snapshot) (done, stalled bool) {
	unfinished := 0
	inFlight := 0
	for i := range snap.Tasks {
		switch snap.Tasks[i].Status {
		case plan.StatusPending:
			unfinished++
		case plan.StatusFailed:
			if snap.Tasks[i].RetryCount < r.opts.Scheduler.MaxRetries {
				unfinished++
			}
		case plan.StatusInProgress:
			inFlight++
		}
	}
	if unfinished == 0 && inFlight == 0 {
		return true, false
	}
	return false, inFlight == 0
}

// Sweep fails every stuck task once and returns their IDs. Used by the
// sweep command against persisted state.
func Sweep(tr *tracker.Tracker, threshold time.Duration, now time.Time) ([]string, error) {
	stuck := tr.DetectStuck(threshold, now)
	for _, id := range stuck {
		if err := tr.MarkFailed(id, "timed out in progress"); err != nil {
			return nil, fmt.Errorf("fail %s: %w", id, err)
		}
	}
	return stuck, nil
}
