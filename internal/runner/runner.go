// Package runner executes batches of subprocess jobs with bounded
// concurrency.
//
// A fixed pool of workers pulls jobs from a single shared cursor, so a slow
// clone never starves a worker that could be finishing several fast fetches.
// Run blocks until every job in the batch has settled; per-job timeouts bound
// the total wait to timeout * ceil(len(jobs) / concurrency).
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrTimeout is the sentinel recorded on jobs that exceed their deadline.
var ErrTimeout = errors.New("job timed out")

// timeoutExitCode is the conventional exit code for a command killed by a
// timeout wrapper.
const timeoutExitCode = 124

// Observer receives fire-and-forget progress notifications.
// It is invoked once per completed job that carries a non-empty message and
// ended without error. Implementations must not block job completion.
type Observer func(job *Job)

// Config configures a Runner.
type Config struct {
	// Concurrency is the maximum number of jobs executing at once.
	// Zero selects the default of 80% of logical processors, minimum 1.
	Concurrency int

	// Timeout bounds each individual job. Zero selects the default.
	Timeout time.Duration

	// Observer receives per-job progress notifications. May be nil.
	Observer Observer
}

// DefaultConcurrency returns the default worker count: 80% of the logical
// processors, never below 1. The pool is bounded below the processor count
// to avoid saturating I/O and git's own locking when many plugins share a
// filesystem.
func DefaultConcurrency() int {
	n := int(float64(runtime.NumCPU()) * 0.8)
	if n < 1 {
		n = 1
	}
	return n
}

// DefaultTimeout is the per-job execution bound.
const DefaultTimeout = 60 * time.Second

// Runner executes job batches.
type Runner struct {
	concurrency int
	timeout     time.Duration
	observer    Observer
}

// New creates a Runner from the given configuration.
func New(cfg Config) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Runner{
		concurrency: cfg.Concurrency,
		timeout:     cfg.Timeout,
		observer:    cfg.Observer,
	}
}

// Run executes all runnable jobs in the batch and blocks until every job
// has settled. Job failures are recorded on the jobs themselves, never
// returned: the batch always makes progress on every independent plugin.
// The returned error is non-nil only when the context is cancelled.
func (r *Runner) Run(ctx context.Context, jobs []*Job) error {
	if len(jobs) == 0 {
		return nil
	}

	var cursor atomic.Int64
	var g errgroup.Group

	workers := r.concurrency
	if workers > len(jobs) {
		workers = len(jobs)
	}

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				i := int(cursor.Add(1)) - 1
				if i >= len(jobs) {
					return nil
				}
				job := jobs[i]
				if !job.Runnable() {
					continue
				}
				r.execute(ctx, job)
				r.notify(job)
			}
		})
	}

	return g.Wait()
}

// execute runs one job to completion, recording output and failure state.
func (r *Runner) execute(ctx context.Context, job *Job) {
	jctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(jctx, job.Args[0], job.Args[1:]...)
	if job.Dir != "" {
		cmd.Dir = job.Dir
	}
	if len(job.Env) > 0 {
		cmd.Env = append(os.Environ(), job.Env...)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	job.Stdout = stdout.String()
	job.Stderr = stderr.String()

	if err == nil {
		// Exit code 0 with stderr output is a warning, not a failure.
		if msg := strings.TrimSpace(job.Stderr); msg != "" {
			job.Warnings = append(job.Warnings, msg)
		}
		return
	}

	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}

	if errors.Is(jctx.Err(), context.DeadlineExceeded) || code == timeoutExitCode {
		job.Err = fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
		return
	}

	detail := strings.TrimSpace(job.Stderr)
	if detail == "" {
		detail = err.Error()
	}
	job.Err = fmt.Errorf("error code %d: %s", code, detail)
}

// notify delivers the fire-and-forget progress notification.
func (r *Runner) notify(job *Job) {
	if r.observer == nil || job.Err != nil || job.Message == "" {
		return
	}
	go r.observer(job)
}
