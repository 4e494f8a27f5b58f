package pack

import (
	"context"

	"github.com/dshills/keypack/internal/gitcmd"
	"github.com/dshills/keypack/internal/runner"
)

// task tracks one plugin through a pipeline run. The underlying job is
// reused across stages; its sticky error is what keeps a failed plugin out
// of every later stage.
type task struct {
	plugin ResolvedPlugin
	job    *runner.Job
	state  PluginState

	head        string
	target      string
	targetLabel string
	changeLog   string

	// resolution scratch state
	ref         string
	needDefault bool
}

// newTask creates the per-plugin pipeline state.
func newTask(p ResolvedPlugin) *task {
	return &task{
		plugin: p,
		state:  StatePending,
		job: &runner.Job{
			Name: p.Spec.Name,
			Dir:  p.Path,
			Env:  []string{"GIT_TERMINAL_PROMPT=0"},
		},
	}
}

// failed reports whether the task has a sticky error.
func (t *task) failed() bool {
	return t.job.Err != nil
}

// fail records a plugin-scoped error and moves the task to the absorbing
// failed state.
func (t *task) fail(err error) {
	if t.job.Err == nil {
		t.job.Err = err
	}
	t.state = StateFailed
}

// out returns the trimmed stdout of the last stage.
func (t *task) out() string {
	return trim(t.job.Stdout)
}

// runStage assigns each live task its next command and executes the batch.
// Tasks for which build returns the zero command sit the stage out; failed
// tasks are never re-entered.
func (m *Manager) runStage(ctx context.Context, tasks []*task, build func(t *task) gitcmd.Command, message func(t *task) string) error {
	jobs := make([]*runner.Job, 0, len(tasks))
	for _, t := range tasks {
		if t.failed() {
			continue
		}
		cmd := build(t)
		t.job.Reset(cmd.Args)
		if message != nil && !cmd.IsZero() {
			t.job.Message = message(t)
		}
		jobs = append(jobs, t.job)
	}
	if err := m.runner.Run(ctx, jobs); err != nil {
		return err
	}
	for _, t := range tasks {
		if t.job.Err != nil {
			t.state = StateFailed
		}
	}
	return nil
}
