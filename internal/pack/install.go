package pack

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/keypack/internal/docindex"
	"github.com/dshills/keypack/internal/gitcmd"
)

// AddOptions configures Add.
type AddOptions struct {
	// Force re-resolves and checks out plugins that are already
	// installed, instead of skipping them.
	Force bool
}

// Add normalizes the given specs, clones the ones absent from disk, and
// brings every processed plugin to its resolved target version. Invalid
// specs fail fast without spawning a subprocess and do not abort the rest
// of the batch. The returned error joins all plugin-scoped failures.
func (m *Manager) Add(ctx context.Context, specs []Spec, opts AddOptions) error {
	var specErrs []error
	var tasks []*task
	var toClone []*task

	for _, s := range specs {
		normalized, err := Normalize(m.root, s)
		if err != nil {
			specErrs = append(specErrs, err)
			continue
		}

		plugin := Resolve(m.root, normalized)
		t := newTask(plugin)

		switch {
		case plugin.Installed():
			if !opts.Force {
				m.message(fmt.Sprintf("`%s` is already installed", normalized.Name))
				m.registry.Put(plugin)
				continue
			}
			t.state = StateCloned
		default:
			// The target directory does not exist yet; clone from a
			// neutral working directory.
			t.job.Dir = m.root
			toClone = append(toClone, t)
		}
		tasks = append(tasks, t)
	}

	if len(tasks) == 0 {
		return joinErrs(specErrs)
	}

	m.fire(EventBeforeInstall, toClone)

	err := m.runStage(ctx, toClone, func(t *task) gitcmd.Command {
		return gitcmd.Clone(t.plugin.Spec.Source, t.plugin.Path)
	}, func(t *task) string {
		return fmt.Sprintf("installed `%s`", t.plugin.Spec.Name)
	})
	if err != nil {
		return err
	}

	// Subsequent stages run inside the now-existing plugin directory.
	for _, t := range toClone {
		if t.failed() {
			continue
		}
		t.job.Dir = t.plugin.Path
		t.state = StateCloned
	}

	if err := m.resolveTargets(ctx, tasks); err != nil {
		return err
	}

	// Checkout runs even when head already equals target so derived
	// artifacts are always regenerated for fresh clones.
	err = m.runStage(ctx, tasks, func(t *task) gitcmd.Command {
		if t.target == "" {
			return gitcmd.Command{}
		}
		return gitcmd.Checkout(t.target)
	}, nil)
	if err != nil {
		return err
	}

	for _, t := range tasks {
		if t.failed() {
			continue
		}
		t.state = StateCheckedOut
		if _, derr := docindex.Generate(t.plugin.Path); derr != nil {
			t.job.Warnings = append(t.job.Warnings, derr.Error())
		}
		t.state = StateDone
		m.registry.Put(t.plugin)
	}

	m.fire(EventAfterInstall, tasks)
	m.saveSnapshot(tasks)

	specErrs = append(specErrs, m.outcome("install", tasks))
	return joinErrs(specErrs)
}

// joinErrs joins non-nil errors, returning nil when none remain.
func joinErrs(errs []error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return errors.Join(filtered...)
}
