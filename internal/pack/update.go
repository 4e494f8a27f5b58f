package pack

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dshills/keypack/internal/docindex"
	"github.com/dshills/keypack/internal/gitcmd"
)

// UpdateOptions configures Update.
type UpdateOptions struct {
	// Force applies pending checkouts immediately instead of asking for
	// confirmation.
	Force bool

	// Offline skips the remote fetch. The confirmation workflow uses
	// this to avoid fetching twice when re-entering in forced mode.
	Offline bool
}

// Update fetches remote state for the named plugins (default: all known),
// resolves each plugin's target commit, and either applies the pending
// checkouts (forced) or hands the grouped report to the confirmation
// surface. Failures stay plugin-scoped; the returned error joins them.
func (m *Manager) Update(ctx context.Context, names []string, opts UpdateOptions) error {
	plugins, selectErrs := m.selectForUpdate(names)
	if len(plugins) == 0 {
		return joinErrs(selectErrs)
	}

	tasks := make([]*task, 0, len(plugins))
	for _, p := range plugins {
		tasks = append(tasks, newTask(p))
	}

	// Self-heal: re-derive unknown sources from the repositories
	// themselves.
	err := m.runStage(ctx, tasks, func(t *task) gitcmd.Command {
		if t.plugin.Spec.Source != "" {
			return gitcmd.Command{}
		}
		return gitcmd.RemoteURL()
	}, nil)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.failed() || t.plugin.Spec.Source != "" {
			continue
		}
		t.plugin.Spec.Source = t.out()
	}

	// Remote state must be current before any commit resolution; new
	// tags and branches are not visible otherwise.
	if !opts.Offline {
		err = m.runStage(ctx, tasks, func(t *task) gitcmd.Command {
			return gitcmd.Fetch()
		}, func(t *task) string {
			return fmt.Sprintf("fetched `%s`", t.plugin.Spec.Name)
		})
		if err != nil {
			return err
		}
	}

	if err := m.resolveTargets(ctx, tasks); err != nil {
		return err
	}

	if err := m.renderChangeLogs(ctx, tasks); err != nil {
		return err
	}

	if !opts.Force {
		return m.confirmAndApply(ctx, tasks, selectErrs)
	}

	m.apply(ctx, tasks)

	report := BuildReport(m.decisions(tasks))
	if err := AppendHistory(m.historyPath, "Update", report.Render()); err != nil {
		m.message(fmt.Sprintf("Warning: %v", err))
	}

	m.saveSnapshot(tasks)
	return joinErrs(append(selectErrs, m.outcome("update", tasks)))
}

// renderChangeLogs fills each live task's change log: the commit range when
// head differs from target, otherwise any tags newer than head. The choice
// dispatches on the head/target equality invariant.
func (m *Manager) renderChangeLogs(ctx context.Context, tasks []*task) error {
	err := m.runStage(ctx, tasks, func(t *task) gitcmd.Command {
		return gitcmd.LogRange(t.head, t.target)
	}, nil)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.failed() || t.head == t.target {
			continue
		}
		t.changeLog = t.out()
	}

	// For satisfied constraints, newer reachable tags are a cheap signal
	// that the plugin moved on even though nothing will be applied.
	err = m.runStage(ctx, tasks, func(t *task) gitcmd.Command {
		if t.head == "" || t.head != t.target {
			return gitcmd.Command{}
		}
		return gitcmd.TagsContaining(t.head)
	}, nil)
	if err != nil {
		return err
	}
	reachable := make(map[*task][]string)
	for _, t := range tasks {
		if t.failed() || t.head == "" || t.head != t.target {
			continue
		}
		reachable[t] = splitLines(t.out())
	}

	err = m.runStage(ctx, tasks, func(t *task) gitcmd.Command {
		if _, ok := reachable[t]; !ok {
			return gitcmd.Command{}
		}
		return gitcmd.TagsAt(t.head)
	}, nil)
	if err != nil {
		return err
	}
	for t, tags := range reachable {
		if t.failed() {
			continue
		}
		at := make(map[string]bool)
		for _, tag := range splitLines(t.out()) {
			at[tag] = true
		}
		var newer []string
		for _, tag := range tags {
			if !at[tag] {
				newer = append(newer, tag)
			}
		}
		if len(newer) > 0 {
			t.changeLog = "newer tags: " + strings.Join(newer, ", ")
		} else {
			t.changeLog = "no pending updates"
		}
	}

	return nil
}

// confirmAndApply hands the report to the confirmation surface and, on
// approval, re-enters the update pipeline in forced offline mode restricted
// to the still-listed plugins. Cancellation discards the report with no
// state change.
func (m *Manager) confirmAndApply(ctx context.Context, tasks []*task, selectErrs []error) error {
	report := BuildReport(m.decisions(tasks))

	if m.confirm == nil {
		m.message(report.Render())
		return joinErrs(append(selectErrs, m.outcome("update", tasks)))
	}

	approved, ok, err := m.confirm.Confirm(report)
	if err != nil {
		return fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		m.message("update cancelled")
		return nil
	}

	approved = intersect(approved, report.PendingNames())
	if len(approved) == 0 {
		m.message("nothing approved for update")
		return joinErrs(append(selectErrs, m.outcome("update", tasks)))
	}

	return m.Update(ctx, approved, UpdateOptions{Force: true, Offline: true})
}

// apply performs the state transition for every task with a pending
// update: stash local modifications, check out the target, and regenerate
// derived indexes only for plugins actually moved.
func (m *Manager) apply(ctx context.Context, tasks []*task) {
	var applying []*task
	for _, t := range tasks {
		if !t.failed() && t.target != "" && t.head != t.target {
			applying = append(applying, t)
		}
	}

	if len(applying) == 0 {
		for _, t := range tasks {
			if !t.failed() {
				t.state = StateDone
				m.registry.Put(t.plugin)
			}
		}
		return
	}

	// Timestamped stash messages make interrupted runs identifiable.
	stashMsg := "keypack update " + time.Now().Format(historyTimeFormat)
	if err := m.runStage(ctx, applying, func(t *task) gitcmd.Command {
		return gitcmd.Stash(stashMsg)
	}, nil); err != nil {
		return
	}

	m.fire(EventBeforeUpdate, applying)

	err := m.runStage(ctx, applying, func(t *task) gitcmd.Command {
		return gitcmd.Checkout(t.target)
	}, func(t *task) string {
		return fmt.Sprintf("updated `%s` to %s", t.plugin.Spec.Name, t.targetLabel)
	})
	if err != nil {
		return
	}

	for _, t := range applying {
		if t.failed() {
			continue
		}
		t.state = StateCheckedOut
		if _, derr := docindex.Generate(t.plugin.Path); derr != nil {
			t.job.Warnings = append(t.job.Warnings, derr.Error())
		}
	}

	m.fire(EventAfterUpdate, applying)

	for _, t := range tasks {
		if !t.failed() {
			t.state = StateDone
			m.registry.Put(t.plugin)
		}
	}
}

// decisions converts pipeline tasks into report decisions.
func (m *Manager) decisions(tasks []*task) []UpdateDecision {
	out := make([]UpdateDecision, 0, len(tasks))
	for _, t := range tasks {
		warnings := make([]string, len(t.job.Warnings))
		copy(warnings, t.job.Warnings)
		out = append(out, UpdateDecision{
			Plugin:            t.plugin,
			HeadCommit:        t.head,
			TargetCommit:      t.target,
			TargetDescription: t.targetLabel,
			ChangeLog:         t.changeLog,
			Warnings:          warnings,
			Err:               t.job.Err,
		})
	}
	return out
}

// selectForUpdate resolves the requested names (default: all known
// plugins) against the registry, the snapshot, and on-disk discovery.
func (m *Manager) selectForUpdate(names []string) ([]ResolvedPlugin, []error) {
	known := make(map[string]ResolvedPlugin)

	snapshot := readSnapshot(m.snapshotPath)
	for name, e := range snapshot {
		known[name] = ResolvedPlugin{
			Spec: PluginSpec{Source: e.Source, Name: name, Version: e.Version},
			Path: filepath.Join(m.root, name),
		}
	}
	for _, name := range m.diskPlugins() {
		if _, ok := known[name]; !ok {
			known[name] = ResolvedPlugin{
				Spec: PluginSpec{Name: name},
				Path: filepath.Join(m.root, name),
			}
		}
	}
	for _, p := range m.registry.All() {
		known[p.Spec.Name] = p
	}

	if len(names) == 0 {
		all := make([]string, 0, len(known))
		for name := range known {
			all = append(all, name)
		}
		sort.Strings(all)
		names = all
	}

	var plugins []ResolvedPlugin
	var errs []error
	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		p, ok := known[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNotInstalled, name))
			continue
		}
		plugins = append(plugins, p)
	}
	return plugins, errs
}

// intersect returns the members of names that are present in allowed,
// preserving the order of names.
func intersect(names, allowed []string) []string {
	set := make(map[string]bool, len(allowed))
	for _, n := range allowed {
		set[n] = true
	}
	var out []string
	for _, n := range names {
		if set[n] {
			out = append(out, n)
		}
	}
	return out
}
