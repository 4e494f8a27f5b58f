// Package pack implements a git-driven plugin package manager: spec
// normalization, parallel install and update pipelines, version resolution,
// and a reviewable confirmation workflow.
//
// The Manager is the embedding surface. A host editor (or the keypack CLI)
// constructs one per plugin root and drives it through Add, Update, and Get.
// All failures are plugin-scoped and collected; a batch always makes
// progress on every independent plugin.
package pack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dshills/keypack/internal/runner"
)

// Notifier receives user-facing progress and result messages.
type Notifier func(msg string)

// Confirmer presents a confirmation report for interactive approval.
// It returns the plugin names still approved for update; ok is false when
// the user cancelled. Cancellation is not an error.
type Confirmer interface {
	Confirm(report Report) (approved []string, ok bool, err error)
}

// Config configures a Manager.
type Config struct {
	// Root is the package root. Each plugin occupies <Root>/<name>/.
	Root string

	// Concurrency caps parallel subprocess jobs. Zero selects the
	// runner default.
	Concurrency int

	// Timeout bounds each individual job. Zero selects the runner
	// default.
	Timeout time.Duration

	// HistoryPath is the append-only update log.
	// Defaults to <Root>/keypack.log.
	HistoryPath string

	// SnapshotPath is the informational state snapshot.
	// Defaults to <Root>/.keypack-state.json.
	SnapshotPath string

	// Notify receives progress and aggregated result messages. May be
	// nil.
	Notify Notifier

	// Confirm is the interactive confirmation surface. When nil,
	// non-forced updates render their report through Notify and apply
	// nothing.
	Confirm Confirmer
}

// Manager owns the plugin registry and pipelines for one package root.
type Manager struct {
	root         string
	historyPath  string
	snapshotPath string

	runner   *runner.Runner
	registry *Registry
	notify   Notifier
	confirm  Confirmer
	events   listeners
}

// New creates a Manager, creating the package root if needed.
func New(cfg Config) (*Manager, error) {
	if cfg.Root == "" {
		return nil, errors.New("package root is required")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create package root: %w", err)
	}

	if cfg.HistoryPath == "" {
		cfg.HistoryPath = filepath.Join(cfg.Root, "keypack.log")
	}
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = filepath.Join(cfg.Root, ".keypack-state.json")
	}

	m := &Manager{
		root:         cfg.Root,
		historyPath:  cfg.HistoryPath,
		snapshotPath: cfg.SnapshotPath,
		registry:     NewRegistry(),
		notify:       cfg.Notify,
		confirm:      cfg.Confirm,
	}

	m.runner = runner.New(runner.Config{
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.Timeout,
		Observer: func(job *runner.Job) {
			m.message(job.Message)
		},
	})

	return m, nil
}

// Root returns the package root directory.
func (m *Manager) Root() string {
	return m.root
}

// Subscribe adds a lifecycle event listener.
// Returns an unsubscribe function.
func (m *Manager) Subscribe(fn Listener) func() {
	return m.events.subscribe(fn)
}

// PluginInfo describes one known plugin for reporting.
type PluginInfo struct {
	// Name is the plugin identifier.
	Name string

	// Source is the origin URI, possibly empty until self-healed.
	Source string

	// Version is the configured version constraint.
	Version string

	// Path is the plugin directory.
	Path string

	// Head is the last-known checked-out commit, from the snapshot.
	Head string

	// Installed reports whether the directory currently exists.
	Installed bool
}

// Get returns the session registry merged with on-disk discovery and the
// persisted snapshot. Plugins whose directories were removed out-of-band
// are still reported, with Installed set to false.
func (m *Manager) Get() []PluginInfo {
	snapshot := readSnapshot(m.snapshotPath)

	known := make(map[string]PluginInfo)

	for name, e := range snapshot {
		known[name] = PluginInfo{
			Name:    name,
			Source:  e.Source,
			Version: e.Version,
			Head:    e.Head,
			Path:    filepath.Join(m.root, name),
		}
	}

	for _, p := range m.registry.All() {
		info := known[p.Spec.Name]
		info.Name = p.Spec.Name
		info.Source = p.Spec.Source
		info.Version = p.Spec.Version
		info.Path = p.Path
		known[p.Spec.Name] = info
	}

	for _, name := range m.diskPlugins() {
		info, ok := known[name]
		if !ok {
			info = PluginInfo{Name: name, Path: filepath.Join(m.root, name)}
		}
		known[name] = info
	}

	names := make([]string, 0, len(known))
	for name := range known {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]PluginInfo, 0, len(names))
	for _, name := range names {
		info := known[name]
		if st, err := os.Stat(info.Path); err == nil && st.IsDir() {
			info.Installed = true
		}
		result = append(result, info)
	}
	return result
}

// diskPlugins lists plugin directory names under the package root.
// Hidden entries and the history log are not plugins.
func (m *Manager) diskPlugins() []string {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names
}

// message delivers a user-facing notification if a notifier is configured.
func (m *Manager) message(msg string) {
	if m.notify != nil && msg != "" {
		m.notify(msg)
	}
}

// fire delivers a lifecycle event for every live task in the slice.
// Firing is skipped for any plugin carrying an error at trigger time.
func (m *Manager) fire(event Event, tasks []*task) {
	for _, t := range tasks {
		if t.failed() {
			continue
		}
		m.events.fire(event, EventPayload{
			Path:   t.plugin.Path,
			Source: t.plugin.Spec.Source,
			Name:   t.plugin.Spec.Name,
		})
	}
}

// outcome builds the single aggregated notification for an action and
// returns the joined per-plugin errors.
func (m *Manager) outcome(action string, tasks []*task) error {
	var lines []string
	var errs []error

	for _, t := range tasks {
		name := t.plugin.Spec.Name
		if t.job.Err != nil {
			lines = append(lines, fmt.Sprintf("Error in `%s` during %s: %v", name, action, t.job.Err))
			errs = append(errs, fmt.Errorf("%s: %w", name, t.job.Err))
		}
		if len(t.job.Warnings) > 0 {
			lines = append(lines, fmt.Sprintf("Warnings in `%s` during %s: %s",
				name, action, strings.Join(t.job.Warnings, "; ")))
		}
	}

	if len(lines) > 0 {
		m.message(strings.Join(lines, "\n"))
	}
	return errors.Join(errs...)
}

// saveSnapshot merges the final state of the given tasks into the
// persisted snapshot. Failed tasks keep whatever was recorded before.
func (m *Manager) saveSnapshot(tasks []*task) {
	entries := readSnapshot(m.snapshotPath)

	for _, t := range tasks {
		if t.failed() {
			continue
		}
		head := t.head
		if t.state == StateCheckedOut || t.state == StateDone {
			if t.target != "" {
				head = t.target
			}
		}
		entries[t.plugin.Spec.Name] = snapshotEntry{
			Source:  t.plugin.Spec.Source,
			Version: t.plugin.Spec.Version,
			Head:    head,
		}
	}

	if err := writeSnapshot(m.snapshotPath, entries); err != nil {
		m.message(fmt.Sprintf("Warning: %v", err))
	}
}
