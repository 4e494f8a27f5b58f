package pack

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The tests below drive the full pipelines against real git repositories
// created in temporary directories.

func gitOrSkip(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		"GIT_TERMINAL_PROMPT=0",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

// newUpstream creates a bare-bones origin repository with one commit on main.
func newUpstream(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	runGit(t, dir, "init", "--quiet", "-b", "main")
	runGit(t, dir, "config", "uploadpack.allowFilter", "true")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.txt"), []byte("v1\n"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "--quiet", "-m", "initial commit")
	return dir
}

func commitUpstream(t *testing.T, dir, content, msg string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.txt"), []byte(content), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "--quiet", "-m", msg)
	return runGit(t, dir, "rev-parse", "HEAD")
}

func fileURL(dir string) string {
	return "file://" + dir
}

// notifyLog collects notifications; the observer path delivers them from
// goroutines.
type notifyLog struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notifyLog) notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func newTestManager(t *testing.T) (*Manager, *notifyLog) {
	t.Helper()
	log := &notifyLog{}
	m, err := New(Config{
		Root:        filepath.Join(t.TempDir(), "packs"),
		Concurrency: 2,
		Timeout:     30 * time.Second,
		Notify:      log.notify,
	})
	require.NoError(t, err)
	return m, log
}

func TestAddInstallsAndResolvesTag(t *testing.T) {
	gitOrSkip(t)

	upstream := newUpstream(t, "plug")
	runGit(t, upstream, "tag", "v1.0.0")
	want := runGit(t, upstream, "rev-parse", "HEAD")

	m, _ := newTestManager(t)
	err := m.Add(context.Background(), []Spec{{Source: fileURL(upstream)}}, AddOptions{})
	require.NoError(t, err)

	path := filepath.Join(m.Root(), "plug")
	head := runGit(t, path, "rev-parse", "HEAD")
	assert.Equal(t, want, head)

	infos := m.Get()
	require.Len(t, infos, 1)
	assert.Equal(t, "plug", infos[0].Name)
	assert.True(t, infos[0].Installed)
	assert.Equal(t, want, infos[0].Head)
}

func TestAddSkipsInstalledWithoutForce(t *testing.T) {
	gitOrSkip(t)

	upstream := newUpstream(t, "plug")
	m, log := newTestManager(t)
	spec := Spec{Source: fileURL(upstream)}

	require.NoError(t, m.Add(context.Background(), []Spec{spec}, AddOptions{}))
	require.NoError(t, m.Add(context.Background(), []Spec{spec}, AddOptions{}))

	log.mu.Lock()
	defer log.mu.Unlock()
	found := false
	for _, msg := range log.msgs {
		if strings.Contains(msg, "already installed") {
			found = true
		}
	}
	assert.True(t, found, "expected an already-installed notification, got %v", log.msgs)
}

func TestAddInvalidSpecDoesNotAbortBatch(t *testing.T) {
	gitOrSkip(t)

	upstream := newUpstream(t, "good")
	m, _ := newTestManager(t)

	err := m.Add(context.Background(), []Spec{
		{Name: ".."},
		{Source: fileURL(upstream)},
	}, AddOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSpec)

	p := Resolve(m.Root(), PluginSpec{Name: "good"})
	assert.True(t, p.Installed(), "valid plugin should install despite invalid sibling")
}

func TestAddNoTagsFallsBackToDefaultBranch(t *testing.T) {
	gitOrSkip(t)

	upstream := newUpstream(t, "plug")
	want := runGit(t, upstream, "rev-parse", "HEAD")

	m, _ := newTestManager(t)
	require.NoError(t, m.Add(context.Background(), []Spec{{Source: fileURL(upstream)}}, AddOptions{}))

	head := runGit(t, filepath.Join(m.Root(), "plug"), "rev-parse", "HEAD")
	assert.Equal(t, want, head)
}

func TestUpdateAppliesRangeConstraint(t *testing.T) {
	gitOrSkip(t)

	upstream := newUpstream(t, "plug")
	runGit(t, upstream, "tag", "v1.0.0")

	m, _ := newTestManager(t)
	require.NoError(t, m.Add(context.Background(),
		[]Spec{{Source: fileURL(upstream), Version: "^1.0"}}, AddOptions{}))

	// Publish a newer matching tag and one outside the range.
	want := commitUpstream(t, upstream, "v1.1\n", "minor release")
	runGit(t, upstream, "tag", "v1.1.0")
	commitUpstream(t, upstream, "v2\n", "major release")
	runGit(t, upstream, "tag", "v2.0.0")

	require.NoError(t, m.Update(context.Background(), nil, UpdateOptions{Force: true}))

	head := runGit(t, filepath.Join(m.Root(), "plug"), "rev-parse", "HEAD")
	assert.Equal(t, want, head, "range ^1.0 should select v1.1.0, not v2.0.0")
}

func TestUpdateFrozenNeverMoves(t *testing.T) {
	gitOrSkip(t)

	upstream := newUpstream(t, "plug")
	want := runGit(t, upstream, "rev-parse", "HEAD")

	m, _ := newTestManager(t)
	require.NoError(t, m.Add(context.Background(),
		[]Spec{{Source: fileURL(upstream), Version: VersionFrozen}}, AddOptions{}))

	commitUpstream(t, upstream, "newer\n", "upstream moved on")

	require.NoError(t, m.Update(context.Background(), nil, UpdateOptions{Force: true}))

	head := runGit(t, filepath.Join(m.Root(), "plug"), "rev-parse", "HEAD")
	assert.Equal(t, want, head, "frozen plugin must not advance")
}

func TestUpdateTracksBranch(t *testing.T) {
	gitOrSkip(t)

	upstream := newUpstream(t, "plug")

	m, _ := newTestManager(t)
	require.NoError(t, m.Add(context.Background(),
		[]Spec{{Source: fileURL(upstream), Version: "main"}}, AddOptions{}))

	want := commitUpstream(t, upstream, "second\n", "second commit")

	require.NoError(t, m.Update(context.Background(), nil, UpdateOptions{Force: true}))

	head := runGit(t, filepath.Join(m.Root(), "plug"), "rev-parse", "HEAD")
	assert.Equal(t, want, head)
}

func TestUpdateSurvivesDeletedPlugin(t *testing.T) {
	gitOrSkip(t)

	alive := newUpstream(t, "alive")
	doomed := newUpstream(t, "doomed")

	m, _ := newTestManager(t)
	require.NoError(t, m.Add(context.Background(), []Spec{
		{Source: fileURL(alive), Version: "main"},
		{Source: fileURL(doomed), Version: "main"},
	}, AddOptions{}))

	// Out-of-band removal; the snapshot still knows the plugin.
	require.NoError(t, os.RemoveAll(filepath.Join(m.Root(), "doomed")))

	want := commitUpstream(t, alive, "second\n", "second commit")

	err := m.Update(context.Background(), nil, UpdateOptions{Force: true})
	require.Error(t, err, "the deleted plugin must surface an error")
	assert.Contains(t, err.Error(), "doomed")

	head := runGit(t, filepath.Join(m.Root(), "alive"), "rev-parse", "HEAD")
	assert.Equal(t, want, head, "the healthy plugin must still update")
}

func TestUpdateUnknownName(t *testing.T) {
	gitOrSkip(t)

	m, _ := newTestManager(t)
	err := m.Update(context.Background(), []string{"ghost"}, UpdateOptions{Force: true})
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestUpdateWritesHistory(t *testing.T) {
	gitOrSkip(t)

	upstream := newUpstream(t, "plug")
	m, _ := newTestManager(t)
	require.NoError(t, m.Add(context.Background(),
		[]Spec{{Source: fileURL(upstream), Version: "main"}}, AddOptions{}))

	require.NoError(t, m.Update(context.Background(), nil, UpdateOptions{Force: true}))

	data, err := os.ReadFile(filepath.Join(m.Root(), "keypack.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "==== Update (")
	assert.Contains(t, string(data), "plug")
}

func TestUpdateSelfHealsMissingSource(t *testing.T) {
	gitOrSkip(t)

	upstream := newUpstream(t, "plug")
	m, _ := newTestManager(t)
	require.NoError(t, m.Add(context.Background(),
		[]Spec{{Source: fileURL(upstream), Version: "main"}}, AddOptions{}))

	// Drop the snapshot so the source must be re-derived from the clone.
	require.NoError(t, os.Remove(filepath.Join(m.Root(), ".keypack-state.json")))
	fresh, err := New(Config{Root: m.Root(), Timeout: 30 * time.Second})
	require.NoError(t, err)

	want := commitUpstream(t, upstream, "second\n", "second commit")
	require.NoError(t, fresh.Update(context.Background(), nil, UpdateOptions{Force: true}))

	head := runGit(t, filepath.Join(m.Root(), "plug"), "rev-parse", "HEAD")
	assert.Equal(t, want, head)
}

func TestUpdateStashesLocalChanges(t *testing.T) {
	gitOrSkip(t)

	upstream := newUpstream(t, "plug")
	m, _ := newTestManager(t)
	require.NoError(t, m.Add(context.Background(),
		[]Spec{{Source: fileURL(upstream), Version: "main"}}, AddOptions{}))

	path := filepath.Join(m.Root(), "plug")
	require.NoError(t, os.WriteFile(filepath.Join(path, "plugin.txt"), []byte("local edit\n"), 0o644))

	commitUpstream(t, upstream, "second\n", "second commit")
	require.NoError(t, m.Update(context.Background(), nil, UpdateOptions{Force: true}))

	stashes := runGit(t, path, "stash", "list")
	assert.Contains(t, stashes, "keypack update")
}

// approveAll approves every pending plugin without user interaction.
type approveAll struct{ confirmed *Report }

func (c *approveAll) Confirm(r Report) ([]string, bool, error) {
	*c.confirmed = r
	return r.PendingNames(), true, nil
}

// cancelAll rejects the report outright.
type cancelAll struct{}

func (cancelAll) Confirm(r Report) ([]string, bool, error) {
	return nil, false, nil
}

func TestUpdateConfirmationApplies(t *testing.T) {
	gitOrSkip(t)

	upstream := newUpstream(t, "plug")
	var report Report
	m, _ := newTestManager(t)
	m.confirm = &approveAll{confirmed: &report}

	require.NoError(t, m.Add(context.Background(),
		[]Spec{{Source: fileURL(upstream), Version: "main"}}, AddOptions{}))

	want := commitUpstream(t, upstream, "second\n", "second commit")
	require.NoError(t, m.Update(context.Background(), nil, UpdateOptions{}))

	require.Len(t, report.Pending(), 1)
	head := runGit(t, filepath.Join(m.Root(), "plug"), "rev-parse", "HEAD")
	assert.Equal(t, want, head)
}

func TestUpdateCancellationChangesNothing(t *testing.T) {
	gitOrSkip(t)

	upstream := newUpstream(t, "plug")
	m, _ := newTestManager(t)
	m.confirm = cancelAll{}

	require.NoError(t, m.Add(context.Background(),
		[]Spec{{Source: fileURL(upstream), Version: "main"}}, AddOptions{}))
	before := runGit(t, filepath.Join(m.Root(), "plug"), "rev-parse", "HEAD")

	commitUpstream(t, upstream, "second\n", "second commit")
	require.NoError(t, m.Update(context.Background(), nil, UpdateOptions{}))

	after := runGit(t, filepath.Join(m.Root(), "plug"), "rev-parse", "HEAD")
	assert.Equal(t, before, after, "cancelled update must not move anything")
}

func TestLifecycleEvents(t *testing.T) {
	gitOrSkip(t)

	upstream := newUpstream(t, "plug")
	m, _ := newTestManager(t)

	var mu sync.Mutex
	var seen []string
	unsub := m.Subscribe(func(e Event, p EventPayload) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.String()+":"+p.Name)
	})
	defer unsub()

	require.NoError(t, m.Add(context.Background(),
		[]Spec{{Source: fileURL(upstream), Version: "main"}}, AddOptions{}))

	commitUpstream(t, upstream, "second\n", "second commit")
	require.NoError(t, m.Update(context.Background(), nil, UpdateOptions{Force: true}))

	mu.Lock()
	defer mu.Unlock()
	want := []string{
		"before-install:plug", "after-install:plug",
		"before-update:plug", "after-update:plug",
	}
	assert.Equal(t, want, seen)
}

func TestGetReportsMissingPlugin(t *testing.T) {
	gitOrSkip(t)

	upstream := newUpstream(t, "plug")
	m, _ := newTestManager(t)
	require.NoError(t, m.Add(context.Background(),
		[]Spec{{Source: fileURL(upstream)}}, AddOptions{}))

	require.NoError(t, os.RemoveAll(filepath.Join(m.Root(), "plug")))

	infos := m.Get()
	require.Len(t, infos, 1)
	assert.Equal(t, "plug", infos[0].Name)
	assert.False(t, infos[0].Installed)
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestErrorsAreSentinels(t *testing.T) {
	wrapped := errors.Join(ErrInvalidSpec, ErrNotInstalled)
	assert.ErrorIs(t, wrapped, ErrInvalidSpec)
	assert.ErrorIs(t, wrapped, ErrNotInstalled)
}
