package pack

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/dshills/keypack/internal/gitcmd"
)

// anyVersion is the constraint used when a spec leaves the version empty:
// select the greatest available tag.
const anyVersion = "*"

// xRange matches wildcard tag patterns like "1.x" or "v2.1.X".
var xRange = regexp.MustCompile(`(?i)^v?\d+(\.\d+)*\.x$`)

// isVersionRange reports whether a version string is a semantic-version
// range rather than a literal ref. Exact tags ("v1.2.3") are deliberately
// not ranges; they resolve directly through the version-control tool.
func isVersionRange(version string) bool {
	if version == "" {
		return false
	}
	return strings.ContainsAny(version, "*^~<>=| ") || xRange.MatchString(version)
}

// resolveTargets determines, for every live task, which concrete commit its
// version constraint currently refers to. The dispatch order is: frozen,
// literal remote branch, semantic-version range, then arbitrary ref.
// Queries are batched through the job runner, one stage at a time.
func (m *Manager) resolveTargets(ctx context.Context, tasks []*task) error {
	// Current head commit for every plugin.
	err := m.runStage(ctx, tasks, func(t *task) gitcmd.Command {
		return gitcmd.HeadCommit()
	}, nil)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.failed() {
			continue
		}
		t.head = t.out()

		// Frozen plugins resolve to their own head: updates are no-ops
		// until the sentinel is removed.
		if t.plugin.Spec.Version == VersionFrozen {
			t.target = t.head
			t.targetLabel = "frozen"
		}
	}

	// Literal remote branches take priority over everything but frozen.
	err = m.runStage(ctx, tasks, func(t *task) gitcmd.Command {
		if t.target != "" || t.plugin.Spec.Version == "" {
			return gitcmd.Command{}
		}
		return gitcmd.RemoteBranches()
	}, nil)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.failed() || t.target != "" || t.ref != "" {
			continue
		}
		version := t.plugin.Spec.Version
		if version != "" && containsLine(t.out(), "origin/"+version) {
			t.ref = "origin/" + version
			t.targetLabel = "branch " + version
		}
	}

	// Semantic-version ranges select the greatest matching tag.
	err = m.runStage(ctx, tasks, func(t *task) gitcmd.Command {
		if t.target != "" || t.ref != "" {
			return gitcmd.Command{}
		}
		if t.plugin.Spec.Version == "" || isVersionRange(t.plugin.Spec.Version) {
			return gitcmd.Tags()
		}
		return gitcmd.Command{}
	}, nil)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.failed() || t.target != "" || t.ref != "" {
			continue
		}
		version := t.plugin.Spec.Version
		switch {
		case version == "" || isVersionRange(version):
			constraint := version
			if constraint == "" {
				constraint = anyVersion
			}
			c, cerr := semver.NewConstraint(constraint)
			if cerr != nil {
				t.fail(fmt.Errorf("%w: bad range %q: %v", ErrResolution, version, cerr))
				continue
			}
			tag, ok := pickTag(splitLines(t.out()), c)
			switch {
			case ok:
				t.ref = tag
				t.targetLabel = "tag " + tag
			case version == "":
				// "Any version" with zero parseable tags falls back to
				// the remote default branch.
				t.needDefault = true
			default:
				t.fail(fmt.Errorf("%w: no tag matches %q", ErrResolution, version))
			}
		default:
			// Arbitrary ref: commit hash, local tag, anything git can
			// peel to a commit.
			t.ref = version
			t.targetLabel = "ref " + version
		}
	}

	// Default branch lookup for tagless any-version plugins.
	err = m.runStage(ctx, tasks, func(t *task) gitcmd.Command {
		if !t.needDefault {
			return gitcmd.Command{}
		}
		return gitcmd.DefaultBranch()
	}, nil)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.failed() || !t.needDefault {
			continue
		}
		t.ref = t.out()
		t.targetLabel = "branch " + strings.TrimPrefix(t.ref, "origin/")
		t.needDefault = false
	}

	// Peel every pending ref to its commit.
	err = m.runStage(ctx, tasks, func(t *task) gitcmd.Command {
		if t.target != "" || t.ref == "" {
			return gitcmd.Command{}
		}
		return gitcmd.CommitFor(t.ref)
	}, nil)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.failed() {
			continue
		}
		if t.target == "" && t.ref != "" {
			t.target = t.out()
		}
		if t.target != "" {
			t.state = StateResolved
		}
	}

	return nil
}

// pickTag returns the greatest tag whose parseable version satisfies the
// constraint. Tags that parse to equal precedence tie-break lexically by
// tag name.
func pickTag(tags []string, c *semver.Constraints) (string, bool) {
	var bestName string
	var best *semver.Version

	for _, tag := range tags {
		v, err := semver.NewVersion(tag)
		if err != nil {
			continue
		}
		if !c.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) || (v.Equal(best) && tag > bestName) {
			best = v
			bestName = tag
		}
	}
	return bestName, best != nil
}

// trim strips surrounding whitespace from command output.
func trim(s string) string {
	return strings.TrimSpace(s)
}

// splitLines splits command output into non-empty trimmed lines.
func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// containsLine reports whether output contains the given line exactly.
func containsLine(s, want string) bool {
	for _, line := range splitLines(s) {
		if line == want {
			return true
		}
	}
	return false
}
