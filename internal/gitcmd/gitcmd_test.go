package gitcmd

import (
	"strings"
	"testing"
)

func TestCloneCommand(t *testing.T) {
	cmd := Clone("https://example.com/owner/plugin.git", "/tmp/pack/plugin")

	if cmd.IsZero() {
		t.Fatal("expected non-zero clone command")
	}

	joined := strings.Join(cmd.Args, " ")

	for _, want := range []string{
		"clone",
		"--filter=blob:none",
		"--recurse-submodules",
		"--also-filter-submodules",
		"https://example.com/owner/plugin.git",
		"/tmp/pack/plugin",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("clone command missing %q: %s", want, joined)
		}
	}
}

func TestGCSuppressed(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{"clone", Clone("src", "dst")},
		{"fetch", Fetch()},
		{"checkout", Checkout("abc123")},
		{"stash", Stash("msg")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joined := strings.Join(tt.cmd.Args, " ")
			if !strings.Contains(joined, "-c gc.auto=0") {
				t.Errorf("expected gc.auto=0 in %s command, got %s", tt.name, joined)
			}
		})
	}
}

func TestLogRange(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		to       string
		wantZero bool
	}{
		{"distinct hashes", "abc123", "def456", false},
		{"same hash", "abc123", "abc123", true},
		{"empty from", "", "def456", true},
		{"empty to", "abc123", "", true},
		{"both empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := LogRange(tt.from, tt.to)
			if cmd.IsZero() != tt.wantZero {
				t.Errorf("LogRange(%q, %q).IsZero() = %v, want %v",
					tt.from, tt.to, cmd.IsZero(), tt.wantZero)
			}
			if !tt.wantZero {
				joined := strings.Join(cmd.Args, " ")
				if !strings.Contains(joined, tt.from+".."+tt.to) {
					t.Errorf("expected range %s..%s in command, got %s", tt.from, tt.to, joined)
				}
			}
		})
	}
}

func TestCommitFor(t *testing.T) {
	cmd := CommitFor("v1.2.3")
	joined := strings.Join(cmd.Args, " ")
	if !strings.Contains(joined, "v1.2.3^{commit}") {
		t.Errorf("expected peeled ref in command, got %s", joined)
	}
}

func TestListingCommands(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"remote branches", RemoteBranches(), "--remotes"},
		{"tags", Tags(), "tag"},
		{"tags containing", TagsContaining("abc123"), "--contains"},
		{"remote url", RemoteURL(), "get-url"},
		{"default branch", DefaultBranch(), "origin/HEAD"},
		{"head commit", HeadCommit(), "HEAD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cmd.IsZero() {
				t.Fatal("expected non-zero command")
			}
			if tt.cmd.Args[0] != "git" {
				t.Errorf("expected git binary first, got %q", tt.cmd.Args[0])
			}
			joined := strings.Join(tt.cmd.Args, " ")
			if !strings.Contains(joined, tt.want) {
				t.Errorf("expected %q in command, got %s", tt.want, joined)
			}
		})
	}
}
