// Package gitcmd constructs git command lines for the plugin package manager.
//
// Every flag and quoting decision for the external git binary lives here so
// that no other package assembles argument vectors directly. The package
// performs no I/O; it only builds commands for the job runner to execute.
package gitcmd

// Command is an argument vector for a single git invocation.
// A zero Command means "nothing to run" and is skipped by the job runner.
type Command struct {
	// Args is the full argument vector, including the binary name.
	Args []string
}

// IsZero returns true if the command has nothing to execute.
func (c Command) IsZero() bool {
	return len(c.Args) == 0
}

// git builds a Command with gc.auto disabled.
// Automatic garbage collection is suppressed so concurrent jobs never
// contend with a background repack in the same object store layout.
func git(args ...string) Command {
	full := append([]string{"git", "-c", "gc.auto=0"}, args...)
	return Command{Args: full}
}

// Clone builds a clone command for a plugin source.
// The clone is blob-filtered but submodule-complete: cheap enough for
// interactive installs while still producing a usable working tree.
func Clone(source, path string) Command {
	return git("clone", "--quiet",
		"--filter=blob:none",
		"--recurse-submodules", "--also-filter-submodules",
		"--origin", "origin",
		source, path)
}

// Fetch builds a fetch command that updates all remote refs and tags.
func Fetch() Command {
	return git("fetch", "--quiet", "--tags", "--force",
		"--recurse-submodules=on-demand", "origin")
}

// Checkout builds a checkout command for the given commit or ref.
func Checkout(target string) Command {
	return git("checkout", "--quiet", target)
}

// Stash builds a stash command with the given message.
// The caller supplies a timestamped message so interrupted stashes can be
// identified after the fact.
func Stash(message string) Command {
	return git("stash", "push", "--quiet", "--message", message)
}

// HeadCommit builds a command that prints the current HEAD commit hash.
func HeadCommit() Command {
	return git("rev-parse", "HEAD")
}

// CommitFor builds a command that resolves a ref to its commit hash.
func CommitFor(ref string) Command {
	return git("rev-parse", ref+"^{commit}")
}

// RemoteBranches builds a command listing remote-tracking branch names,
// one short refname (e.g. "origin/main") per line.
func RemoteBranches() Command {
	return git("branch", "--remotes", "--list", "--format=%(refname:short)")
}

// Tags builds a command listing all tag names, one per line.
func Tags() Command {
	return git("tag", "--list")
}

// TagsContaining builds a command listing tags reachable from the given
// commit, one per line.
func TagsContaining(commit string) Command {
	return git("tag", "--list", "--contains", commit)
}

// TagsAt builds a command listing tags pointing exactly at the given
// commit, one per line.
func TagsAt(commit string) Command {
	return git("tag", "--list", "--points-at", commit)
}

// RemoteURL builds a command that prints the origin fetch URL.
func RemoteURL() Command {
	return git("remote", "get-url", "origin")
}

// DefaultBranch builds a command that prints the remote default branch
// as a short refname (e.g. "origin/main").
func DefaultBranch() Command {
	return git("rev-parse", "--abbrev-ref", "origin/HEAD")
}

// LogRange builds a command rendering the commits between two hashes.
// A zero-length range is a valid query state, so when from equals to or
// either side is empty the zero Command is returned instead of a malformed
// invocation.
func LogRange(from, to string) Command {
	if from == "" || to == "" || from == to {
		return Command{}
	}
	return git("log", "--pretty=format:%h %s (%cr)", from+".."+to)
}
