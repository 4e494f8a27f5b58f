package pack

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// VersionFrozen is the version sentinel meaning "keep the current state and
// never auto-advance" until the sentinel is removed.
const VersionFrozen = "frozen"

// Spec is a loose, user-supplied plugin specification.
type Spec struct {
	// Source is the origin URI of the plugin repository.
	Source string

	// Name overrides the directory name. Defaults to the last path
	// segment of Source.
	Name string

	// Version is an exact commit, tag, branch, semantic-version range,
	// or the "frozen" sentinel. Empty means "greatest available tag".
	Version string
}

// ParseSpec interprets a bare string as a plugin source.
func ParseSpec(raw string) Spec {
	return Spec{Source: strings.TrimSpace(raw)}
}

// PluginSpec is a canonical, validated plugin specification.
// It is immutable after normalization.
type PluginSpec struct {
	// Source is the origin URI.
	Source string

	// Name is the plugin identifier and on-disk directory name.
	Name string

	// Version is the version constraint, passed through as given.
	// Semantic-range parsing is deferred to version resolution.
	Version string
}

// ResolvedPlugin binds a normalized spec to a concrete filesystem path.
type ResolvedPlugin struct {
	// Spec is the normalized specification.
	Spec PluginSpec

	// Path is the plugin's directory: <root>/<name>.
	Path string
}

// Installed reports whether the plugin directory exists on disk.
// Directory presence, keyed by name, is the install-state source of truth.
func (p ResolvedPlugin) Installed() bool {
	info, err := os.Stat(p.Path)
	return err == nil && info.IsDir()
}

// Normalize validates a loose spec against the package root and produces
// a canonical PluginSpec. It is a pure function over the spec itself; the
// root is consulted only to decide whether an empty source can be inferred
// from an existing on-disk directory. Normalization is idempotent.
func Normalize(root string, s Spec) (PluginSpec, error) {
	source := strings.TrimSpace(s.Source)
	name := strings.TrimSpace(s.Name)

	if name == "" {
		name = nameFromSource(source)
	}

	if name == "" {
		return PluginSpec{}, fmt.Errorf("%w: missing name and source", ErrInvalidSpec)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return PluginSpec{}, fmt.Errorf("%w: name %q must not contain a path separator", ErrInvalidSpec, name)
	}

	if source == "" {
		// A nameless source is acceptable only for plugins already on
		// disk; the update pipeline re-derives the origin from the
		// repository itself.
		info, err := os.Stat(filepath.Join(root, name))
		if err != nil || !info.IsDir() {
			return PluginSpec{}, fmt.Errorf("%w: %q has no source and is not installed", ErrInvalidSpec, name)
		}
	}

	return PluginSpec{
		Source:  source,
		Name:    name,
		Version: strings.TrimSpace(s.Version),
	}, nil
}

// Resolve binds a normalized spec to its deterministic location under root.
// Two plugins with the same name always map to the same path.
func Resolve(root string, spec PluginSpec) ResolvedPlugin {
	return ResolvedPlugin{
		Spec: spec,
		Path: filepath.Join(root, spec.Name),
	}
}

// nameFromSource derives a plugin name from the last path segment of a
// source URI, stripping a trailing ".git".
func nameFromSource(source string) string {
	if source == "" {
		return ""
	}
	trimmed := strings.TrimRight(source, "/")
	idx := strings.LastIndexAny(trimmed, "/:")
	name := trimmed
	if idx >= 0 {
		name = trimmed[idx+1:]
	}
	return strings.TrimSuffix(name, ".git")
}
