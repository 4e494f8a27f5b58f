// Package docindex regenerates the derived help tag index for a plugin.
//
// Plugins ship documentation as plain-text files under doc/ with inline
// tag markers of the form *tag-name*. The editor's help system looks tags
// up in a doc/tags file mapping each tag to its source file and search
// pattern. Regeneration runs after every checkout that actually moved a
// plugin, so the index never goes stale.
package docindex

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// tagMarker matches *tag* markers: no whitespace, asterisks, or pipes
// inside the tag name.
var tagMarker = regexp.MustCompile(`\*([^*|[:space:]]+)\*`)

// Generate scans <pluginPath>/doc for tag markers and rewrites
// <pluginPath>/doc/tags. It returns the number of tags written. A plugin
// without a doc directory is not an error; the index is simply absent.
func Generate(pluginPath string) (int, error) {
	docDir := filepath.Join(pluginPath, "doc")
	info, err := os.Stat(docDir)
	if err != nil || !info.IsDir() {
		return 0, nil
	}

	entries, err := os.ReadDir(docDir)
	if err != nil {
		return 0, fmt.Errorf("read doc dir: %w", err)
	}

	// tag name -> "file\t/*tag*" suffix
	tags := make(map[string]string)

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(docDir, e.Name()))
		if err != nil {
			return 0, fmt.Errorf("read doc file %s: %w", e.Name(), err)
		}
		for _, match := range tagMarker.FindAllStringSubmatch(string(data), -1) {
			name := match[1]
			// First definition wins; duplicate tags across files keep
			// the lexically earlier file for determinism.
			if prev, ok := tags[name]; ok && prev <= e.Name() {
				continue
			}
			tags[name] = e.Name()
		}
	}

	if len(tags) == 0 {
		return 0, nil
	}

	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s\t%s\t/*%s*\n", name, tags[name], name)
	}

	if err := os.WriteFile(filepath.Join(docDir, "tags"), []byte(b.String()), 0o644); err != nil {
		return 0, fmt.Errorf("write tag index: %w", err)
	}
	return len(names), nil
}
