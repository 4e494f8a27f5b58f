package pack

import (
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// snapshotEntry is the last-known state persisted for one plugin.
// The snapshot is informational only: Get() uses it to report plugins whose
// directories were removed out-of-band. It is never a cache of
// version-control state.
type snapshotEntry struct {
	Source  string
	Version string
	Head    string
}

// writeSnapshot persists the registry snapshot as JSON.
func writeSnapshot(path string, entries map[string]snapshotEntry) error {
	data := []byte(`{"plugins":{}}`)

	var err error
	for name, e := range entries {
		prefix := "plugins." + snapshotKey(name)
		if data, err = sjson.SetBytes(data, prefix+".source", e.Source); err != nil {
			return fmt.Errorf("encode snapshot for %s: %w", name, err)
		}
		if data, err = sjson.SetBytes(data, prefix+".version", e.Version); err != nil {
			return fmt.Errorf("encode snapshot for %s: %w", name, err)
		}
		if data, err = sjson.SetBytes(data, prefix+".head", e.Head); err != nil {
			return fmt.Errorf("encode snapshot for %s: %w", name, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// readSnapshot loads the persisted snapshot. A missing or unreadable file
// yields an empty map; the snapshot is advisory.
func readSnapshot(path string) map[string]snapshotEntry {
	entries := make(map[string]snapshotEntry)

	data, err := os.ReadFile(path)
	if err != nil {
		return entries
	}

	gjson.GetBytes(data, "plugins").ForEach(func(key, value gjson.Result) bool {
		entries[key.String()] = snapshotEntry{
			Source:  value.Get("source").String(),
			Version: value.Get("version").String(),
			Head:    value.Get("head").String(),
		}
		return true
	})
	return entries
}

// snapshotKey escapes a plugin name for use as a JSON path segment.
func snapshotKey(name string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, ":", `\:`)
	return r.Replace(name)
}
