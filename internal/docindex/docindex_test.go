package docindex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write doc file: %v", err)
	}
}

func TestGenerate(t *testing.T) {
	plugin := t.TempDir()
	docDir := filepath.Join(plugin, "doc")
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		t.Fatalf("mkdir doc: %v", err)
	}

	writeDoc(t, docDir, "plugin.txt", "Intro *plugin-intro*\nUsage *plugin-usage*\n")
	writeDoc(t, docDir, "extra.txt", "More *plugin-extra*\n")

	count, err := Generate(plugin)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 tags, got %d", count)
	}

	data, err := os.ReadFile(filepath.Join(docDir, "tags"))
	if err != nil {
		t.Fatalf("read tags: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 tag lines, got %d", len(lines))
	}

	// Sorted by tag name.
	if !strings.HasPrefix(lines[0], "plugin-extra\textra.txt\t") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "plugin-intro\tplugin.txt\t") {
		t.Errorf("unexpected second line %q", lines[1])
	}
}

func TestGenerateNoDocDir(t *testing.T) {
	count, err := Generate(t.TempDir())
	if err != nil {
		t.Errorf("missing doc dir must not be an error, got %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 tags, got %d", count)
	}
}

func TestGenerateNoTags(t *testing.T) {
	plugin := t.TempDir()
	docDir := filepath.Join(plugin, "doc")
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		t.Fatalf("mkdir doc: %v", err)
	}
	writeDoc(t, docDir, "plain.txt", "no markers here\n")

	count, err := Generate(plugin)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 tags, got %d", count)
	}
	if _, err := os.Stat(filepath.Join(docDir, "tags")); !os.IsNotExist(err) {
		t.Error("expected no tags file when no markers exist")
	}
}
