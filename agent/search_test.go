package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func searchFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"main.go":          "package main\n\nfunc main() {}\n",
		"util.go":          "package main\n\nfunc helper() {}\n",
		"README.md":        "# readme\n",
		"sub/handler.go":   "package sub\n\nfunc Handle() {}\n",
		"sub/handler_test": "not go\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestGlobFilesDoublestar(t *testing.T) {
	dir := searchFixture(t)
	files, err := globFiles("**/*.go", dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 .go files, got %d: %v", len(files), files)
	}
	joined := strings.Join(files, " ")
	if !strings.Contains(joined, "main.go") || !strings.Contains(joined, filepath.Join("sub", "handler.go")) {
		t.Errorf("expected nested match, got %v", files)
	}
}

func TestFormatGlobResults(t *testing.T) {
	out := formatGlobResults("*.go", []string{"a.go", "b.go"})
	if !strings.HasPrefix(out, "Found 2 files matching pattern '*.go':") {
		t.Errorf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "1. a.go") || !strings.Contains(out, "2. b.go") {
		t.Errorf("expected 1-indexed listing, got %q", out)
	}
	if out := formatGlobResults("*.zig", nil); !strings.Contains(out, "No files found") {
		t.Errorf("empty result message wrong: %q", out)
	}
}

func TestGrepFiles(t *testing.T) {
	dir := searchFixture(t)
	matches, err := grepFiles(`func \w+\(\)`, "*.go", dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d: %v", len(matches), matches)
	}
	for _, m := range matches {
		if m.Line <= 0 || m.Path == "" || !strings.Contains(m.Text, "func") {
			t.Errorf("malformed match: %+v", m)
		}
	}

	out := formatGrepResults(`func \w+\(\)`, matches)
	if !strings.Contains(out, "Found 3 matches") {
		t.Errorf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "main.go:3:func main() {}") {
		t.Errorf("expected path:line:text tuples, got %q", out)
	}
}

func TestGrepFilesInvalidPattern(t *testing.T) {
	if _, err := grepFiles("(", "", t.TempDir()); err == nil {
		t.Error("invalid regexp must fail")
	}
}

func TestListDirectory(t *testing.T) {
	dir := searchFixture(t)
	out, err := listDirectory(dir, []string{"*.md"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "[DIR] sub") {
		t.Errorf("expected directory tag, got %q", out)
	}
	if !strings.Contains(out, "[FILE] main.go") {
		t.Errorf("expected file tag, got %q", out)
	}
	if strings.Contains(out, "README.md") {
		t.Errorf("ignored entry leaked: %q", out)
	}
	// Directories sort before files.
	if strings.Index(out, "[DIR] sub") > strings.Index(out, "[FILE] main.go") {
		t.Errorf("directories must sort first: %q", out)
	}
}

func TestIsBinary(t *testing.T) {
	if isBinary([]byte("plain text\n")) {
		t.Error("text misclassified as binary")
	}
	if !isBinary([]byte{0x7f, 'E', 'L', 'F', 0x00}) {
		t.Error("NUL-bearing content must classify as binary")
	}
}
