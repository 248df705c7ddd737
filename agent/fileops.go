package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// readFileLines reads a file and formats it with 1-based line numbers,
// applying an optional offset and limit.
func readFileLines(path string, offset, limit int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}

	lines := strings.Split(string(data), "\n")

	startLine := 0
	if offset > 0 {
		startLine = offset - 1
	}
	if startLine >= len(lines) {
		return "", nil
	}

	endLine := len(lines)
	if limit > 0 && startLine+limit < endLine {
		endLine = startLine + limit
	}

	var sb strings.Builder
	for i := startLine; i < endLine; i++ {
		fmt.Fprintf(&sb, "%d | %s\n", i+1, lines[i])
	}
	return sb.String(), nil
}

// countOccurrences counts non-overlapping occurrences of old in content.
func countOccurrences(content, old string) int {
	if old == "" {
		return 0
	}
	return strings.Count(content, old)
}

// editFile replaces old with new in the file at path. The occurrence count
// must match expected exactly (expected 0 means "exactly once"); on any
// mismatch the file is left untouched. Returns the content before and after
// the edit and the number of replacements made.
func editFile(path, oldStr, newStr string, expected int) (before, after string, count int, err error) {
	if oldStr == "" {
		return "", "", 0, fmt.Errorf("edit: old_string must not be empty")
	}
	if oldStr == newStr {
		return "", "", 0, fmt.Errorf("edit: old_string and new_string are identical")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", 0, fmt.Errorf("edit: %w", err)
	}
	content := string(data)

	count = countOccurrences(content, oldStr)
	if count == 0 {
		return "", "", 0, fmt.Errorf("edit: old_string not found in %s", path)
	}
	if expected == 0 {
		if count > 1 {
			return "", "", 0, fmt.Errorf("edit: old_string occurs %d times in %s; provide expected_replacements or a more specific old_string", count, path)
		}
	} else if count != expected {
		return "", "", 0, fmt.Errorf("edit: expected %d occurrences of old_string in %s, found %d", expected, path, count)
	}

	updated := strings.Replace(content, oldStr, newStr, count)
	if err := atomicWrite(path, updated); err != nil {
		return "", "", 0, err
	}
	return content, updated, count, nil
}

// writeFile creates or overwrites path with content, creating parent
// directories as needed. Returns the previous content and whether the file
// existed before.
func writeFile(path, content string) (string, bool, error) {
	var previous string
	existed := false
	if data, err := os.ReadFile(path); err == nil {
		previous = string(data)
		existed = true
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", false, fmt.Errorf("write: failed to create directory: %w", err)
	}
	if err := atomicWrite(path, content); err != nil {
		return "", false, err
	}
	return previous, existed, nil
}

// atomicWrite writes content to a temp file in the target directory and
// renames it over path, so readers never observe a partial file.
func atomicWrite(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpName, info.Mode())
	} else {
		_ = os.Chmod(tmpName, 0644)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// unifiedDiff renders a unified diff between two versions of a file.
func unifiedDiff(path, before, after string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: path + " (before)",
		ToFile:   path + " (after)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil || text == "" {
		return "(no changes)"
	}
	return text
}

// previewEdit renders the diff an EditCommand would produce, without
// applying it. Files that cannot be read or edits that would fail preview
// as a note rather than an error so permission prompts can still show
// something.
func previewEdit(cmd EditCommand) string {
	data, err := os.ReadFile(cmd.Path)
	if err != nil {
		return fmt.Sprintf("(cannot preview: %v)", err)
	}
	content := string(data)
	count := countOccurrences(content, cmd.Old)
	if count == 0 {
		return "(cannot preview: old_string not found)"
	}
	updated := strings.Replace(content, cmd.Old, cmd.New, count)
	return unifiedDiff(cmd.Path, content, updated)
}

// previewWrite renders the diff a WriteCommand would produce. New files
// diff against empty content.
func previewWrite(cmd WriteCommand) string {
	var previous string
	if data, err := os.ReadFile(cmd.Path); err == nil {
		previous = string(data)
	}
	return unifiedDiff(cmd.Path, previous, cmd.Content)
}
