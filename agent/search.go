package agent

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// maxGrepMatches bounds how many grep hits are reported per search.
const maxGrepMatches = 200

// globFiles finds files under root matching pattern. Patterns support
// doublestar ('**') segments. Matches are working-dir-relative when
// possible and sorted for stable output.
func globFiles(pattern, root string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil, fmt.Errorf("glob: invalid pattern %q: %w", pattern, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(filepath.Join(root, m))
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// formatGlobResults renders glob matches as a numbered list.
func formatGlobResults(pattern string, files []string) string {
	if len(files) == 0 {
		return fmt.Sprintf("No files found matching pattern '%s'", pattern)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d files matching pattern '%s':\n\n", len(files), pattern)
	for i, f := range files {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, f)
	}
	return sb.String()
}

type grepMatch struct {
	Path string
	Line int
	Text string
}

// grepFiles walks root searching file contents for pattern, optionally
// restricted to files whose base name matches include. Hidden directories
// and obviously binary files are skipped. The walk stops once
// maxGrepMatches hits are collected.
func grepFiles(pattern, include, root string) ([]grepMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("grep: invalid pattern %q: %w", pattern, err)
	}

	var matches []grepMatch
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if include != "" {
			ok, matchErr := doublestar.Match(include, name)
			if matchErr != nil || !ok {
				return matchErr
			}
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil || isBinary(data) {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				matches = append(matches, grepMatch{Path: rel, Line: i + 1, Text: line})
				if len(matches) >= maxGrepMatches {
					return fs.SkipAll
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("grep: %w", err)
	}
	return matches, nil
}

// isBinary reports whether data looks like binary content.
func isBinary(data []byte) bool {
	n := len(data)
	if n > 8000 {
		n = 8000
	}
	for _, b := range data[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}

// formatGrepResults renders grep matches as path:line:text lines.
func formatGrepResults(pattern string, matches []grepMatch) string {
	if len(matches) == 0 {
		return fmt.Sprintf("No matches found for pattern '%s'", pattern)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d matches for pattern '%s':\n\n", len(matches), pattern)
	for _, m := range matches {
		fmt.Fprintf(&sb, "%s:%d:%s\n", m.Path, m.Line, m.Text)
	}
	return sb.String()
}

// listDirectory lists the entries of path, omitting any whose name matches
// an ignore glob. Directories sort before files, each group alphabetical.
func listDirectory(path string, ignore []string) (string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("ls: %w", err)
	}

	type listing struct {
		name  string
		isDir bool
	}
	var kept []listing
	for _, entry := range entries {
		if ignoredEntry(entry.Name(), ignore) {
			continue
		}
		kept = append(kept, listing{name: entry.Name(), isDir: entry.IsDir()})
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].isDir != kept[j].isDir {
			return kept[i].isDir
		}
		return kept[i].name < kept[j].name
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Directory listing for '%s':\n", path)
	for i, e := range kept {
		kind := "FILE"
		if e.isDir {
			kind = "DIR"
		}
		fmt.Fprintf(&sb, "%3d. [%s] %s\n", i+1, kind, e.name)
	}
	return sb.String(), nil
}

func ignoredEntry(name string, ignore []string) bool {
	for _, pattern := range ignore {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
