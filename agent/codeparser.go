package agent

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CodeParser produces a structural summary of a codebase for the ParseCode
// tool. Implementations may delegate to an external analyzer; the default
// walks the tree locally.
type CodeParser interface {
	ParseCode(ctx context.Context, cmd ParseCodeCommand) (string, error)
}

const (
	defaultParseMaxFileSize = 1 << 20
	defaultParseMaxFiles    = 500
	defaultParseMaxDepth    = 8
)

// skipDirs are directories the tree walker never descends into.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"target": true, "dist": true, "__pycache__": true,
}

// treeCodeParser is the built-in CodeParser. It walks the root collecting
// source files within the configured limits and summarizes the layout,
// listing the files whose names or paths relate to the query first.
type treeCodeParser struct{}

func (p *treeCodeParser) ParseCode(ctx context.Context, cmd ParseCodeCommand) (string, error) {
	maxFileSize := cmd.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = defaultParseMaxFileSize
	}
	maxFiles := cmd.MaxFiles
	if maxFiles <= 0 {
		maxFiles = defaultParseMaxFiles
	}
	maxDepth := cmd.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultParseMaxDepth
	}

	type parsedFile struct {
		path string
		size int64
	}
	var files []parsedFile
	byExt := map[string]int{}

	err := filepath.WalkDir(cmd.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(cmd.RootDir, path)
		if relErr != nil {
			rel = path
		}
		depth := strings.Count(rel, string(os.PathSeparator))

		if d.IsDir() {
			if path != cmd.RootDir && (skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") || depth >= maxDepth) {
				return filepath.SkipDir
			}
			return nil
		}
		if len(files) >= maxFiles {
			return fs.SkipAll
		}

		info, infoErr := d.Info()
		if infoErr != nil || info.Size() > int64(maxFileSize) {
			return nil
		}

		files = append(files, parsedFile{path: rel, size: info.Size()})
		ext := filepath.Ext(rel)
		if ext == "" {
			ext = "(none)"
		}
		byExt[ext]++
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("parse_code: %w", err)
	}

	queryTerms := strings.Fields(strings.ToLower(cmd.Query))
	relevant := func(path string) bool {
		lower := strings.ToLower(path)
		for _, term := range queryTerms {
			if strings.Contains(lower, term) {
				return true
			}
		}
		return false
	}
	sort.Slice(files, func(i, j int) bool {
		ri, rj := relevant(files[i].path), relevant(files[j].path)
		if ri != rj {
			return ri
		}
		return files[i].path < files[j].path
	})

	exts := make([]string, 0, len(byExt))
	for ext := range byExt {
		exts = append(exts, ext)
	}
	sort.Slice(exts, func(i, j int) bool {
		if byExt[exts[i]] != byExt[exts[j]] {
			return byExt[exts[i]] > byExt[exts[j]]
		}
		return exts[i] < exts[j]
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Codebase summary for '%s' (query: %s)\n\n", cmd.RootDir, cmd.Query)
	fmt.Fprintf(&sb, "Analyzed %d files.\n\nFile types:\n", len(files))
	for _, ext := range exts {
		fmt.Fprintf(&sb, "  %s: %d\n", ext, byExt[ext])
	}
	sb.WriteString("\nFiles (query-relevant first):\n")
	limit := len(files)
	if limit > 100 {
		limit = 100
	}
	for _, f := range files[:limit] {
		fmt.Fprintf(&sb, "  %s (%d bytes)\n", f.path, f.size)
	}
	if len(files) > limit {
		fmt.Fprintf(&sb, "  ... and %d more\n", len(files)-limit)
	}
	return sb.String(), nil
}
