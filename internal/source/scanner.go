package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultExtensions are the file extensions treated as markdown documents.
var DefaultExtensions = []string{".md", ".markdown"}

// Scanner expands files, directories and glob patterns into a list of markdown documents.
type Scanner struct {
	Recursive  bool     // Descend into subdirectories
	Extensions []string // Accepted file extensions (DefaultExtensions when empty)
}

// Scan resolves paths into a sorted, de-duplicated list of markdown file paths.
// Hidden directories (such as .git or .obsidian) are skipped. An explicitly named
// file is kept even when its extension is not in the accepted list.
func (s *Scanner) Scan(ctx context.Context, paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		path = filepath.Clean(path)
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, p := range paths {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		matches, err := expand(p)
		if err != nil {
			return nil, err
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, fmt.Errorf("failed to access path %s: %w", match, err)
			}

			if !info.IsDir() {
				add(match)
				continue
			}

			if err := s.walk(ctx, match, add); err != nil {
				return nil, fmt.Errorf("failed to scan directory %s: %w", match, err)
			}
		}
	}

	slices.Sort(files)
	return files, nil
}

// walk visits markdown files below root.
func (s *Scanner) walk(ctx context.Context, root string, add func(string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if isHidden(d.Name()) || !s.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		if isHidden(d.Name()) || !s.accepts(path) {
			return nil
		}
		add(path)
		return nil
	})
}

func (s *Scanner) accepts(path string) bool {
	exts := s.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	return slices.Contains(exts, strings.ToLower(filepath.Ext(path)))
}

// expand resolves a glob pattern. Paths without glob metacharacters are returned as-is.
func expand(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}
	visible := matches[:0]
	for _, m := range matches {
		if !isHidden(filepath.Base(m)) {
			visible = append(visible, m)
		}
	}
	if len(visible) == 0 {
		return nil, fmt.Errorf("pattern %s matched no files: %w", pattern, fs.ErrNotExist)
	}
	return visible, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
