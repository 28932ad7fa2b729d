// Package walker enumerates project files honoring ignore rules.
package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/runoshun/decree/internal/domain"
)

// alwaysExcluded names are pruned at any depth before ignore-file
// evaluation even runs: the tool's own runtime directory and any
// version-control metadata directory.
var alwaysExcluded = map[string]bool{
	domain.RuntimeDirName: true,
	".git":                true,
	".hg":                 true,
	".jj":                 true,
}

// overrideFileName is decree's project-local ignore override, with
// identical syntax to a .gitignore file.
const overrideFileName = ".decreeignore"

// Walker walks a project tree, skipping ignored and always-excluded paths.
type Walker struct{}

// New creates a Walker.
func New() *Walker {
	return &Walker{}
}

// Ensure Walker implements domain.Walker.
var _ domain.Walker = (*Walker)(nil)

// Walk enumerates root, returning entries in lexicographic path order
// plus any per-file warnings encountered (which omit that path from the
// result, never abort the whole walk).
func (w *Walker) Walk(root string) ([]domain.WalkEntry, []string, error) {
	patterns, err := collectPatterns(root)
	if err != nil {
		return nil, nil, fmt.Errorf("collect ignore patterns: %w", err)
	}
	matcher := gitignore.NewMatcher(patterns)

	var entries []domain.WalkEntry
	var warnings []string

	var walk func(dir string, segments []string) error
	walk = func(dir string, segments []string) error {
		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("read dir %s: %v", relOrDot(root, dir), err))
			return nil
		}
		for _, de := range dirEntries {
			name := de.Name()
			childSegments := append(append([]string{}, segments...), name)
			childPath := filepath.Join(dir, name)

			info, err := de.Info()
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("stat %s: %v", relPath(root, childPath), err))
				continue
			}

			isSymlink := info.Mode()&os.ModeSymlink != 0
			isDir := info.IsDir()

			if isDir && alwaysExcluded[name] {
				continue
			}

			if isSymlink {
				target, err := os.Stat(childPath)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("resolve symlink %s: %v", relPath(root, childPath), err))
					continue
				}
				if target.IsDir() {
					// Directory symlinks are skipped to avoid cycles.
					continue
				}
				isDir = false
			}

			if isDir {
				if matcher.Match(childSegments, true) {
					continue
				}
				if err := walk(childPath, childSegments); err != nil {
					return err
				}
				continue
			}

			if matcher.Match(childSegments, false) {
				continue
			}
			if !info.Mode().IsRegular() && !isSymlink {
				continue
			}

			rel := strings.Join(childSegments, "/")
			entries = append(entries, domain.WalkEntry{
				Path: rel,
				Mode: uint32(info.Mode().Perm()),
				Size: info.Size(),
			})
		}
		return nil
	}

	if err := walk(root, nil); err != nil {
		return nil, nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, warnings, nil
}

// collectPatterns gathers every .gitignore/.decreeignore file's patterns
// across the whole tree, tagged with their domain (the directory they
// live in, relative to root) so gitignore.Matcher applies them with the
// correct directory-scoping and negation precedence.
func collectPatterns(root string) ([]gitignore.Pattern, error) {
	var patterns []gitignore.Pattern

	var walk func(dir string, segments []string) error
	walk = func(dir string, segments []string) error {
		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			return nil //nolint:nilerr // unreadable dirs are reported by the main walk, not here
		}
		for _, de := range dirEntries {
			name := de.Name()
			if de.IsDir() {
				if alwaysExcluded[name] {
					continue
				}
				if err := walk(filepath.Join(dir, name), append(append([]string{}, segments...), name)); err != nil {
					return err
				}
				continue
			}
			if name != ".gitignore" && name != overrideFileName {
				continue
			}
			ps, err := readPatternFile(filepath.Join(dir, name), append([]string{}, segments...))
			if err != nil {
				continue // unreadable ignore file: treated as absent, not fatal
			}
			patterns = append(patterns, ps...)
		}
		return nil
	}

	if err := walk(root, nil); err != nil {
		return nil, err
	}
	return patterns, nil
}

func readPatternFile(path string, scope []string) ([]gitignore.Pattern, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path is constructed from a walked tree, not user input
	if err != nil {
		return nil, err
	}
	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, scope))
	}
	return patterns, nil
}

func relPath(root, path string) string {
	r, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return r
}

func relOrDot(root, path string) string {
	if path == root {
		return "."
	}
	return relPath(root, path)
}
