// Package routinestore discovers routine executables under a repo's
// routines directory and extracts their descriptions and declared
// parameters, implementing domain.RoutineStore.
package routinestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/runoshun/decree/internal/domain"
)

const (
	shellExt    = ".sh"
	notebookExt = ".notebook"
)

// cacheSize bounds how many discovered routines are held in memory between
// Find/List calls; routine files are re-read on a cache miss.
const cacheSize = 128

// cacheEntry pairs a parsed routine with the mtime it was parsed at, so a
// cache hit can be invalidated by a subsequent edit to the routine file.
type cacheEntry struct {
	routine *domain.Routine
	modTime time.Time
}

// Store implements domain.RoutineStore over <runtime-dir>/routines.
// Fields are ordered to minimize memory padding.
type Store struct {
	cache           *lru.Cache[string, cacheEntry]
	routinesDir     string
	notebookSupport bool
}

// New returns a Store scanning routinesDir. notebookSupport mirrors
// config.NotebookSupport: when false, .notebook files are invisible.
func New(routinesDir string, notebookSupport bool) *Store {
	cache, err := lru.New[string, cacheEntry](cacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which cacheSize
		// never is.
		panic(fmt.Sprintf("routinestore: %v", err))
	}
	return &Store{routinesDir: routinesDir, notebookSupport: notebookSupport, cache: cache}
}

var _ domain.RoutineStore = (*Store)(nil)

// Find resolves name to a routine. An explicit "<stem>.sh" or
// "<stem>.notebook" suffix bypasses notebook-precedence and selects that
// exact format; a bare stem applies the usual precedence rule.
func (s *Store) Find(name string) (*domain.Routine, error) {
	if stem, ok := strings.CutSuffix(name, shellExt); ok {
		return s.load(stem, shellExt)
	}
	if stem, ok := strings.CutSuffix(name, notebookExt); ok {
		if !s.notebookSupport {
			return nil, fmt.Errorf("routine %q: %w (notebook support disabled)", name, domain.ErrRoutineNotFound)
		}
		return s.load(stem, notebookExt)
	}

	if s.notebookSupport {
		if r, err := s.load(name, notebookExt); err == nil {
			return r, nil
		}
	}
	return s.load(name, shellExt)
}

// List returns every discoverable routine, deduplicated by stem with
// notebook precedence, sorted by name.
func (s *Store) List() ([]*domain.Routine, error) {
	entries, err := os.ReadDir(s.routinesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read routines dir: %w", err)
	}

	byStem := map[string]string{} // stem -> chosen ext
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case strings.HasSuffix(name, shellExt):
			stem := strings.TrimSuffix(name, shellExt)
			if _, ok := byStem[stem]; !ok {
				byStem[stem] = shellExt
			}
		case strings.HasSuffix(name, notebookExt):
			if !s.notebookSupport {
				continue
			}
			stem := strings.TrimSuffix(name, notebookExt)
			byStem[stem] = notebookExt // notebook always wins when enabled
		}
	}

	stems := make([]string, 0, len(byStem))
	for stem := range byStem {
		stems = append(stems, stem)
	}
	sort.Strings(stems)

	routines := make([]*domain.Routine, 0, len(stems))
	for _, stem := range stems {
		r, err := s.load(stem, byStem[stem])
		if err != nil {
			return nil, err
		}
		routines = append(routines, r)
	}
	return routines, nil
}

func (s *Store) load(stem, ext string) (*domain.Routine, error) {
	path := filepath.Join(s.routinesDir, stem+ext)

	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return nil, fmt.Errorf("routine %q: %w", stem, domain.ErrRoutineNotFound)
		}
		return nil, fmt.Errorf("stat routine %s: %w", path, statErr)
	}

	if cached, ok := s.cache.Get(path); ok && cached.modTime.Equal(info.ModTime()) {
		return cached.routine, nil
	}

	content, err := os.ReadFile(path) //nolint:gosec // path is built from a configured routines directory
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("routine %q: %w", stem, domain.ErrRoutineNotFound)
		}
		return nil, fmt.Errorf("read routine %s: %w", path, err)
	}

	var format domain.RoutineFormat
	var description string
	var params map[string]string
	switch ext {
	case notebookExt:
		format = domain.RoutineFormatNotebook
		description, params, err = parseNotebook(content)
	default:
		format = domain.RoutineFormatShell
		description, params = parseShell(content)
	}
	if err != nil {
		return nil, fmt.Errorf("parse routine %s: %w", path, err)
	}

	r := &domain.Routine{
		Name:        stem,
		Path:        path,
		Format:      format,
		Description: description,
		Params:      params,
	}
	s.cache.Add(path, cacheEntry{routine: r, modTime: info.ModTime()})
	return r, nil
}
