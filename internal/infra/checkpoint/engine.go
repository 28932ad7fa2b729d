// Package checkpoint implements the content-addressed manifest and
// unified-diff system that snapshots, diffs, applies, and reverts a
// project tree around each routine execution.
package checkpoint

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/runoshun/decree/internal/domain"
	"github.com/runoshun/decree/internal/infra/checkpoint/textdiff"
)

// Engine implements domain.CheckpointEngine. It carries no mutable state
// beyond its injected dependencies, matching the teacher's small-struct,
// interface-first adapters.
type Engine struct {
	walker domain.Walker
	blobs  *BlobStore
}

// New builds an Engine that walks via w and stores blobs under objectsDir.
func New(w domain.Walker, objectsDir string) *Engine {
	return &Engine{walker: w, blobs: NewBlobStore(objectsDir)}
}

var _ domain.CheckpointEngine = (*Engine)(nil)

// Snapshot walks root and hashes every file, storing its content in the
// blob store keyed by that hash as it goes.
func (e *Engine) Snapshot(root string) (domain.Manifest, error) {
	entries, _, err := e.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	manifest := make(domain.Manifest, len(entries))
	for _, entry := range entries {
		full := filepath.Join(root, entry.Path)
		f, err := os.Open(full) //nolint:gosec // path comes from a walked project tree
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", entry.Path, err)
		}
		hash, size, err := e.blobs.Put(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", entry.Path, err)
		}
		manifest[entry.Path] = domain.ManifestEntry{
			ContentHash: hash,
			Size:        size,
			Mode:        fs.FileMode(entry.Mode),
		}
	}
	return manifest, nil
}

// Diff re-walks root, classifies every path against pre, and renders a
// UnifiedDiff per spec.md §4.B. The resulting post-image tree is also
// stored in the blob store (via the Snapshot call), so this diff's own
// hunks can later be reverted even if the tree moves on again.
func (e *Engine) Diff(pre domain.Manifest, root string) (domain.UnifiedDiff, error) {
	post, err := e.Snapshot(root)
	if err != nil {
		return domain.UnifiedDiff{}, err
	}

	onlyPre, onlyPost, changed := pre.Diff(post)

	var diff domain.UnifiedDiff
	for _, path := range onlyPre {
		content, err := e.blobs.Get(pre[path].ContentHash)
		if err != nil {
			return domain.UnifiedDiff{}, fmt.Errorf("load pre-image for deleted %s: %w", path, err)
		}
		diff.Hunks = append(diff.Hunks, buildHunk(path, domain.HunkDelete, content, nil, pre[path].Mode))
	}
	for _, path := range onlyPost {
		content, err := os.ReadFile(filepath.Join(root, path)) //nolint:gosec // path comes from a walked project tree
		if err != nil {
			return domain.UnifiedDiff{}, fmt.Errorf("load post-image for created %s: %w", path, err)
		}
		diff.Hunks = append(diff.Hunks, buildHunk(path, domain.HunkCreate, nil, content, post[path].Mode))
	}
	for _, path := range changed {
		oldContent, err := e.blobs.Get(pre[path].ContentHash)
		if err != nil {
			return domain.UnifiedDiff{}, fmt.Errorf("load pre-image for modified %s: %w", path, err)
		}
		newContent, err := os.ReadFile(filepath.Join(root, path)) //nolint:gosec // path comes from a walked project tree
		if err != nil {
			return domain.UnifiedDiff{}, fmt.Errorf("load post-image for modified %s: %w", path, err)
		}
		diff.Hunks = append(diff.Hunks, buildHunk(path, domain.HunkModify, oldContent, newContent, post[path].Mode))
	}

	diff.Sort()
	return diff, nil
}

func buildHunk(path string, kind domain.HunkKind, oldContent, newContent []byte, mode fs.FileMode) domain.Hunk {
	binary := looksBinary(oldContent) || looksBinary(newContent)
	if binary {
		return domain.Hunk{
			Path:   path,
			Kind:   kind,
			Text:   renderBinaryHunk(oldContent, newContent),
			Binary: true,
			Mode:   uint32(mode),
		}
	}
	return domain.Hunk{
		Path: path,
		Kind: kind,
		Text: textdiff.Unified(string(oldContent), string(newContent)),
		Mode: uint32(mode),
	}
}

// Apply parses d and, depending on mode, either only reports conflicts
// (ApplyModeCheck), verifies cleanly then mutates (ApplyModeApply), or
// mutates unconditionally (ApplyModeForce).
func (e *Engine) Apply(d domain.UnifiedDiff, root string, mode domain.ApplyMode) (*domain.ApplyReport, error) {
	if mode == domain.ApplyModeApply {
		report, err := e.Apply(d, root, domain.ApplyModeCheck)
		if err != nil {
			return nil, err
		}
		if !report.OK() {
			return report, nil
		}
	}

	report := &domain.ApplyReport{}

	for _, h := range d.Hunks {
		conflict, err := applyHunk(h, root, mode)
		if err != nil {
			return nil, fmt.Errorf("apply %s: %w", h.Path, err)
		}
		if conflict != "" {
			report.Conflicts = append(report.Conflicts, domain.Conflict{Path: h.Path, Reason: conflict})
		}
	}
	return report, nil
}

// applyHunk applies a single hunk against root according to mode: Check
// only verifies, Apply verifies then mutates, and Force mutates without
// verifying, overwriting whatever it finds.
func applyHunk(h domain.Hunk, root string, mode domain.ApplyMode) (string, error) {
	full := filepath.Join(root, h.Path)

	if h.Binary {
		return applyBinaryHunk(h, full, mode)
	}

	switch h.Kind {
	case domain.HunkCreate:
		return applyCreateHunk(h, full, mode)
	case domain.HunkDelete:
		return applyDeleteHunk(h, full, mode)
	case domain.HunkModify:
		return applyModifyHunk(h, full, mode)
	default:
		return fmt.Sprintf("unknown hunk kind %q", h.Kind), nil
	}
}

func applyCreateHunk(h domain.Hunk, full string, mode domain.ApplyMode) (string, error) {
	if mode != domain.ApplyModeForce {
		if _, err := os.Stat(full); err == nil {
			return "path already exists, expected absent", nil
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("stat %s: %w", full, err)
		}
	}
	if mode == domain.ApplyModeCheck {
		return "", nil
	}
	hunks, err := textdiff.ParseHunks(h.Text)
	if err != nil {
		return "", err
	}
	content := joinLines(linesOf(hunks, (textdiff.ParsedHunk).NewLines))
	return "", writeFile(full, []byte(content), fs.FileMode(h.Mode))
}

func applyDeleteHunk(h domain.Hunk, full string, mode domain.ApplyMode) (string, error) {
	if mode == domain.ApplyModeForce {
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("remove %s: %w", full, err)
		}
		return "", nil
	}
	current, err := os.ReadFile(full) //nolint:gosec // path is repo-relative, joined against a project root
	if os.IsNotExist(err) {
		return "path missing, expected present", nil
	} else if err != nil {
		return "", fmt.Errorf("read %s: %w", full, err)
	}
	hunks, err := textdiff.ParseHunks(h.Text)
	if err != nil {
		return "", err
	}
	expected := joinLines(linesOf(hunks, (textdiff.ParsedHunk).OldLines))
	if string(current) != expected {
		return "content does not match expected pre-image", nil
	}
	if mode == domain.ApplyModeCheck {
		return "", nil
	}
	if err := os.Remove(full); err != nil {
		return "", fmt.Errorf("remove %s: %w", full, err)
	}
	return "", nil
}

func applyModifyHunk(h domain.Hunk, full string, mode domain.ApplyMode) (string, error) {
	current, err := os.ReadFile(full) //nolint:gosec // path is repo-relative, joined against a project root
	if err != nil {
		return "", fmt.Errorf("read %s: %w", full, err)
	}
	parsed, err := textdiff.ParseHunks(h.Text)
	if err != nil {
		return "", err
	}
	lines, hadTrailingNewline := splitFileLines(string(current))
	result, conflicts := spliceLines(lines, parsed)
	if mode != domain.ApplyModeForce && len(conflicts) > 0 {
		return strings.Join(conflicts, "; "), nil
	}
	if mode == domain.ApplyModeCheck {
		return "", nil
	}
	content := joinFileLines(result, hadTrailingNewline)
	return "", writeFile(full, []byte(content), fs.FileMode(h.Mode))
}

func applyBinaryHunk(h domain.Hunk, full string, mode domain.ApplyMode) (string, error) {
	pre, post, err := parseBinaryHunk(h.Text)
	if err != nil {
		return "", err
	}

	if mode != domain.ApplyModeForce {
		current, readErr := os.ReadFile(full) //nolint:gosec // path is repo-relative, joined against a project root
		switch {
		case pre == nil && os.IsNotExist(readErr):
			// create: absent now, as expected.
		case pre == nil:
			if readErr != nil {
				return "", fmt.Errorf("stat %s: %w", full, readErr)
			}
			return "path already exists, expected absent", nil
		case readErr != nil:
			if os.IsNotExist(readErr) {
				return "path missing, expected present", nil
			}
			return "", fmt.Errorf("read %s: %w", full, readErr)
		case string(current) != string(pre):
			return "content does not match expected pre-image", nil
		}
	}

	if mode == domain.ApplyModeCheck {
		return "", nil
	}
	if post == nil {
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("remove %s: %w", full, err)
		}
		return "", nil
	}
	return "", writeFile(full, post, fs.FileMode(h.Mode))
}

// Revert applies the inverse of every hunk in d, then re-snapshots the
// tree and compares every path d touched against pre, the manifest
// captured immediately before d's underlying execution.
func (e *Engine) Revert(d domain.UnifiedDiff, root string, pre domain.Manifest) error {
	inverted, err := invertDiff(d)
	if err != nil {
		return fmt.Errorf("invert diff: %w", err)
	}

	report, err := e.Apply(inverted, root, domain.ApplyModeForce)
	if err != nil {
		return fmt.Errorf("revert: %w", err)
	}
	if !report.OK() {
		return fmt.Errorf("%w: %d unresolved conflicts during revert", domain.ErrIntegrityViolation, len(report.Conflicts))
	}

	post, err := e.Snapshot(root)
	if err != nil {
		return fmt.Errorf("%w: re-snapshot failed: %v", domain.ErrIntegrityViolation, err)
	}
	for _, h := range d.Hunks {
		preEntry, existedBefore := pre[h.Path]
		postEntry, existsNow := post[h.Path]
		switch {
		case existedBefore && !existsNow:
			return fmt.Errorf("%w: %s missing after revert", domain.ErrIntegrityViolation, h.Path)
		case !existedBefore && existsNow:
			return fmt.Errorf("%w: %s should not exist after revert", domain.ErrIntegrityViolation, h.Path)
		case existedBefore && preEntry.ContentHash != postEntry.ContentHash:
			return fmt.Errorf("%w: %s content mismatch after revert", domain.ErrIntegrityViolation, h.Path)
		}
	}
	return nil
}

// invertDiff swaps every hunk's pre/post roles: create becomes delete,
// delete becomes create, and modify hunks have their old/new sides
// exchanged.
func invertDiff(d domain.UnifiedDiff) (domain.UnifiedDiff, error) {
	var out domain.UnifiedDiff
	for _, h := range d.Hunks {
		inv, err := invertHunk(h)
		if err != nil {
			return domain.UnifiedDiff{}, err
		}
		out.Hunks = append(out.Hunks, inv)
	}
	out.Sort()
	return out, nil
}

func invertHunk(h domain.Hunk) (domain.Hunk, error) {
	if h.Binary {
		pre, post, err := parseBinaryHunk(h.Text)
		if err != nil {
			return domain.Hunk{}, err
		}
		kind := h.Kind
		switch kind {
		case domain.HunkCreate:
			kind = domain.HunkDelete
		case domain.HunkDelete:
			kind = domain.HunkCreate
		}
		return domain.Hunk{Path: h.Path, Kind: kind, Binary: true, Mode: h.Mode, Text: renderBinaryHunk(post, pre)}, nil
	}

	hunks, err := textdiff.ParseHunks(h.Text)
	if err != nil {
		return domain.Hunk{}, err
	}
	inverted := make([]textdiff.ParsedHunk, len(hunks))
	for i, ph := range hunks {
		inverted[i] = ph.Invert()
	}

	kind := h.Kind
	switch kind {
	case domain.HunkCreate:
		kind = domain.HunkDelete
	case domain.HunkDelete:
		kind = domain.HunkCreate
	}
	return domain.Hunk{Path: h.Path, Kind: kind, Mode: h.Mode, Text: textdiff.RenderHunks(inverted)}, nil
}

// spliceLines applies parsed unified-diff hunks (already in ascending
// OldStart order) to lines, returning the spliced result and any context
// mismatches found along the way. It always computes both, so a single
// pass serves check mode (discard result) and apply mode (discard
// conflicts) alike.
func spliceLines(lines []string, hunks []textdiff.ParsedHunk) (result []string, conflicts []string) {
	cursor := 0
	for _, h := range hunks {
		start := h.OldStart - 1
		if start < cursor {
			start = cursor
		}
		if start > len(lines) {
			start = len(lines)
		}
		if start > cursor {
			result = append(result, lines[cursor:start]...)
		}

		end := start + h.OldCount
		if end > len(lines) {
			conflicts = append(conflicts, fmt.Sprintf("hunk at line %d expects %d lines, file has %d", h.OldStart, h.OldCount, len(lines)-start))
			end = len(lines)
		}
		if !equalLines(lines[start:end], h.OldLines()) {
			conflicts = append(conflicts, fmt.Sprintf("context mismatch at line %d", h.OldStart))
		}

		result = append(result, h.NewLines()...)
		cursor = end
	}
	result = append(result, lines[cursor:]...)
	return result, conflicts
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// splitFileLines splits s into its lines, reporting whether s ended in a
// trailing newline so joinFileLines can restore it exactly.
func splitFileLines(s string) (lines []string, hadTrailingNewline bool) {
	if s == "" {
		return nil, false
	}
	hadTrailingNewline = strings.HasSuffix(s, "\n")
	trimmed := strings.TrimSuffix(s, "\n")
	if trimmed == "" {
		return nil, hadTrailingNewline
	}
	return strings.Split(trimmed, "\n"), hadTrailingNewline
}

func joinFileLines(lines []string, trailingNewline bool) string {
	s := strings.Join(lines, "\n")
	if trailingNewline && len(lines) > 0 {
		s += "\n"
	}
	return s
}

// joinLines joins a full-file line set the way diff hunks record them
// (every hunk line implicitly ends in "\n").
func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// linesOf concatenates f(h) for every hunk in hunks, in order. Used with
// ParsedHunk.OldLines/NewLines to reconstruct a whole-file image from a
// create/delete hunk's single all-context-free block.
func linesOf(hunks []textdiff.ParsedHunk, f func(textdiff.ParsedHunk) []string) []string {
	var out []string
	for _, h := range hunks {
		out = append(out, f(h)...)
	}
	return out
}

func writeFile(path string, content []byte, mode fs.FileMode) error {
	if mode == 0 {
		mode = 0o644
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dirs for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
