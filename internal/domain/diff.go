package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// HunkKind classifies a single path's change within a unified diff.
type HunkKind string

// Valid hunk kinds.
const (
	HunkCreate HunkKind = "create"
	HunkModify HunkKind = "modify"
	HunkDelete HunkKind = "delete"
)

// Hunk is one path's change, rendered as unified-diff text (without the
// leading "diff --git"/"---"/"+++" file markers, which UnifiedDiff adds).
type Hunk struct {
	Path   string
	Kind   HunkKind
	Text   string // rendered "@@ ... @@" body
	Binary bool
	Mode   uint32
}

// UnifiedDiff is an ordered collection of per-path hunks, lexicographic
// by path as spec.md requires.
type UnifiedDiff struct {
	Hunks []Hunk
}

// IsEmpty reports whether the diff carries no changes.
func (d UnifiedDiff) IsEmpty() bool {
	return len(d.Hunks) == 0
}

// Sort orders hunks lexicographically by path, in place.
func (d *UnifiedDiff) Sort() {
	sort.Slice(d.Hunks, func(i, j int) bool { return d.Hunks[i].Path < d.Hunks[j].Path })
}

// BinaryPreMarker and BinaryPostMarker delimit a binary hunk's base64-encoded
// pre- and post-images within Hunk.Text. They are part of the on-disk diff
// wire format, so both the rendering/codec side (infra/checkpoint) and the
// parse-back side (ParseUnifiedDiff, below) share these exact strings.
const (
	BinaryPreMarker  = "Binary file, base64-encoded (pre):"
	BinaryPostMarker = "Binary file, base64-encoded (post):"
)

// String renders the full unified-diff document. Mode is carried only for
// create/delete hunks, as "new file mode"/"deleted file mode" lines in the
// style of git's own extended diff headers - mainstream diff viewers that
// don't recognize them simply ignore an unexpected header line. A modify
// hunk's mode is not recorded in the rendered text; ParseUnifiedDiff reads
// the create/delete mode lines back into Hunk.Mode and leaves it at 0 for
// modify hunks, and callers applying a parsed-back diff fall back to a
// default mode when Mode is 0.
func (d UnifiedDiff) String() string {
	var b strings.Builder
	for _, h := range d.Hunks {
		writeFileHeader(&b, h)
		b.WriteString(h.Text)
		if !strings.HasSuffix(h.Text, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeFileHeader(b *strings.Builder, h Hunk) {
	oldPath, newPath := h.Path, h.Path
	switch h.Kind {
	case HunkCreate:
		oldPath = "/dev/null"
		fmt.Fprintf(b, "new file mode %06o\n", h.Mode)
	case HunkDelete:
		newPath = "/dev/null"
		fmt.Fprintf(b, "deleted file mode %06o\n", h.Mode)
	}
	b.WriteString("--- ")
	if oldPath == "/dev/null" {
		b.WriteString(oldPath)
	} else {
		b.WriteString("a/" + oldPath)
	}
	b.WriteString("\n+++ ")
	if newPath == "/dev/null" {
		b.WriteString(newPath)
	} else {
		b.WriteString("b/" + newPath)
	}
	b.WriteString("\n")
}

// ParseUnifiedDiff reconstructs a UnifiedDiff from text rendered by
// UnifiedDiff.String(), as stored in a run directory's changes.diff. It is
// used by the diff/apply CLI commands to re-hydrate a historical run's
// recorded changes for CheckpointEngine.Apply/Revert.
//
// A modify hunk's mode is never recorded in the rendered text, and a
// create/delete hunk's "new file mode"/"deleted file mode" line is parsed
// back when present; Mode is left at 0 otherwise, matching writeFile's own
// zero-means-default-to-0644 convention.
func ParseUnifiedDiff(text string) (UnifiedDiff, error) {
	lines := strings.Split(text, "\n")
	var diff UnifiedDiff

	var pendingMode uint32
	var havePendingMode bool

	i := 0
	for i < len(lines) {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "new file mode ") || strings.HasPrefix(line, "deleted file mode "):
			fields := strings.Fields(line)
			modeStr := fields[len(fields)-1]
			mode, err := strconv.ParseUint(modeStr, 8, 32)
			if err != nil {
				return UnifiedDiff{}, fmt.Errorf("parse mode line %q: %w", line, err)
			}
			pendingMode = uint32(mode)
			havePendingMode = true
			i++
		case strings.HasPrefix(line, "--- "):
			oldPath := strings.TrimPrefix(line, "--- ")
			if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "+++ ") {
				return UnifiedDiff{}, fmt.Errorf("malformed diff: %q not followed by +++ line", line)
			}
			newPath := strings.TrimPrefix(lines[i+1], "+++ ")
			i += 2

			bodyStart := i
			for i < len(lines) && !strings.HasPrefix(lines[i], "--- ") && !strings.HasPrefix(lines[i], "new file mode ") && !strings.HasPrefix(lines[i], "deleted file mode ") {
				i++
			}
			body := strings.Join(lines[bodyStart:i], "\n")

			h := Hunk{Text: body}
			switch {
			case oldPath == "/dev/null":
				h.Kind = HunkCreate
				h.Path = strings.TrimPrefix(newPath, "b/")
			case newPath == "/dev/null":
				h.Kind = HunkDelete
				h.Path = strings.TrimPrefix(oldPath, "a/")
			default:
				h.Kind = HunkModify
				h.Path = strings.TrimPrefix(newPath, "b/")
			}
			if havePendingMode {
				h.Mode = pendingMode
				havePendingMode = false
			}
			if strings.Contains(body, BinaryPreMarker) {
				h.Binary = true
			}
			diff.Hunks = append(diff.Hunks, h)
		default:
			i++
		}
	}

	return diff, nil
}
