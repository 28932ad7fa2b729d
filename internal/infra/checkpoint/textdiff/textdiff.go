// Package textdiff renders unified-diff text for a modified file using
// diffmatchpatch's line-mode Myers diff as the edit-script source.
package textdiff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ContextLines is the number of unchanged lines kept around each change,
// matching conventional unified-diff output.
const ContextLines = 3

// op is one line-level edit operation.
type op struct {
	kind int // -1 delete, 0 equal, 1 insert
	line string
}

// lineOps runs a line-granularity Myers diff between a and b and returns
// the resulting sequence of per-line operations.
func lineOps(a, b string) []op {
	dmp := diffmatchpatch.New()
	aChars, bChars, lineArray := dmp.DiffLinesToChars(ensureTrailingNewline(a), ensureTrailingNewline(b))
	diffs := dmp.DiffMain(aChars, bChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var ops []op
	for _, d := range diffs {
		lines := splitLines(d.Text)
		kind := 0
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = -1
		case diffmatchpatch.DiffInsert:
			kind = 1
		case diffmatchpatch.DiffEqual:
			kind = 0
		}
		for _, l := range lines {
			ops = append(ops, op{kind: kind, line: l})
		}
	}
	return ops
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// splitLines splits trailing-newline-terminated text into its lines,
// dropping the final empty element produced by the trailing newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// hunk is one contiguous region of changes plus surrounding context,
// with 1-based starting line numbers for the pre- and post-image.
type hunk struct {
	oldStart, oldCount int
	newStart, newCount int
	lines              []string // prefixed with " ", "-", "+"
}

// Unified renders a standard unified-diff body (the "@@ ... @@" hunks,
// without file-header lines) for the modification of a into b.
func Unified(a, b string) string {
	ops := lineOps(a, b)
	hunks := groupHunks(ops)

	var out strings.Builder
	for _, h := range hunks {
		oldStart, newStart := h.oldStart, h.newStart
		if h.oldCount == 0 {
			oldStart = 0
		}
		if h.newCount == 0 {
			newStart = 0
		}
		fmt.Fprintf(&out, "@@ -%d,%d +%d,%d @@\n", oldStart, h.oldCount, newStart, h.newCount)
		for _, l := range h.lines {
			out.WriteString(l)
			out.WriteString("\n")
		}
	}
	return out.String()
}

// ParsedHunk is a single "@@ ... @@" block, decoded back into structured
// line operations so Apply/Revert can splice it against a live file.
type ParsedHunk struct {
	OldStart, OldCount int
	NewStart, NewCount int
	Lines              []string // each prefixed " ", "-", or "+"
}

// ParseHunks decodes a rendered unified-diff body back into its
// constituent hunks.
func ParseHunks(text string) ([]ParsedHunk, error) {
	var hunks []ParsedHunk
	var cur *ParsedHunk

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "@@ ") {
			if cur != nil {
				hunks = append(hunks, *cur)
			}
			h, err := parseHunkHeader(line)
			if err != nil {
				return nil, err
			}
			cur = &h
			continue
		}
		if cur == nil {
			continue
		}
		if line == "" {
			continue
		}
		cur.Lines = append(cur.Lines, line)
	}
	if cur != nil {
		hunks = append(hunks, *cur)
	}
	return hunks, nil
}

func parseHunkHeader(line string) (ParsedHunk, error) {
	var oldStart, oldCount, newStart, newCount int
	_, err := fmt.Sscanf(line, "@@ -%d,%d +%d,%d @@", &oldStart, &oldCount, &newStart, &newCount)
	if err != nil {
		// Tolerate the ",1" elision form ("@@ -5 +5 @@").
		var a, b int
		if _, err2 := fmt.Sscanf(line, "@@ -%d +%d @@", &a, &b); err2 != nil {
			return ParsedHunk{}, fmt.Errorf("parse hunk header %q: %w", line, err)
		}
		oldStart, oldCount, newStart, newCount = a, 1, b, 1
	}
	return ParsedHunk{OldStart: oldStart, OldCount: oldCount, NewStart: newStart, NewCount: newCount}, nil
}

// OldLines returns the hunk's pre-image lines (context + deleted), unprefixed.
func (h ParsedHunk) OldLines() []string {
	var out []string
	for _, l := range h.Lines {
		if len(l) == 0 {
			continue
		}
		switch l[0] {
		case ' ', '-':
			out = append(out, l[1:])
		}
	}
	return out
}

// NewLines returns the hunk's post-image lines (context + added), unprefixed.
func (h ParsedHunk) NewLines() []string {
	var out []string
	for _, l := range h.Lines {
		if len(l) == 0 {
			continue
		}
		switch l[0] {
		case ' ', '+':
			out = append(out, l[1:])
		}
	}
	return out
}

// Invert swaps a parsed hunk's pre/post roles in place: old and new line
// counts and offsets trade places, and "-"/"+" prefixed lines swap
// (context lines are untouched). This is a pure rearrangement of the
// same hunk, not a re-diff, so it stays correct for hunks that only
// cover part of a file.
func (h ParsedHunk) Invert() ParsedHunk {
	inv := ParsedHunk{
		OldStart: h.NewStart,
		OldCount: h.NewCount,
		NewStart: h.OldStart,
		NewCount: h.OldCount,
		Lines:    make([]string, len(h.Lines)),
	}
	for i, l := range h.Lines {
		switch {
		case strings.HasPrefix(l, "-"):
			inv.Lines[i] = "+" + l[1:]
		case strings.HasPrefix(l, "+"):
			inv.Lines[i] = "-" + l[1:]
		default:
			inv.Lines[i] = l
		}
	}
	return inv
}

// RenderHunks renders a already-parsed/transformed hunk list back into a
// unified-diff body, applying the same oldStart/newStart==0 convention
// as Unified does for zero-count sides.
func RenderHunks(hunks []ParsedHunk) string {
	var out strings.Builder
	for _, h := range hunks {
		oldStart, newStart := h.OldStart, h.NewStart
		if h.OldCount == 0 {
			oldStart = 0
		}
		if h.NewCount == 0 {
			newStart = 0
		}
		fmt.Fprintf(&out, "@@ -%d,%d +%d,%d @@\n", oldStart, h.OldCount, newStart, h.NewCount)
		for _, l := range h.Lines {
			out.WriteString(l)
			out.WriteString("\n")
		}
	}
	return out.String()
}

func groupHunks(ops []op) []hunk {
	var hunks []hunk
	oldLine, newLine := 1, 1

	i := 0
	for i < len(ops) {
		if ops[i].kind == 0 {
			oldLine++
			newLine++
			i++
			continue
		}

		// Found a change; back up to include leading context.
		start := i
		ctxStart := start
		for k := 0; k < ContextLines && ctxStart > 0 && ops[ctxStart-1].kind == 0; k++ {
			ctxStart--
		}
		leadingCtx := start - ctxStart

		// Extend the change region forward, folding in any run of
		// changes separated by at most 2*ContextLines of context.
		end := start
		for end < len(ops) {
			if ops[end].kind != 0 {
				end++
				continue
			}
			// Count contiguous equal run.
			eqStart := end
			for end < len(ops) && ops[end].kind == 0 {
				end++
			}
			eqLen := end - eqStart
			if end >= len(ops) || eqLen > 2*ContextLines {
				end = eqStart
				break
			}
			// else: short equal run, keep folding the next change in.
		}
		trailingCtxEnd := end
		for k := 0; k < ContextLines && trailingCtxEnd < len(ops) && ops[trailingCtxEnd].kind == 0; k++ {
			trailingCtxEnd++
		}

		h := hunk{
			oldStart: oldLine - leadingCtx,
			newStart: newLine - leadingCtx,
		}
		// Walk ctxStart..trailingCtxEnd, emitting prefixed lines and
		// tracking counts.
		for j := ctxStart; j < trailingCtxEnd; j++ {
			switch ops[j].kind {
			case 0:
				h.lines = append(h.lines, " "+ops[j].line)
				h.oldCount++
				h.newCount++
			case -1:
				h.lines = append(h.lines, "-"+ops[j].line)
				h.oldCount++
			case 1:
				h.lines = append(h.lines, "+"+ops[j].line)
				h.newCount++
			}
		}
		hunks = append(hunks, h)

		// Advance oldLine/newLine past everything consumed, including
		// the trailing context we folded in.
		for j := start; j < trailingCtxEnd; j++ {
			switch ops[j].kind {
			case 0:
				oldLine++
				newLine++
			case -1:
				oldLine++
			case 1:
				newLine++
			}
		}
		i = trailingCtxEnd
	}

	return hunks
}
