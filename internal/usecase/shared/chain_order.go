// Package shared holds helpers used by more than one usecase: chronological
// run ordering, id/chain prefix resolution, and depth-first chain
// continuation, grounded on the teacher's own usecase/shared convention.
package shared

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/runoshun/decree/internal/domain"
)

// ListRunIDs returns every run directory's ID under runtimeDir, unsorted.
func ListRunIDs(runtimeDir string) ([]string, error) {
	entries, err := os.ReadDir(domain.RunsDir(runtimeDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// SortRunsChronologically orders run IDs by their chain's embedded
// timestamp, then by sequence number, per spec.md §9's explicit
// direction to never use filesystem mtime for this ordering.
func SortRunsChronologically(ids []string) []string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		ci, si, _ := domain.ParseMessageID(sorted[i])
		cj, sj, _ := domain.ParseMessageID(sorted[j])
		if ci != cj {
			return ci < cj
		}
		return si < sj
	})
	return sorted
}

// ResolveScope resolves a user-supplied id-or-chain prefix against the run
// directories under runtimeDir, per spec.md §6: "All ID arguments accept
// unique prefixes resolving to either a specific message or a whole
// chain." An exact full-id match always wins, even when other ids share
// that prefix. Otherwise every id sharing the prefix must belong to the
// same chain, in which case the whole chain is returned in chronological
// (seq) order; a prefix spanning more than one chain is ambiguous.
func ResolveScope(runtimeDir, prefix string) ([]string, error) {
	ids, err := ListRunIDs(runtimeDir)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		if id == prefix {
			return []string{id}, nil
		}
	}

	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrMessageNotFound, prefix)
	}

	chain, _, err := domain.ParseMessageID(matches[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrAmbiguousPrefix, prefix)
	}
	for _, id := range matches[1:] {
		c, _, err := domain.ParseMessageID(id)
		if err != nil || c != chain {
			return nil, fmt.Errorf("%w: %q matches more than one chain", domain.ErrAmbiguousPrefix, prefix)
		}
	}

	return SortRunsChronologically(matches), nil
}

// before reports whether a sorts strictly earlier than b in chain-
// timestamp-then-seq order. It reports false whenever either id is
// unparseable.
func before(a, b string) bool {
	ca, sa, erra := domain.ParseMessageID(a)
	cb, sb, errb := domain.ParseMessageID(b)
	if erra != nil || errb != nil {
		return false
	}
	if ca != cb {
		return ca < cb
	}
	return sa < sb
}

// FilterRange restricts ids (already in chronological order) to the
// window bounded by since/through. since is exclusive (runs strictly
// after it survive); through is inclusive. Both bounds are compared by
// chronological position, not list membership, since since/through may
// belong to a different chain than ids. Either bound may be empty.
func FilterRange(ids []string, since, through string) []string {
	var out []string
	for _, id := range ids {
		if since != "" && !before(since, id) {
			continue
		}
		if through != "" && before(through, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// NextInChain scans candidatePaths (inbox message file paths) for the
// lowest-seq message belonging to chain, implementing the depth-first
// chain-priority rule of spec.md §4.E step 9: "scan inbox for messages
// with the same chain; process them depth-first before any other chain."
func NextInChain(candidatePaths []string, messages domain.MessageStore, chain domain.ChainID) (string, bool, error) {
	bestPath := ""
	bestSeq := -1
	for _, path := range candidatePaths {
		msg, err := messages.Read(path)
		if err != nil {
			continue
		}
		if msg.Chain != chain {
			continue
		}
		if bestSeq == -1 || msg.Seq < bestSeq {
			bestSeq = msg.Seq
			bestPath = path
		}
	}
	if bestSeq == -1 {
		return "", false, nil
	}
	return bestPath, true, nil
}
