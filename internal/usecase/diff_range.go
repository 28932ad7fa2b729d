package usecase

import (
	"fmt"
	"os"

	"github.com/runoshun/decree/internal/domain"
	"github.com/runoshun/decree/internal/usecase/shared"
)

// DiffRange renders the concatenated changes.diff of a historical run or
// chain, optionally narrowed to runs after a given id, implementing the
// `decree diff [id|chain] [--since id]` command.
type DiffRange struct {
	runtimeDir string
}

func NewDiffRange(runtimeDir string) *DiffRange {
	return &DiffRange{runtimeDir: runtimeDir}
}

// Execute returns the rendered unified-diff document covering idOrChain
// (a single run ID or a whole chain's run IDs in chronological order),
// restricted to runs strictly after since when since is non-empty.
func (uc *DiffRange) Execute(idOrChain, since string) (string, error) {
	scope, err := shared.ResolveScope(uc.runtimeDir, idOrChain)
	if err != nil {
		return "", err
	}

	sinceID := ""
	if since != "" {
		sinceScope, err := shared.ResolveScope(uc.runtimeDir, since)
		if err != nil {
			return "", fmt.Errorf("resolve --since %q: %w", since, err)
		}
		sinceID = sinceScope[len(sinceScope)-1] // last run of the since-chain, if a chain
	}

	window := shared.FilterRange(scope, sinceID, "")
	if len(window) == 0 {
		return "", nil
	}

	var merged domain.UnifiedDiff
	for _, runID := range window {
		runDir := domain.RunDir(uc.runtimeDir, runID)
		text, err := os.ReadFile(domain.ChangesDiffPath(runDir)) //nolint:gosec // path built from a resolved run directory
		if err != nil {
			return "", fmt.Errorf("read %s: %w", domain.ChangesDiffPath(runDir), err)
		}
		d, err := domain.ParseUnifiedDiff(string(text))
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", domain.ChangesDiffPath(runDir), err)
		}
		merged.Hunks = append(merged.Hunks, d.Hunks...)
	}

	merged.Sort()
	return merged.String(), nil
}
