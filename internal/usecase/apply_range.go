package usecase

import (
	"fmt"
	"os"

	"github.com/runoshun/decree/internal/domain"
	"github.com/runoshun/decree/internal/usecase/shared"
)

// ApplyRange re-applies one or more historical runs' changes.diff against
// the current tree, implementing `decree apply [id|chain] [--through id]
// [--since id] [--all] [--force]`. Each run in the resolved window is
// applied in chronological order via CheckpointEngine.Apply, which itself
// runs check-then-apply (or force, skipping the check) per spec.md §4.B;
// the range stops at the first run that reports conflicts unless force
// is set, leaving every run applied before it in place.
type ApplyRange struct {
	checkpoint domain.CheckpointEngine
	runtimeDir string
	repoRoot   string
}

func NewApplyRange(checkpoint domain.CheckpointEngine, repoRoot, runtimeDir string) *ApplyRange {
	return &ApplyRange{checkpoint: checkpoint, repoRoot: repoRoot, runtimeDir: runtimeDir}
}

// ApplyRangeResult reports which runs were applied and, if the range
// stopped early, the conflicting run and its report.
type ApplyRangeResult struct {
	Applied        []string
	ConflictRunID  string
	ConflictReport *domain.ApplyReport
}

// Execute applies the resolved window of runs. idOrChain is ignored when
// all is true, in which case every run directory is considered.
func (uc *ApplyRange) Execute(idOrChain, through, since string, all, force bool) (*ApplyRangeResult, error) {
	var scope []string
	if all {
		ids, err := shared.ListRunIDs(uc.runtimeDir)
		if err != nil {
			return nil, err
		}
		scope = shared.SortRunsChronologically(ids)
	} else {
		resolved, err := shared.ResolveScope(uc.runtimeDir, idOrChain)
		if err != nil {
			return nil, err
		}
		scope = resolved
	}

	sinceID, err := uc.resolveBound(since)
	if err != nil {
		return nil, fmt.Errorf("resolve --since %q: %w", since, err)
	}
	throughID, err := uc.resolveBound(through)
	if err != nil {
		return nil, fmt.Errorf("resolve --through %q: %w", through, err)
	}

	window := shared.FilterRange(scope, sinceID, throughID)
	result := &ApplyRangeResult{}

	mode := domain.ApplyModeApply
	if force {
		mode = domain.ApplyModeForce
	}

	for _, runID := range window {
		runDir := domain.RunDir(uc.runtimeDir, runID)
		text, err := os.ReadFile(domain.ChangesDiffPath(runDir)) //nolint:gosec // path built from a resolved run directory
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", domain.ChangesDiffPath(runDir), err)
		}
		d, err := domain.ParseUnifiedDiff(string(text))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", domain.ChangesDiffPath(runDir), err)
		}

		report, err := uc.checkpoint.Apply(d, uc.repoRoot, mode)
		if err != nil {
			return nil, fmt.Errorf("apply %s: %w", runID, err)
		}
		if !report.OK() {
			result.ConflictRunID = runID
			result.ConflictReport = report
			return result, nil
		}
		result.Applied = append(result.Applied, runID)
	}

	return result, nil
}

// resolveBound resolves a --since/--through argument (a run id or chain
// prefix) to the single run id that bounds the window: the last run in
// chronological order when the argument names a whole chain.
func (uc *ApplyRange) resolveBound(arg string) (string, error) {
	if arg == "" {
		return "", nil
	}
	resolved, err := shared.ResolveScope(uc.runtimeDir, arg)
	if err != nil {
		return "", err
	}
	return resolved[len(resolved)-1], nil
}
