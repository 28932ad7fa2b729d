package usecase

import (
	"fmt"
	"os"

	"github.com/runoshun/decree/internal/domain"
)

// InitProject scaffolds a brand-new decree project: the runtime directory
// tree plus an empty specs/ directory, grounded on the teacher's
// usecase/init_repo.go InitRepo.
type InitProject struct {
	repoRoot string
}

// NewInitProject wires an InitProject use case rooted at repoRoot.
func NewInitProject(repoRoot string) *InitProject {
	return &InitProject{repoRoot: repoRoot}
}

// InitProjectOutput reports what Execute did.
type InitProjectOutput struct {
	RuntimeDir         string
	AlreadyInitialized bool
}

// Execute creates .decree/{inbox,inbox/done,inbox/dead,runs,routines,cron,
// objects,logs} and specs/, plus an empty processed-spec tracker. It is
// idempotent: re-running against an already-initialized project reports
// AlreadyInitialized rather than failing.
func (uc *InitProject) Execute() (*InitProjectOutput, error) {
	runtimeDir := domain.RepoRuntimeDir(uc.repoRoot)

	if _, err := os.Stat(runtimeDir); err == nil {
		return &InitProjectOutput{RuntimeDir: runtimeDir, AlreadyInitialized: true}, nil
	}

	dirs := []string{
		runtimeDir,
		domain.InboxDir(runtimeDir),
		domain.InboxDoneDir(runtimeDir),
		domain.InboxDeadDir(runtimeDir),
		domain.RunsDir(runtimeDir),
		domain.RoutinesDir(runtimeDir),
		domain.CronDir(runtimeDir),
		domain.ObjectsDir(runtimeDir),
		domain.LogsDir(runtimeDir),
		domain.SpecsDir(uc.repoRoot),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}

	tracker := domain.ProcessedSpecTrackerPath(uc.repoRoot)
	if _, err := os.Stat(tracker); os.IsNotExist(err) {
		if err := os.WriteFile(tracker, nil, 0o644); err != nil {
			return nil, fmt.Errorf("create processed-spec tracker: %w", err)
		}
	}

	return &InitProjectOutput{RuntimeDir: runtimeDir, AlreadyInitialized: false}, nil
}
