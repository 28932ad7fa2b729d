package usecase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/runoshun/decree/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitProject_Execute_CreatesLayout(t *testing.T) {
	repoRoot := t.TempDir()
	uc := NewInitProject(repoRoot)

	out, err := uc.Execute()
	require.NoError(t, err)
	assert.False(t, out.AlreadyInitialized)

	runtimeDir := domain.RepoRuntimeDir(repoRoot)
	assert.Equal(t, runtimeDir, out.RuntimeDir)
	for _, dir := range []string{
		domain.InboxDir(runtimeDir),
		domain.InboxDoneDir(runtimeDir),
		domain.InboxDeadDir(runtimeDir),
		domain.RunsDir(runtimeDir),
		domain.RoutinesDir(runtimeDir),
		domain.CronDir(runtimeDir),
		domain.ObjectsDir(runtimeDir),
		domain.LogsDir(runtimeDir),
		domain.SpecsDir(repoRoot),
	} {
		assert.DirExists(t, dir)
	}
	assert.FileExists(t, domain.ProcessedSpecTrackerPath(repoRoot))
}

func TestInitProject_Execute_Idempotent(t *testing.T) {
	repoRoot := t.TempDir()
	uc := NewInitProject(repoRoot)

	_, err := uc.Execute()
	require.NoError(t, err)

	// Mutate the tracker to confirm a second run doesn't clobber state.
	tracker := domain.ProcessedSpecTrackerPath(repoRoot)
	require.NoError(t, os.WriteFile(tracker, []byte("a.spec.md\n"), 0o644))

	out, err := uc.Execute()
	require.NoError(t, err)
	assert.True(t, out.AlreadyInitialized)

	content, err := os.ReadFile(tracker)
	require.NoError(t, err)
	assert.Equal(t, "a.spec.md\n", string(content))
}

func TestInitProject_Execute_NestedRepoRoot(t *testing.T) {
	parent := t.TempDir()
	repoRoot := filepath.Join(parent, "nested", "project")
	require.NoError(t, os.MkdirAll(repoRoot, 0o755))

	uc := NewInitProject(repoRoot)
	out, err := uc.Execute()
	require.NoError(t, err)
	assert.False(t, out.AlreadyInitialized)
	assert.DirExists(t, out.RuntimeDir)
}
