package app

import (
	"os"
	"testing"

	"github.com/runoshun/decree/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MissingProjectReturnsErrNotAProject(t *testing.T) {
	_, err := New(t.TempDir())
	assert.ErrorIs(t, err, domain.ErrNotAProject)
}

func TestNewWithoutProject_WiresContainer(t *testing.T) {
	dir := t.TempDir()
	c, err := NewWithoutProject(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, c.Paths.RepoRoot)
	assert.Equal(t, domain.RepoRuntimeDir(dir), c.Paths.RuntimeDir)
	assert.NotNil(t, c.Checkpoint)
	assert.NotNil(t, c.Messages)
	assert.NotNil(t, c.Routines)
	assert.NotNil(t, c.Executor)
	assert.NotNil(t, c.ConfigLoader)
	assert.NotNil(t, c.Clock)
	assert.NotNil(t, c.Logger)
	assert.NotNil(t, c.Minter)
	assert.Nil(t, c.Router, "no router command configured by default")
}

func TestNew_SucceedsAfterRuntimeDirExists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(domain.RepoRuntimeDir(dir), 0o755))

	c, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, c.Paths.RepoRoot)
}

func TestContainer_RouterWiredWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	runtimeDir := domain.RepoRuntimeDir(dir)
	require.NoError(t, os.MkdirAll(runtimeDir, 0o755))
	content := "[commands]\nrouter = \"echo develop\"\n"
	require.NoError(t, os.WriteFile(runtimeDir+"/"+domain.ConfigFileName, []byte(content), 0o644))

	c, err := New(dir)
	require.NoError(t, err)
	assert.NotNil(t, c.Router)
}

func TestContainer_UseCaseFactoriesReturnWiredInstances(t *testing.T) {
	dir := t.TempDir()
	c, err := NewWithoutProject(dir)
	require.NoError(t, err)

	assert.NotNil(t, c.InitProjectUseCase())
	assert.NotNil(t, c.NormalizeMessageUseCase())
	assert.NotNil(t, c.ProcessMessageUseCase())
	assert.NotNil(t, c.RunPipelineUseCase())
	assert.NotNil(t, c.BatchProcessUseCase())
	assert.NotNil(t, c.DiffRangeUseCase())
	assert.NotNil(t, c.ApplyRangeUseCase())
	assert.NotNil(t, c.Daemon(60))
}
