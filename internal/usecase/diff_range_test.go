package usecase

import (
	"os"
	"testing"

	"github.com/runoshun/decree/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRunDiff(t *testing.T, runtimeDir, runID, diffText string) {
	t.Helper()
	runDir := domain.RunDir(runtimeDir, runID)
	require.NoError(t, os.MkdirAll(runDir, 0o755))
	require.NoError(t, os.WriteFile(domain.ChangesDiffPath(runDir), []byte(diffText), 0o644))
}

func TestDiffRange_SingleRun(t *testing.T) {
	runtimeDir := t.TempDir()
	d := domain.UnifiedDiff{Hunks: []domain.Hunk{{Path: "a.txt", Kind: domain.HunkModify, Text: "@@ -1 +1 @@\n-a\n+A"}}}
	writeRunDiff(t, runtimeDir, "2026080215304500-0", d.String())

	uc := NewDiffRange(runtimeDir)
	text, err := uc.Execute("2026080215304500-0", "")
	require.NoError(t, err)
	assert.Contains(t, text, "a.txt")
}

func TestDiffRange_WholeChainMerged(t *testing.T) {
	runtimeDir := t.TempDir()
	d0 := domain.UnifiedDiff{Hunks: []domain.Hunk{{Path: "a.txt", Kind: domain.HunkModify, Text: "@@ -1 +1 @@\n-a\n+A"}}}
	d1 := domain.UnifiedDiff{Hunks: []domain.Hunk{{Path: "b.txt", Kind: domain.HunkCreate, Text: "@@ -0,0 +1 @@\n+b"}}}
	writeRunDiff(t, runtimeDir, "2026080215304500-0", d0.String())
	writeRunDiff(t, runtimeDir, "2026080215304500-1", d1.String())

	uc := NewDiffRange(runtimeDir)
	text, err := uc.Execute("2026080215304500", "")
	require.NoError(t, err)
	assert.Contains(t, text, "a.txt")
	assert.Contains(t, text, "b.txt")
}

func TestDiffRange_Since(t *testing.T) {
	runtimeDir := t.TempDir()
	d0 := domain.UnifiedDiff{Hunks: []domain.Hunk{{Path: "a.txt", Kind: domain.HunkModify, Text: "@@ -1 +1 @@\n-a\n+A"}}}
	d1 := domain.UnifiedDiff{Hunks: []domain.Hunk{{Path: "b.txt", Kind: domain.HunkCreate, Text: "@@ -0,0 +1 @@\n+b"}}}
	writeRunDiff(t, runtimeDir, "2026080215304500-0", d0.String())
	writeRunDiff(t, runtimeDir, "2026080215304500-1", d1.String())

	uc := NewDiffRange(runtimeDir)
	text, err := uc.Execute("2026080215304500", "2026080215304500-0")
	require.NoError(t, err)
	assert.NotContains(t, text, "a.txt")
	assert.Contains(t, text, "b.txt")
}

func TestDiffRange_NotFound(t *testing.T) {
	runtimeDir := t.TempDir()
	uc := NewDiffRange(runtimeDir)
	_, err := uc.Execute("nope", "")
	assert.Error(t, err)
}
