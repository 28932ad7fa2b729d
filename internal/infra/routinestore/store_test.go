package routinestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runoshun/decree/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRoutineFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestStore_Find_ShellRoutine(t *testing.T) {
	dir := t.TempDir()
	writeRoutineFile(t, dir, "develop.sh", "#!/bin/bash\n# Implements the feature\nfoo=bar\necho hi\n")

	s := New(dir, false)
	r, err := s.Find("develop")
	require.NoError(t, err)
	assert.Equal(t, domain.RoutineFormatShell, r.Format)
	assert.Equal(t, "Implements the feature", r.Description)
	assert.Equal(t, "bar", r.Params["foo"])
}

func TestStore_Find_NotebookPrecedenceWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	writeRoutineFile(t, dir, "develop.sh", "#!/bin/bash\necho shell\n")
	writeRoutineFile(t, dir, "develop.notebook", `{"cells":[{"cell_type":"markdown","source":"notebook version"}]}`)

	s := New(dir, true)
	r, err := s.Find("develop")
	require.NoError(t, err)
	assert.Equal(t, domain.RoutineFormatNotebook, r.Format)
	assert.Equal(t, "notebook version", r.Description)
}

func TestStore_Find_NotebookDisabledFallsBackToShell(t *testing.T) {
	dir := t.TempDir()
	writeRoutineFile(t, dir, "develop.sh", "#!/bin/bash\necho shell\n")
	writeRoutineFile(t, dir, "develop.notebook", `{"cells":[]}`)

	s := New(dir, false)
	r, err := s.Find("develop")
	require.NoError(t, err)
	assert.Equal(t, domain.RoutineFormatShell, r.Format)
}

func TestStore_Find_ExplicitSuffixBypassesPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeRoutineFile(t, dir, "develop.sh", "#!/bin/bash\necho shell\n")
	writeRoutineFile(t, dir, "develop.notebook", `{"cells":[{"cell_type":"markdown","source":"nb"}]}`)

	s := New(dir, true)
	r, err := s.Find("develop.sh")
	require.NoError(t, err)
	assert.Equal(t, domain.RoutineFormatShell, r.Format)
}

func TestStore_Find_MissingReturnsErrRoutineNotFound(t *testing.T) {
	s := New(t.TempDir(), false)
	_, err := s.Find("nope")
	assert.ErrorIs(t, err, domain.ErrRoutineNotFound)
}

func TestStore_Find_NotebookExplicitDisabledErrors(t *testing.T) {
	dir := t.TempDir()
	writeRoutineFile(t, dir, "develop.notebook", `{"cells":[]}`)
	s := New(dir, false)
	_, err := s.Find("develop.notebook")
	assert.ErrorIs(t, err, domain.ErrRoutineNotFound)
}

func TestStore_List_DeduplicatesByStemSortedWithNotebookPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeRoutineFile(t, dir, "b.sh", "#!/bin/bash\necho b\n")
	writeRoutineFile(t, dir, "a.sh", "#!/bin/bash\necho a\n")
	writeRoutineFile(t, dir, "a.notebook", `{"cells":[]}`)

	s := New(dir, true)
	routines, err := s.List()
	require.NoError(t, err)
	require.Len(t, routines, 2)
	assert.Equal(t, "a", routines[0].Name)
	assert.Equal(t, domain.RoutineFormatNotebook, routines[0].Format)
	assert.Equal(t, "b", routines[1].Name)
	assert.Equal(t, domain.RoutineFormatShell, routines[1].Format)
}

func TestStore_List_MissingDirReturnsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "absent"), false)
	routines, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, routines)
}

func TestStore_Find_IgnoresStandardParamNames(t *testing.T) {
	dir := t.TempDir()
	writeRoutineFile(t, dir, "develop.sh", "#!/bin/bash\nspec_file=ignored\ncustom=kept\necho hi\n")

	s := New(dir, false)
	r, err := s.Find("develop")
	require.NoError(t, err)
	_, hasStandard := r.Params["spec_file"]
	assert.False(t, hasStandard)
	assert.Equal(t, "kept", r.Params["custom"])
}

func TestStore_Find_CachesAcrossCallsWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeRoutineFile(t, dir, "develop.sh", "#!/bin/bash\necho hi\n")

	s := New(dir, false)
	first, err := s.Find("develop")
	require.NoError(t, err)

	second, err := s.Find("develop")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestStore_Find_RefreshesCacheOnModTimeChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "develop.sh")
	writeRoutineFile(t, dir, "develop.sh", "#!/bin/bash\n# first\necho hi\n")

	s := New(dir, false)
	first, err := s.Find("develop")
	require.NoError(t, err)
	assert.Equal(t, "first", first.Description)

	writeRoutineFile(t, dir, "develop.sh", "#!/bin/bash\n# second\necho hi\n")
	newTime := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, newTime, newTime))

	second, err := s.Find("develop")
	require.NoError(t, err)
	assert.Equal(t, "second", second.Description)
}

func TestStore_Find_RemovedFileReturnsErrRoutineNotFound(t *testing.T) {
	dir := t.TempDir()
	writeRoutineFile(t, dir, "develop.sh", "#!/bin/bash\necho hi\n")

	s := New(dir, false)
	_, err := s.Find("develop")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "develop.sh")))

	_, err = s.Find("develop")
	assert.ErrorIs(t, err, domain.ErrRoutineNotFound)
}
