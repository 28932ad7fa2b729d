package messagestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/runoshun/decree/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_EnqueueAndRead(t *testing.T) {
	runtimeDir := t.TempDir()
	s := New(runtimeDir)

	msg := &domain.Message{Chain: domain.ChainID("2026080215304500"), Seq: 0, Routine: "develop", Body: "do it"}
	require.NoError(t, s.Enqueue(msg))
	assert.FileExists(t, msg.SourcePath)

	paths, err := s.ListInbox()
	require.NoError(t, err)
	require.Len(t, paths, 1)

	read, err := s.Read(paths[0])
	require.NoError(t, err)
	assert.Equal(t, msg.Chain, read.Chain)
	assert.Equal(t, msg.Routine, read.Routine)
	assert.Equal(t, "do it", read.Body)
}

func TestStore_Read_NotFound(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Read(filepath.Join(t.TempDir(), "nope.md"))
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}

func TestStore_Rewrite(t *testing.T) {
	runtimeDir := t.TempDir()
	s := New(runtimeDir)
	msg := &domain.Message{Chain: domain.ChainID("2026080215304500"), Seq: 0, Routine: "develop", Body: "body"}
	require.NoError(t, s.Enqueue(msg))

	msg.Routine = "review"
	require.NoError(t, s.Rewrite(msg))

	read, err := s.Read(msg.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, "review", read.Routine)
	assert.Equal(t, "body", read.Body)
}

func TestStore_MoveToDone(t *testing.T) {
	runtimeDir := t.TempDir()
	s := New(runtimeDir)
	msg := &domain.Message{Chain: domain.ChainID("2026080215304500"), Seq: 0, Routine: "develop", Body: "body"}
	require.NoError(t, s.Enqueue(msg))

	require.NoError(t, s.MoveToDone(msg))
	assert.FileExists(t, msg.SourcePath)
	assert.Equal(t, domain.InboxDoneDir(runtimeDir), filepath.Dir(msg.SourcePath))

	paths, err := s.ListInbox()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestStore_MoveToDead_RecordsReason(t *testing.T) {
	runtimeDir := t.TempDir()
	s := New(runtimeDir)
	msg := &domain.Message{Chain: domain.ChainID("2026080215304500"), Seq: 0, Routine: "develop", Body: "body"}
	require.NoError(t, s.Enqueue(msg))

	require.NoError(t, s.MoveToDead(msg, "routine not found"))
	assert.Equal(t, domain.InboxDeadDir(runtimeDir), filepath.Dir(msg.SourcePath))

	read, err := s.Read(msg.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, "routine not found", read.Extra["dead_reason"])
	assert.NotEmpty(t, read.Extra["dead_at"])
}

func TestStore_ListInbox_EmptyWhenDirMissing(t *testing.T) {
	s := New(t.TempDir())
	paths, err := s.ListInbox()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestStore_ListInbox_SortedAndIgnoresDotfiles(t *testing.T) {
	runtimeDir := t.TempDir()
	dir := domain.InboxDir(runtimeDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.md"), []byte("x"), 0o644))

	s := New(runtimeDir)
	paths, err := s.ListInbox()
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Contains(t, paths[0], "a.md")
	assert.Contains(t, paths[1], "b.md")
}

func TestStore_ReadWriteCron(t *testing.T) {
	runtimeDir := t.TempDir()
	dir := domain.CronDir(runtimeDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "daily.cron")
	content := "---\nschedule: \"0 9 * * *\"\nrouting: dev\nroutine: develop\n---\n\nship it\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := New(runtimeDir)
	entry, err := s.ReadCron(path)
	require.NoError(t, err)
	assert.Equal(t, "develop", entry.Routine)
	assert.Equal(t, "ship it\n", entry.Body)
	assert.Equal(t, "dev", entry.Extra["routing"])
	_, hasSchedule := entry.Extra["schedule"]
	assert.False(t, hasSchedule)
}

func TestStore_ReadCron_MissingSchedule(t *testing.T) {
	runtimeDir := t.TempDir()
	dir := domain.CronDir(runtimeDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "bad.cron")
	require.NoError(t, os.WriteFile(path, []byte("---\nroutine: develop\n---\n\nbody\n"), 0o644))

	s := New(runtimeDir)
	_, err := s.ReadCron(path)
	assert.Error(t, err)
}

func TestStore_ReadCron_WithTZ(t *testing.T) {
	runtimeDir := t.TempDir()
	dir := domain.CronDir(runtimeDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "tz.cron")
	content := "---\nschedule: \"0 9 * * *\"\ntz: \"America/New_York\"\nroutine: develop\n---\n\nbody\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := New(runtimeDir)
	entry, err := s.ReadCron(path)
	require.NoError(t, err)
	require.NotNil(t, entry.TZ)
	assert.Equal(t, "America/New_York", entry.TZ.String())
}
