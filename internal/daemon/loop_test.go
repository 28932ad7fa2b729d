package daemon

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/runoshun/decree/internal/domain"
	"github.com/runoshun/decree/internal/testutil"
	"github.com/runoshun/decree/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dummyExecutor struct{}

func (dummyExecutor) Execute(_ context.Context, _ *domain.Routine, _ string, _ map[string]string) (*domain.ExecutionResult, error) {
	return &domain.ExecutionResult{ExitCode: 0}, nil
}

func newTestDaemon(t *testing.T, messages *testutil.MockMessageStore, clock domain.Clock, interval time.Duration) *Daemon {
	t.Helper()
	repoRoot := t.TempDir()
	runtimeDir := domain.RepoRuntimeDir(repoRoot)
	require.NoError(t, os.MkdirAll(domain.RunsDir(runtimeDir), 0o755))

	routines := testutil.NewMockRoutineStore()
	routines.Routines["develop"] = &domain.Routine{Name: "develop"}
	checkpoint := &testutil.MockCheckpointEngine{SnapshotResult: domain.Manifest{}}
	logger := &testutil.MockLogger{}
	normalizer := usecase.NewNormalizeMessage(routines, nil, domain.NewChainMinter(clock), messages, domain.NewDefaultConfig())
	processor := usecase.NewProcessMessage(normalizer, checkpoint, dummyExecutor{}, routines, messages, logger, repoRoot, runtimeDir, 1)
	pipeline := usecase.NewRunPipeline(processor, messages, 10)
	minter := domain.NewChainMinter(clock)

	return New(pipeline, messages, minter, clock, logger, interval)
}

func TestDaemon_CronPhaseFiresMatchingSchedule(t *testing.T) {
	messages := testutil.NewMockMessageStore()
	now := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	clock := &testutil.MockClock{NowTime: now}

	schedule, err := domain.ParseSchedule("0 9 * * *")
	require.NoError(t, err)
	messages.Cron["daily.cron"] = &domain.CronEntry{Path: "daily.cron", Schedule: schedule, Routine: "develop", Extra: map[string]string{}}

	d := newTestDaemon(t, messages, clock, time.Hour)
	require.NoError(t, d.cronPhase(context.Background()))

	assert.Len(t, messages.Enqueued, 1)
	assert.Equal(t, "develop", messages.Enqueued[0].Routine)
}

func TestDaemon_CronPhaseDedupsWithinSameMinute(t *testing.T) {
	messages := testutil.NewMockMessageStore()
	now := time.Date(2026, 8, 2, 9, 0, 30, 0, time.UTC)
	clock := &testutil.MockClock{NowTime: now}

	schedule, err := domain.ParseSchedule("0 9 * * *")
	require.NoError(t, err)
	messages.Cron["daily.cron"] = &domain.CronEntry{Path: "daily.cron", Schedule: schedule, Routine: "develop", Extra: map[string]string{}}

	d := newTestDaemon(t, messages, clock, time.Hour)
	require.NoError(t, d.cronPhase(context.Background()))
	require.NoError(t, d.cronPhase(context.Background()))

	assert.Len(t, messages.Enqueued, 1)
}

func TestDaemon_CronPhaseSkipsNonMatching(t *testing.T) {
	messages := testutil.NewMockMessageStore()
	now := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
	clock := &testutil.MockClock{NowTime: now}

	schedule, err := domain.ParseSchedule("0 9 * * *")
	require.NoError(t, err)
	messages.Cron["daily.cron"] = &domain.CronEntry{Path: "daily.cron", Schedule: schedule, Routine: "develop"}

	d := newTestDaemon(t, messages, clock, time.Hour)
	require.NoError(t, d.cronPhase(context.Background()))

	assert.Empty(t, messages.Enqueued)
}

func TestDaemon_InboxPhaseDrainsUntilEmpty(t *testing.T) {
	messages := testutil.NewMockMessageStore()
	chain := domain.ChainID("2026080215304500")
	messages.Messages[domain.MessageID(chain, 0)] = &domain.Message{Chain: chain, Seq: 0, Routine: "develop"}

	clock := &testutil.MockClock{NowTime: time.Now()}
	d := newTestDaemon(t, messages, clock, time.Hour)

	require.NoError(t, d.inboxPhase(context.Background()))
	assert.Empty(t, messages.Messages)
	assert.Contains(t, messages.Done, domain.MessageID(chain, 0))
}

// cancelingExecutor cancels the context it is invoked with, simulating a
// SIGINT/SIGTERM arriving while a message is mid-execution.
type cancelingExecutor struct {
	cancel context.CancelFunc
	calls  int
}

func (e *cancelingExecutor) Execute(_ context.Context, _ *domain.Routine, _ string, _ map[string]string) (*domain.ExecutionResult, error) {
	e.calls++
	e.cancel()
	return &domain.ExecutionResult{ExitCode: 0}, nil
}

func TestDaemon_InboxPhase_StopsDrainingOnceContextCanceledMidDrain(t *testing.T) {
	messages := testutil.NewMockMessageStore()
	chainA := domain.ChainID("2026080215300000")
	chainB := domain.ChainID("2026080215300001")
	messages.Messages[domain.MessageID(chainA, 0)] = &domain.Message{Chain: chainA, Seq: 0, Routine: "develop"}
	messages.Messages[domain.MessageID(chainB, 0)] = &domain.Message{Chain: chainB, Seq: 0, Routine: "develop"}

	clock := &testutil.MockClock{NowTime: time.Now()}
	ctx, cancel := context.WithCancel(context.Background())

	repoRoot := t.TempDir()
	runtimeDir := domain.RepoRuntimeDir(repoRoot)
	require.NoError(t, os.MkdirAll(domain.RunsDir(runtimeDir), 0o755))
	routines := testutil.NewMockRoutineStore()
	routines.Routines["develop"] = &domain.Routine{Name: "develop"}
	checkpoint := &testutil.MockCheckpointEngine{SnapshotResult: domain.Manifest{}}
	logger := &testutil.MockLogger{}
	executor := &cancelingExecutor{cancel: cancel}
	normalizer := usecase.NewNormalizeMessage(routines, nil, domain.NewChainMinter(clock), messages, domain.NewDefaultConfig())
	processor := usecase.NewProcessMessage(normalizer, checkpoint, executor, routines, messages, logger, repoRoot, runtimeDir, 1)
	pipeline := usecase.NewRunPipeline(processor, messages, 10)
	d := New(pipeline, messages, domain.NewChainMinter(clock), clock, logger, time.Hour)

	require.NoError(t, d.inboxPhase(ctx))

	assert.Equal(t, 1, executor.calls)
	assert.Len(t, messages.Messages, 1)
}

func TestDaemon_Run_ExitsOnCanceledContext(t *testing.T) {
	messages := testutil.NewMockMessageStore()
	clock := &testutil.MockClock{NowTime: time.Now()}
	d := newTestDaemon(t, messages, clock, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx)
	assert.NoError(t, err)
}
