package usecase

import (
	"context"
	"os"
	"testing"

	"github.com/runoshun/decree/internal/domain"
	"github.com/runoshun/decree/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunPipeline(t *testing.T, executor domain.RoutineExecutor, routines *testutil.MockRoutineStore, messages *testutil.MockMessageStore, maxDepth int) *RunPipeline {
	t.Helper()
	repoRoot := t.TempDir()
	runtimeDir := domain.RepoRuntimeDir(repoRoot)
	require.NoError(t, os.MkdirAll(domain.RunsDir(runtimeDir), 0o755))

	checkpoint := &testutil.MockCheckpointEngine{SnapshotResult: domain.Manifest{}}
	logger := &testutil.MockLogger{}
	normalizer := NewNormalizeMessage(routines, nil, domain.NewChainMinter(&testutil.MockClock{}), messages, domain.NewDefaultConfig())
	processor := NewProcessMessage(normalizer, checkpoint, executor, routines, messages, logger, repoRoot, runtimeDir, 1)
	return NewRunPipeline(processor, messages, maxDepth)
}

func TestRunPipeline_SingleMessageDone(t *testing.T) {
	routines := testutil.NewMockRoutineStore()
	routines.Routines["develop"] = &domain.Routine{Name: "develop"}
	executor := &sequencedExecutor{results: []*domain.ExecutionResult{{ExitCode: 0}}}
	messages := testutil.NewMockMessageStore()

	pipeline := newRunPipeline(t, executor, routines, messages, 10)
	msg := &domain.Message{Chain: domain.ChainID("2026080215304500"), Seq: 0, Routine: "develop"}

	results, err := pipeline.ExecuteMessage(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, DispositionDone, results[0].Disposition)
}

func TestRunPipeline_ContinuesChainDepthFirst(t *testing.T) {
	routines := testutil.NewMockRoutineStore()
	routines.Routines["develop"] = &domain.Routine{Name: "develop"}
	executor := &sequencedExecutor{results: []*domain.ExecutionResult{{ExitCode: 0}}}
	messages := testutil.NewMockMessageStore()

	chain := domain.ChainID("2026080215304500")
	next := &domain.Message{Chain: chain, Seq: 1, Routine: "develop"}
	messages.Messages[next.ID()] = next

	pipeline := newRunPipeline(t, executor, routines, messages, 10)
	first := &domain.Message{Chain: chain, Seq: 0, Routine: "develop"}

	results, err := pipeline.ExecuteMessage(context.Background(), first)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, DispositionDone, results[0].Disposition)
	assert.Equal(t, DispositionDone, results[1].Disposition)
	assert.Equal(t, next.ID(), results[1].Message.ID())
}

func TestRunPipeline_StopsOnDeadDisposition(t *testing.T) {
	routines := testutil.NewMockRoutineStore()
	messages := testutil.NewMockMessageStore()
	chain := domain.ChainID("2026080215304500")
	next := &domain.Message{Chain: chain, Seq: 1, Routine: "develop"}
	messages.Messages[next.ID()] = next

	executor := &sequencedExecutor{results: []*domain.ExecutionResult{{ExitCode: 0}}}
	pipeline := newRunPipeline(t, executor, routines, messages, 10)
	first := &domain.Message{Chain: chain, Seq: 0, Routine: "missing-routine"}

	results, err := pipeline.ExecuteMessage(context.Background(), first)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, DispositionDead, results[0].Disposition)
}

func TestRunPipeline_MaxDepthExceeded(t *testing.T) {
	routines := testutil.NewMockRoutineStore()
	routines.Routines["develop"] = &domain.Routine{Name: "develop"}
	messages := testutil.NewMockMessageStore()

	executor := &sequencedExecutor{results: []*domain.ExecutionResult{{ExitCode: 0}}}
	pipeline := newRunPipeline(t, executor, routines, messages, 1)
	msg := &domain.Message{Chain: domain.ChainID("2026080215304500"), Seq: 5, Routine: "develop"}

	results, err := pipeline.ExecuteMessage(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, DispositionDead, results[0].Disposition)
	assert.Contains(t, results[0].Reason, "max_depth")
	assert.Contains(t, messages.Dead, msg.ID())
}
