// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/runoshun/decree/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// MockMessageStore is a test double for domain.MessageStore.
// Fields are ordered to minimize memory padding.
type MockMessageStore struct {
	Messages    map[string]*domain.Message
	Cron        map[string]*domain.CronEntry
	Done        []string
	Dead        []string
	DeadReasons map[string]string
	Enqueued    []*domain.Message
	Rewritten   []*domain.Message
	ListInboxErr error
	ListCronErr  error
	ReadErr      error
	RewriteErr   error
	MoveToDoneErr error
	MoveToDeadErr error
	EnqueueErr    error
	ReadCronErr   error
}

// NewMockMessageStore creates a new MockMessageStore with initialized maps.
func NewMockMessageStore() *MockMessageStore {
	return &MockMessageStore{
		Messages:    make(map[string]*domain.Message),
		Cron:        make(map[string]*domain.CronEntry),
		DeadReasons: make(map[string]string),
	}
}

// Ensure MockMessageStore implements domain.MessageStore interface.
var _ domain.MessageStore = (*MockMessageStore)(nil)

// ListInbox returns the configured inbox paths in sorted key order.
func (m *MockMessageStore) ListInbox() ([]string, error) {
	if m.ListInboxErr != nil {
		return nil, m.ListInboxErr
	}
	paths := make([]string, 0, len(m.Messages))
	for p := range m.Messages {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// ListCron returns the configured cron entry paths.
func (m *MockMessageStore) ListCron() ([]string, error) {
	if m.ListCronErr != nil {
		return nil, m.ListCronErr
	}
	paths := make([]string, 0, len(m.Cron))
	for p := range m.Cron {
		paths = append(paths, p)
	}
	return paths, nil
}

// Read returns the configured message at path.
func (m *MockMessageStore) Read(path string) (*domain.Message, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	msg, ok := m.Messages[path]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	return msg, nil
}

// Rewrite records the call and returns configured error.
func (m *MockMessageStore) Rewrite(msg *domain.Message) error {
	if m.RewriteErr != nil {
		return m.RewriteErr
	}
	m.Rewritten = append(m.Rewritten, msg)
	return nil
}

// MoveToDone records the call, removes msg from the inbox map (mirroring
// the real store's rename-out-of-inbox behavior), and returns configured
// error.
func (m *MockMessageStore) MoveToDone(msg *domain.Message) error {
	if m.MoveToDoneErr != nil {
		return m.MoveToDoneErr
	}
	m.Done = append(m.Done, msg.ID())
	delete(m.Messages, msg.ID())
	return nil
}

// MoveToDead records the call, removes msg from the inbox map, and
// returns configured error.
func (m *MockMessageStore) MoveToDead(msg *domain.Message, reason string) error {
	if m.MoveToDeadErr != nil {
		return m.MoveToDeadErr
	}
	m.Dead = append(m.Dead, msg.ID())
	m.DeadReasons[msg.ID()] = reason
	delete(m.Messages, msg.ID())
	return nil
}

// Enqueue records the call and stores msg under its own ID, returning
// configured error.
func (m *MockMessageStore) Enqueue(msg *domain.Message) error {
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	m.Enqueued = append(m.Enqueued, msg)
	m.Messages[msg.ID()] = msg
	return nil
}

// ReadCron returns the configured cron entry at path.
func (m *MockMessageStore) ReadCron(path string) (*domain.CronEntry, error) {
	if m.ReadCronErr != nil {
		return nil, m.ReadCronErr
	}
	entry, ok := m.Cron[path]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	return entry, nil
}

// MockRoutineStore is a test double for domain.RoutineStore.
type MockRoutineStore struct {
	Routines map[string]*domain.Routine
	FindErr  error
	ListErr  error
}

// NewMockRoutineStore creates a new MockRoutineStore with an initialized map.
func NewMockRoutineStore() *MockRoutineStore {
	return &MockRoutineStore{Routines: make(map[string]*domain.Routine)}
}

// Ensure MockRoutineStore implements domain.RoutineStore interface.
var _ domain.RoutineStore = (*MockRoutineStore)(nil)

// Find returns the configured routine by name.
func (m *MockRoutineStore) Find(name string) (*domain.Routine, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	r, ok := m.Routines[name]
	if !ok {
		return nil, domain.ErrRoutineNotFound
	}
	return r, nil
}

// List returns every configured routine.
func (m *MockRoutineStore) List() ([]*domain.Routine, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	routines := make([]*domain.Routine, 0, len(m.Routines))
	for _, r := range m.Routines {
		routines = append(routines, r)
	}
	return routines, nil
}

// MockRoutineExecutor is a test double for domain.RoutineExecutor.
type MockRoutineExecutor struct {
	Result        *domain.ExecutionResult
	Err           error
	Calls         int
	LastRoutine   *domain.Routine
	LastRunDir    string
	LastBindings  map[string]string
}

// Ensure MockRoutineExecutor implements domain.RoutineExecutor interface.
var _ domain.RoutineExecutor = (*MockRoutineExecutor)(nil)

// Execute records the call and returns the configured result or error.
func (m *MockRoutineExecutor) Execute(_ context.Context, r *domain.Routine, runDir string, bindings map[string]string) (*domain.ExecutionResult, error) {
	m.Calls++
	m.LastRoutine = r
	m.LastRunDir = runDir
	m.LastBindings = bindings
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return &domain.ExecutionResult{ExitCode: 0}, nil
}

// MockRouterAI is a test double for domain.RouterAI.
type MockRouterAI struct {
	RoutineName string
	Err         error
}

// Ensure MockRouterAI implements domain.RouterAI interface.
var _ domain.RouterAI = (*MockRouterAI)(nil)

// Route returns the configured routine name or error.
func (m *MockRouterAI) Route(_ context.Context, _ string, _ []domain.RoutineDescription) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.RoutineName, nil
}

// MockCheckpointEngine is a test double for domain.CheckpointEngine.
type MockCheckpointEngine struct {
	SnapshotResult domain.Manifest
	SnapshotErr    error
	DiffResult     domain.UnifiedDiff
	DiffErr        error
	ApplyResult    *domain.ApplyReport
	ApplyErr       error
	RevertErr      error
}

// Ensure MockCheckpointEngine implements domain.CheckpointEngine interface.
var _ domain.CheckpointEngine = (*MockCheckpointEngine)(nil)

// Snapshot returns the configured manifest or error.
func (m *MockCheckpointEngine) Snapshot(_ string) (domain.Manifest, error) {
	if m.SnapshotErr != nil {
		return nil, m.SnapshotErr
	}
	return m.SnapshotResult, nil
}

// Diff returns the configured diff or error.
func (m *MockCheckpointEngine) Diff(_ domain.Manifest, _ string) (domain.UnifiedDiff, error) {
	if m.DiffErr != nil {
		return domain.UnifiedDiff{}, m.DiffErr
	}
	return m.DiffResult, nil
}

// Apply returns the configured report or error.
func (m *MockCheckpointEngine) Apply(_ domain.UnifiedDiff, _ string, _ domain.ApplyMode) (*domain.ApplyReport, error) {
	if m.ApplyErr != nil {
		return nil, m.ApplyErr
	}
	return m.ApplyResult, nil
}

// Revert returns the configured error.
func (m *MockCheckpointEngine) Revert(_ domain.UnifiedDiff, _ string, _ domain.Manifest) error {
	return m.RevertErr
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config  *domain.Config
	LoadErr error
}

// NewMockConfigLoader creates a new MockConfigLoader with default config.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{Config: domain.NewDefaultConfig()}
}

// Ensure MockConfigLoader implements domain.ConfigLoader interface.
var _ domain.ConfigLoader = (*MockConfigLoader)(nil)

// Load returns the configured config or error.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// MockLogger is a test double for domain.Logger. It records every call so
// tests can assert on what was logged without reading log files back.
type MockLogger struct {
	Entries []LogEntry
}

// LogEntry is one recorded MockLogger call.
type LogEntry struct {
	Level    string
	RunID    string
	Category string
	Msg      string
}

// Ensure MockLogger implements domain.Logger interface.
var _ domain.Logger = (*MockLogger)(nil)

// Info records an info-level entry.
func (m *MockLogger) Info(runID, category, msg string) {
	m.Entries = append(m.Entries, LogEntry{Level: "info", RunID: runID, Category: category, Msg: msg})
}

// Debug records a debug-level entry.
func (m *MockLogger) Debug(runID, category, msg string) {
	m.Entries = append(m.Entries, LogEntry{Level: "debug", RunID: runID, Category: category, Msg: msg})
}

// Warn records a warn-level entry.
func (m *MockLogger) Warn(runID, category, msg string) {
	m.Entries = append(m.Entries, LogEntry{Level: "warn", RunID: runID, Category: category, Msg: msg})
}

// Error records an error-level entry.
func (m *MockLogger) Error(runID, category, msg string) {
	m.Entries = append(m.Entries, LogEntry{Level: "error", RunID: runID, Category: category, Msg: msg})
}
