// Package routine runs a discovered routine's subprocess and collects its
// artifacts, implementing domain.RoutineExecutor.
package routine

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"syscall"
	"time"

	"github.com/runoshun/decree/internal/domain"
)

// maxStderrTail bounds how much of a failed routine's stderr rides along
// in the failure context written before the clean-slate retry.
const maxStderrTail = 4096

// gracePeriod is how long the executor waits after sending SIGTERM to the
// process group before escalating to SIGKILL.
const gracePeriod = 5 * time.Second

// Executor implements domain.RoutineExecutor.
// Fields are ordered to minimize memory padding.
type Executor struct {
	notebookRunner string
	repoRoot       string
}

// New returns an Executor that runs routines with cwd=repoRoot. notebookRunner
// is the external notebook-execution binary name (e.g. "jupyter-nbconvert").
func New(repoRoot, notebookRunner string) *Executor {
	return &Executor{repoRoot: repoRoot, notebookRunner: notebookRunner}
}

var _ domain.RoutineExecutor = (*Executor)(nil)

// Execute runs r's subprocess with bindings exported as environment (shell
// form) or as --param flags (notebook form), tees its output into runDir,
// and waits for it to exit or for ctx to be canceled.
func (e *Executor) Execute(ctx context.Context, r *domain.Routine, runDir string, bindings map[string]string) (*domain.ExecutionResult, error) {
	switch r.Format {
	case domain.RoutineFormatNotebook:
		return e.executeNotebook(ctx, r, runDir, bindings)
	default:
		return e.executeShell(ctx, r, runDir, bindings)
	}
}

func (e *Executor) executeShell(ctx context.Context, r *domain.Routine, runDir string, bindings map[string]string) (*domain.ExecutionResult, error) {
	logPath := domain.RoutineLogPath(runDir)
	logFile, err := os.Create(logPath) //nolint:gosec // runDir is decree-managed
	if err != nil {
		return nil, fmt.Errorf("create routine log: %w", err)
	}
	defer logFile.Close()

	tail := newTailBuffer(maxStderrTail)

	// #nosec G204 - r.Path is an operator-authored routine file discovered
	// under .decree/routines, not user-controlled input.
	cmd := exec.Command("bash", r.Path)
	cmd.Dir = e.repoRoot
	cmd.Env = append(os.Environ(), envPairs(bindings)...)
	cmd.Stdout = io.MultiWriter(logFile, tail)
	cmd.Stderr = io.MultiWriter(logFile, tail)
	setProcessGroup(cmd)

	exitCode, err := runWithCancel(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return &domain.ExecutionResult{ExitCode: exitCode, StderrTail: tail.String()}, nil
}

func (e *Executor) executeNotebook(ctx context.Context, r *domain.Routine, runDir string, bindings map[string]string) (*domain.ExecutionResult, error) {
	runnerLog, err := os.Create(domain.RunnerLogPath(runDir)) //nolint:gosec // runDir is decree-managed
	if err != nil {
		return nil, fmt.Errorf("create runner log: %w", err)
	}
	defer runnerLog.Close()

	tail := newTailBuffer(maxStderrTail)

	args := []string{
		"--to", "notebook",
		"--execute",
		"--output", domain.OutputNotebookPath(runDir),
		r.Path,
	}
	for _, name := range sortedKeys(bindings) {
		args = append(args, "--param", fmt.Sprintf("%s=%s", name, bindings[name]))
	}

	// #nosec G204 - e.notebookRunner is operator configuration, r.Path is
	// an operator-authored routine file discovered under .decree/routines.
	cmd := exec.Command(e.notebookRunner, args...)
	cmd.Dir = e.repoRoot
	cmd.Env = append(os.Environ(), envPairs(bindings)...)
	cmd.Stderr = io.MultiWriter(runnerLog, tail)
	setProcessGroup(cmd)

	exitCode, err := runWithCancel(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return &domain.ExecutionResult{ExitCode: exitCode, StderrTail: tail.String()}, nil
}

// runWithCancel starts cmd, and on ctx cancellation sends SIGTERM to the
// whole process group, escalating to SIGKILL if the child hasn't exited
// within gracePeriod. It always waits for the child to exit so whatever
// artifacts it produced are complete on disk before returning.
func runWithCancel(ctx context.Context, cmd *exec.Cmd) (int, error) {
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start routine: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return exitCodeOf(cmd, err), nil
	case <-ctx.Done():
		terminateGroup(cmd)
		select {
		case err := <-done:
			return exitCodeOf(cmd, err), nil
		case <-time.After(gracePeriod):
			killGroup(cmd)
			err := <-done
			return exitCodeOf(cmd, err), nil
		}
	}
}

func exitCodeOf(cmd *exec.Cmd, waitErr error) int {
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if ok := asExitError(waitErr, &exitErr); ok {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}

func asExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if ok {
		*target = ee
	}
	return ok
}

// envPairs renders a binding map as "NAME=value" environment entries.
func envPairs(bindings map[string]string) []string {
	pairs := make([]string, 0, len(bindings))
	for _, name := range sortedKeys(bindings) {
		pairs = append(pairs, fmt.Sprintf("%s=%s", name, bindings[name]))
	}
	return pairs
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// tailBuffer keeps only the last n bytes written to it.
type tailBuffer struct {
	buf []byte
	n   int
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{n: n}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.n {
		t.buf = t.buf[len(t.buf)-t.n:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}

// setProcessGroup places the child in its own process group so cancellation
// can signal the whole group, not just the directly spawned process.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
}

func killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
