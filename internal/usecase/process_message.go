package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/runoshun/decree/internal/domain"
)

// ProcessMessage drives a single message through the full
// Pending → … → {Done, Dead} state machine from spec.md §4.E.
// Fields are ordered to minimize memory padding.
type ProcessMessage struct {
	normalizer *NormalizeMessage
	checkpoint domain.CheckpointEngine
	executor   domain.RoutineExecutor
	routines   domain.RoutineStore
	messages   domain.MessageStore
	logger     domain.Logger
	repoRoot   string
	runtimeDir string
	maxRetries int
}

// NewProcessMessage wires a ProcessMessage use case. maxRetries is the
// number of dirty (non-clean-slate) attempts per spec.md §9's chosen
// Open Question resolution; one additional clean-slate attempt always
// follows the last dirty one.
func NewProcessMessage(
	normalizer *NormalizeMessage,
	checkpoint domain.CheckpointEngine,
	executor domain.RoutineExecutor,
	routines domain.RoutineStore,
	messages domain.MessageStore,
	logger domain.Logger,
	repoRoot, runtimeDir string,
	maxRetries int,
) *ProcessMessage {
	return &ProcessMessage{
		normalizer: normalizer,
		checkpoint: checkpoint,
		executor:   executor,
		routines:   routines,
		messages:   messages,
		logger:     logger,
		repoRoot:   repoRoot,
		runtimeDir: runtimeDir,
		maxRetries: maxRetries,
	}
}

// Disposition is a message's terminal outcome.
type Disposition string

// Valid dispositions.
const (
	DispositionDone Disposition = "done"
	DispositionDead Disposition = "dead"
)

// ProcessResult is the outcome of processing one message.
type ProcessResult struct {
	Message     *domain.Message
	Disposition Disposition
	RunDir      string
	Reason      string // populated only when Disposition is DispositionDead
}

// attemptRecord is one routine invocation's outcome, kept for the
// failure-context summary written before the final clean-slate attempt.
type attemptRecord struct {
	ExitCode   int
	StderrTail string
	CleanSlate bool
}

// Execute processes msg from Pending through disposition. msg must already
// be loaded (its SourcePath set) but need not be normalized.
func (uc *ProcessMessage) Execute(ctx context.Context, msg *domain.Message) (*ProcessResult, error) {
	// Pending -> Normalized
	normResult, err := uc.normalizer.Execute(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", msg.ID(), err)
	}
	for _, w := range normResult.Warnings {
		uc.logger.Warn(msg.ID(), "normalize", w)
	}

	routine, err := uc.routines.Find(msg.Routine)
	if err != nil {
		reason := fmt.Sprintf("routine %q not found", msg.Routine)
		if derr := uc.messages.MoveToDead(msg, reason); derr != nil {
			return nil, fmt.Errorf("dead-letter %s: %w", msg.ID(), derr)
		}
		return &ProcessResult{Message: msg, Disposition: DispositionDead, Reason: reason}, nil
	}

	if normResult.Changed {
		if err := uc.messages.Rewrite(msg); err != nil {
			return nil, fmt.Errorf("rewrite %s: %w", msg.ID(), err)
		}
	}

	// Normalized -> Checkpointed
	runDir := domain.RunDir(uc.runtimeDir, msg.ID())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	if err := uc.copyMessageInto(msg, runDir); err != nil {
		return nil, fmt.Errorf("copy message into run dir: %w", err)
	}

	original, err := uc.checkpoint.Snapshot(uc.repoRoot)
	if err != nil {
		return nil, fmt.Errorf("snapshot before execution: %w", err)
	}
	if err := writeManifest(domain.ManifestPath(runDir), original); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	rc := domain.RunContext{
		MessageFile: domain.MessageCopyPath(runDir, messageExt(msg)),
		MessageID:   msg.ID(),
		MessageDir:  runDir,
		Chain:       string(msg.Chain),
		Seq:         msg.Seq,
	}
	if msg.Type == domain.MessageTypeSpec {
		rc.SpecFile = msg.InputFile
	}
	bindings := domain.BuildBindings(routine, rc, msg)

	return uc.runAttempts(ctx, msg, routine, runDir, original, bindings)
}

// runAttempts implements Checkpointed -> Executing -> Evaluating and its
// Done/Retrying/Reverting/Dead outcomes.
func (uc *ProcessMessage) runAttempts(
	ctx context.Context,
	msg *domain.Message,
	routine *domain.Routine,
	runDir string,
	original domain.Manifest,
	bindings map[string]string,
) (*ProcessResult, error) {
	var history []attemptRecord
	totalAttempts := uc.maxRetries + 1

	for attempt := 1; attempt <= totalAttempts; attempt++ {
		cleanSlate := attempt == totalAttempts
		if cleanSlate {
			partial, err := uc.checkpoint.Diff(original, uc.repoRoot)
			if err != nil {
				return nil, fmt.Errorf("diff before clean-slate revert: %w", err)
			}
			if err := uc.writePartialDiff(runDir, partial); err != nil {
				return nil, err
			}
			if err := uc.checkpoint.Revert(partial, uc.repoRoot, original); err != nil {
				return nil, fmt.Errorf("%w: revert before clean-slate attempt: %v", domain.ErrIntegrityViolation, err)
			}
			if err := uc.writeFailureContext(runDir, history); err != nil {
				return nil, fmt.Errorf("write failure context: %w", err)
			}
		}

		result, err := uc.executor.Execute(ctx, routine, runDir, bindings)
		if err != nil {
			return nil, fmt.Errorf("execute routine %s (attempt %d): %w", routine.Name, attempt, err)
		}
		history = append(history, attemptRecord{ExitCode: result.ExitCode, StderrTail: result.StderrTail, CleanSlate: cleanSlate})
		uc.logger.Info(msg.ID(), "execute", fmt.Sprintf("attempt %d: exit %d", attempt, result.ExitCode))

		if result.ExitCode == 0 {
			return uc.disposeSuccess(msg, runDir, original)
		}

		if !cleanSlate {
			partial, err := uc.checkpoint.Diff(original, uc.repoRoot)
			if err != nil {
				return nil, fmt.Errorf("diff after failed attempt %d: %w", attempt, err)
			}
			if err := uc.writePartialDiff(runDir, partial); err != nil {
				return nil, err
			}
			continue // Retrying -> Executing
		}

		// Reverting -> Dead: the clean-slate attempt also failed.
		final, err := uc.checkpoint.Diff(original, uc.repoRoot)
		if err != nil {
			return nil, fmt.Errorf("diff after clean-slate attempt: %w", err)
		}
		if err := uc.writePartialDiff(runDir, final); err != nil {
			return nil, err
		}
		if err := uc.checkpoint.Revert(final, uc.repoRoot, original); err != nil {
			return nil, fmt.Errorf("%w: final revert: %v", domain.ErrIntegrityViolation, err)
		}
		reason := fmt.Sprintf("max retries exhausted (%d attempts)", totalAttempts)
		if err := uc.messages.MoveToDead(msg, reason); err != nil {
			return nil, fmt.Errorf("dead-letter %s: %w", msg.ID(), err)
		}
		return &ProcessResult{Message: msg, Disposition: DispositionDead, RunDir: runDir, Reason: reason}, nil
	}

	// Unreachable: the loop always returns by the last (clean-slate) iteration.
	return nil, fmt.Errorf("process %s: exhausted attempts without disposition", msg.ID())
}

func (uc *ProcessMessage) disposeSuccess(msg *domain.Message, runDir string, original domain.Manifest) (*ProcessResult, error) {
	final, err := uc.checkpoint.Diff(original, uc.repoRoot)
	if err != nil {
		return nil, fmt.Errorf("diff after success: %w", err)
	}
	if err := uc.writeChangesDiff(runDir, final); err != nil {
		return nil, err
	}
	if err := uc.messages.MoveToDone(msg); err != nil {
		return nil, fmt.Errorf("move %s to done: %w", msg.ID(), err)
	}
	if msg.Type == domain.MessageTypeSpec && msg.InputFile != "" {
		if err := appendProcessedSpec(uc.repoRoot, msg.InputFile); err != nil {
			return nil, fmt.Errorf("record processed spec: %w", err)
		}
	}
	return &ProcessResult{Message: msg, Disposition: DispositionDone, RunDir: runDir}, nil
}

func (uc *ProcessMessage) writePartialDiff(runDir string, d domain.UnifiedDiff) error {
	return uc.writeChangesDiff(runDir, d)
}

func (uc *ProcessMessage) writeChangesDiff(runDir string, d domain.UnifiedDiff) error {
	d.Sort()
	if err := os.WriteFile(domain.ChangesDiffPath(runDir), []byte(d.String()), 0o644); err != nil { //nolint:gosec // run directory is decree-managed
		return fmt.Errorf("write changes.diff: %w", err)
	}
	return nil
}

func (uc *ProcessMessage) writeFailureContext(runDir string, history []attemptRecord) error {
	var b strings.Builder
	b.WriteString("# Failure context\n\n")
	b.WriteString("Prior attempts before this clean-slate run:\n\n")
	for i, a := range history {
		fmt.Fprintf(&b, "## Attempt %d\n\n", i+1)
		fmt.Fprintf(&b, "- exit code: %d\n", a.ExitCode)
		if a.StderrTail != "" {
			fmt.Fprintf(&b, "- stderr tail:\n\n```\n%s\n```\n\n", a.StderrTail)
		}
	}
	return os.WriteFile(domain.FailureContextPath(runDir), []byte(b.String()), 0o644) //nolint:gosec // run directory is decree-managed
}

func (uc *ProcessMessage) copyMessageInto(msg *domain.Message, runDir string) error {
	content, err := msg.Serialize()
	if err != nil {
		return err
	}
	dest := domain.MessageCopyPath(runDir, messageExt(msg))
	return os.WriteFile(dest, []byte(content), 0o644) //nolint:gosec // run directory is decree-managed
}

func messageExt(msg *domain.Message) string {
	if msg.SourcePath == "" {
		return ".md"
	}
	ext := filepath.Ext(msg.SourcePath)
	if ext == "" {
		return ".md"
	}
	return ext
}

func appendProcessedSpec(repoRoot, inputFile string) error {
	path := domain.ProcessedSpecTrackerPath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec // append-only tracker, single writer per spec
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, filepath.Base(inputFile))
	return err
}
