package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/runoshun/decree/internal/domain"
)

// BatchProcess implements the controller's batch entry mode: every
// unprocessed spec under specs/, in lexicographic filename order,
// synthesized into an ad-hoc inbox message and driven to disposition
// (plus its chain's depth-first continuations) via RunPipeline. A
// dead-lettered spec does not halt the batch; an integrity violation
// does, by simply propagating the error. Grounded on
// `usecase/list_tasks.go`'s filter-then-iterate shape.
type BatchProcess struct {
	pipeline *RunPipeline
	messages domain.MessageStore
	minter   *domain.ChainMinter
	repoRoot string
}

func NewBatchProcess(pipeline *RunPipeline, messages domain.MessageStore, minter *domain.ChainMinter, repoRoot string) *BatchProcess {
	return &BatchProcess{pipeline: pipeline, messages: messages, minter: minter, repoRoot: repoRoot}
}

// BatchResult is the outcome of processing one spec in the batch.
type BatchResult struct {
	SpecFile string
	Results  []*ProcessResult
}

// Execute runs every unprocessed spec in order, returning each one's
// results even when some are dead-lettered. It returns an error (halting
// further specs) only on an integrity violation or other hard failure, or
// domain.ErrNoSpecs when no unprocessed spec exists.
func (uc *BatchProcess) Execute(ctx context.Context) ([]*BatchResult, error) {
	specs, err := uc.unprocessedSpecs()
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, domain.ErrNoSpecs
	}

	var batch []*BatchResult
	for _, specPath := range specs {
		msg, err := uc.synthesize(specPath)
		if err != nil {
			return batch, fmt.Errorf("synthesize message for %s: %w", specPath, err)
		}
		if err := uc.messages.Enqueue(msg); err != nil {
			return batch, fmt.Errorf("enqueue %s: %w", specPath, err)
		}
		results, err := uc.pipeline.ExecuteMessage(ctx, msg)
		if err != nil {
			return batch, err
		}
		batch = append(batch, &BatchResult{SpecFile: filepath.Base(specPath), Results: results})
	}
	return batch, nil
}

// synthesize mints the spec's chain up front (rather than leaving it to
// ProcessMessage's normalization step), matching the daemon's own
// mint-before-enqueue cron firing: Enqueue names the inbox file after
// msg.ID(), so the chain must already be real before the first write.
func (uc *BatchProcess) synthesize(specPath string) (*domain.Message, error) {
	content, err := os.ReadFile(specPath) //nolint:gosec // specPath is enumerated from the repo's own specs directory
	if err != nil {
		return nil, err
	}
	chain, err := uc.minter.Mint()
	if err != nil {
		return nil, fmt.Errorf("mint chain: %w", err)
	}
	return &domain.Message{
		Chain:     chain,
		Seq:       0,
		Type:      domain.MessageTypeSpec,
		InputFile: specPath,
		Body:      string(content),
		Extra:     map[string]string{},
	}, nil
}

// unprocessedSpecs returns every specs/*.spec.md file not already listed
// in the processed-spec tracker, in lexicographic filename order.
func (uc *BatchProcess) unprocessedSpecs() ([]string, error) {
	dir := domain.SpecsDir(uc.repoRoot)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read specs dir: %w", err)
	}

	processed, err := uc.processedSet()
	if err != nil {
		return nil, err
	}

	var specs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), domain.SpecExt) {
			continue
		}
		if _, ok := processed[e.Name()]; ok {
			continue
		}
		specs = append(specs, filepath.Join(dir, e.Name()))
	}
	sort.Strings(specs)
	return specs, nil
}

func (uc *BatchProcess) processedSet() (map[string]struct{}, error) {
	path := domain.ProcessedSpecTrackerPath(uc.repoRoot)
	content, err := os.ReadFile(path) //nolint:gosec // path is the repo's own processed-spec tracker
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("read processed-spec tracker: %w", err)
	}
	set := map[string]struct{}{}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			set[line] = struct{}{}
		}
	}
	return set, nil
}
