package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/decree/internal/domain"
	"github.com/runoshun/decree/internal/usecase/shared"
)

// RunPipeline drives one message, and then depth-first every pending
// inbox message sharing its chain, through ProcessMessage to disposition.
// Grounded on `usecase/list_tasks.go`'s filter-then-iterate shape, reused
// here for repeatedly re-scanning the inbox rather than a static list.
type RunPipeline struct {
	processor *ProcessMessage
	messages  domain.MessageStore
	maxDepth  int
}

func NewRunPipeline(processor *ProcessMessage, messages domain.MessageStore, maxDepth int) *RunPipeline {
	return &RunPipeline{processor: processor, messages: messages, maxDepth: maxDepth}
}

// ExecuteMessage processes msg to disposition, then keeps pulling the
// lowest-seq pending inbox message sharing msg's chain until the chain is
// exhausted (spec.md §4.E step 9) or a non-Done disposition stops it.
func (uc *RunPipeline) ExecuteMessage(ctx context.Context, msg *domain.Message) ([]*ProcessResult, error) {
	var results []*ProcessResult
	current := msg

	for {
		if current.Seq >= uc.maxDepth {
			reason := fmt.Sprintf("chain depth %d exceeds max_depth %d", current.Seq, uc.maxDepth)
			if err := uc.messages.MoveToDead(current, reason); err != nil {
				return results, fmt.Errorf("dead-letter %s: %w", current.ID(), err)
			}
			results = append(results, &ProcessResult{Message: current, Disposition: DispositionDead, Reason: reason})
			return results, nil
		}

		res, err := uc.processor.Execute(ctx, current)
		if err != nil {
			return results, err
		}
		results = append(results, res)

		if res.Disposition != DispositionDone {
			return results, nil
		}

		next, found, err := uc.nextInChain(current.Chain)
		if err != nil {
			return results, err
		}
		if !found {
			return results, nil
		}
		current, err = uc.messages.Read(next)
		if err != nil {
			return results, err
		}
	}
}

func (uc *RunPipeline) nextInChain(chain domain.ChainID) (string, bool, error) {
	paths, err := uc.messages.ListInbox()
	if err != nil {
		return "", false, err
	}
	return shared.NextInChain(paths, uc.messages, chain)
}
