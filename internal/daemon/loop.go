// Package daemon drives decree's periodic poll entry mode: a cron phase
// followed by a depth-first inbox drain, on a fixed interval, until a
// cancellation signal arrives. Grounded on
// usecase/poll_status.go's/poll_task.go's `time.NewTicker` +
// `select { ctx.Done(); timeoutChan; ticker.C }` loop shape, extended
// with a cron phase ahead of each tick's inbox phase.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/runoshun/decree/internal/domain"
	"github.com/runoshun/decree/internal/usecase"
)

// Daemon polls the inbox and cron directory on a fixed interval.
type Daemon struct {
	pipeline *usecase.RunPipeline
	messages domain.MessageStore
	minter   *domain.ChainMinter
	clock    domain.Clock
	logger   domain.Logger
	interval time.Duration
	fired    map[string]struct{}
}

// New returns a Daemon polling every interval.
func New(pipeline *usecase.RunPipeline, messages domain.MessageStore, minter *domain.ChainMinter, clock domain.Clock, logger domain.Logger, interval time.Duration) *Daemon {
	return &Daemon{
		pipeline: pipeline,
		messages: messages,
		minter:   minter,
		clock:    clock,
		logger:   logger,
		interval: interval,
		fired:    map[string]struct{}{},
	}
}

// Run loops until ctx is canceled, interpreting cancellation as a
// graceful-shutdown request: ctx is checked between phases, between cron
// entries, between inbox messages, and while sleeping. Each message is run
// under context.WithoutCancel(ctx), so cancellation never aborts a message
// mid-execution.
func (d *Daemon) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := d.cronPhase(ctx); err != nil {
			return fmt.Errorf("cron phase: %w", err)
		}
		if err := d.inboxPhase(ctx); err != nil {
			return fmt.Errorf("inbox phase: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// cronPhase enumerates cron files, fires any whose schedule matches the
// current minute and hasn't already fired this minute, and synthesizes a
// new chain-root inbox message per firing.
func (d *Daemon) cronPhase(ctx context.Context) error {
	paths, err := d.messages.ListCron()
	if err != nil {
		return err
	}

	now := d.clock.Now()
	for _, path := range paths {
		if ctx.Err() != nil {
			return nil
		}
		entry, err := d.messages.ReadCron(path)
		if err != nil {
			d.logger.Warn("", "cron", fmt.Sprintf("skip %s: %v", path, err))
			continue
		}
		local := now.In(entry.Location())
		if !entry.Schedule.Matches(local) {
			continue
		}
		key := domain.FireKey(path, local)
		if _, already := d.fired[key]; already {
			continue
		}
		d.fired[key] = struct{}{}

		chain, err := d.minter.Mint()
		if err != nil {
			return fmt.Errorf("mint chain for cron fire %s: %w", path, err)
		}
		msg := &domain.Message{
			Chain:   chain,
			Seq:     0,
			Type:    domain.MessageTypeTask,
			Routine: entry.Routine,
			Extra:   entry.Extra,
			Body:    entry.Body,
		}
		if err := d.messages.Enqueue(msg); err != nil {
			return fmt.Errorf("enqueue cron fire %s: %w", path, err)
		}
		d.logger.Info(msg.ID(), "cron", fmt.Sprintf("fired %s", path))
	}
	return nil
}

// inboxPhase drains the inbox with depth-first chain priority: each
// iteration takes the lexicographically-first (i.e. earliest-arrived,
// since chain IDs embed a mint timestamp) pending message and runs it
// and its whole chain to exhaustion before re-scanning for the next.
func (d *Daemon) inboxPhase(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		paths, err := d.messages.ListInbox()
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return nil
		}
		msg, err := d.messages.Read(paths[0])
		if err != nil {
			return err
		}
		if _, err := d.pipeline.ExecuteMessage(context.WithoutCancel(ctx), msg); err != nil {
			return err
		}
	}
}
