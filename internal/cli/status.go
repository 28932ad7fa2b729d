package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runoshun/decree/internal/app"
	"github.com/runoshun/decree/internal/domain"
	"github.com/runoshun/decree/internal/usecase/shared"
)

// newStatusCommand creates the status command: a plain counts-based
// summary of the inbox, done, dead, and run directories. The richer
// interactive status view the spec names is an out-of-core utility
// command; this is its minimal contract-level stand-in.
func newStatusCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Summarize pending, done, dead, and run counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c == nil {
				return domain.ErrNotAProject
			}
			runtimeDir := c.Paths.RuntimeDir

			pending, err := c.Messages.ListInbox()
			if err != nil {
				return fmt.Errorf("list inbox: %w", err)
			}
			done := countEntries(domain.InboxDoneDir(runtimeDir))
			dead := countEntries(domain.InboxDeadDir(runtimeDir))
			runs, err := shared.ListRunIDs(runtimeDir)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pending: %d\n", len(pending))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "done:    %d\n", done)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "dead:    %d\n", dead)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "runs:    %d\n", len(runs))
			return nil
		},
	}
}

func countEntries(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}
