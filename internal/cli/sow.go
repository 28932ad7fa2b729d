package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/decree/internal/app"
	"github.com/runoshun/decree/internal/domain"
)

// newSowCommand creates the sow command. Sowing a plan into concrete spec
// files is an interactive utility command the spec names out of core
// scope; the CLI surface still exists, pointing at where it would live.
func newSowCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "sow",
		Short:   "Split the active plan into spec files under specs/ (external collaborator)",
		Hidden:  false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c == nil {
				return domain.ErrNotAProject
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "sow is an interactive utility command outside decree's core pipeline; write spec files directly under specs/.")
			return nil
		},
	}
}
