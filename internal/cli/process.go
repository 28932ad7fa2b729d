package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/decree/internal/app"
	"github.com/runoshun/decree/internal/domain"
)

// newProcessCommand creates the process command: drive every unprocessed
// spec under specs/ to disposition, in lexicographic filename order.
func newProcessCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "process",
		Short:   "Process every unprocessed spec file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c == nil {
				return domain.ErrNotAProject
			}
			batch, err := c.BatchProcessUseCase().Execute(cmd.Context())
			if err != nil {
				if errors.Is(err, domain.ErrNoSpecs) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no specs to process")
					return nil
				}
				return err
			}
			for _, b := range batch {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", b.SpecFile)
				if err := printResults(cmd, b.Results); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
