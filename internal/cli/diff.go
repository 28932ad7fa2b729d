package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/decree/internal/app"
	"github.com/runoshun/decree/internal/domain"
)

// newDiffCommand creates the diff command: render the merged unified diff
// for a message or whole chain, optionally bounded below by --since.
func newDiffCommand(c *app.Container) *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:     "diff <id|chain>",
		Short:   "Show the unified diff for a message or chain",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c == nil {
				return domain.ErrNotAProject
			}
			if len(args) == 0 {
				return fmt.Errorf("diff requires an id or chain argument")
			}
			text, err := c.DiffRangeUseCase().Execute(args[0], since)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "only include runs strictly after this id/chain")
	return cmd
}
