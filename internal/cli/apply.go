package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runoshun/decree/internal/app"
	"github.com/runoshun/decree/internal/domain"
)

// newApplyCommand creates the apply command: apply a message or chain's
// recorded diff onto the working tree, reporting conflicts instead of
// mutating anything unless --force is given.
func newApplyCommand(c *app.Container) *cobra.Command {
	var through, since string
	var all, force bool

	cmd := &cobra.Command{
		Use:     "apply [id|chain]",
		Short:   "Apply a message or chain's recorded diff to the working tree",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c == nil {
				return domain.ErrNotAProject
			}
			if !all && len(args) == 0 {
				return fmt.Errorf("require an id/chain argument, or --all")
			}
			var idOrChain string
			if len(args) == 1 {
				idOrChain = args[0]
			}

			result, err := c.ApplyRangeUseCase().Execute(idOrChain, through, since, all, force)
			if err != nil {
				return err
			}

			for _, id := range result.Applied {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", id)
			}
			if result.ConflictReport != nil {
				var b strings.Builder
				fmt.Fprintf(&b, "conflict applying %s:\n", result.ConflictRunID)
				for _, conf := range result.ConflictReport.Conflicts {
					fmt.Fprintf(&b, "  %s: %s\n", conf.Path, conf.Reason)
				}
				_, _ = fmt.Fprint(cmd.ErrOrStderr(), b.String())
				return fmt.Errorf("%w: %s", domain.ErrApplyConflict, result.ConflictRunID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&through, "through", "", "apply up to and including this id/chain")
	cmd.Flags().StringVar(&since, "since", "", "only apply runs strictly after this id/chain")
	cmd.Flags().BoolVar(&all, "all", false, "apply every run across every chain")
	cmd.Flags().BoolVar(&force, "force", false, "apply over conflicts, overwriting local changes")

	return cmd
}
