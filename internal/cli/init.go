package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runoshun/decree/internal/app"
)

// newInitCommand creates the init command. It builds its own Container via
// app.NewWithoutProject rather than using the one NewRootCommand received,
// since that one (if any) was built before `.decree/` exists.
func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the current directory as a decree project",
		Long: `Initialize creates .decree/{inbox,runs,routines,cron,objects,logs}
and a specs/ directory for spec-driven message sources.

Preconditions: none.
Error conditions: already initialized (reported, not an error).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get current directory: %w", err)
			}
			c, err := app.NewWithoutProject(cwd)
			if err != nil {
				return err
			}
			out, err := c.InitProjectUseCase().Execute()
			if err != nil {
				return err
			}
			if out.AlreadyInitialized {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "already initialized: %s\n", out.RuntimeDir)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "initialized decree project in %s\n", out.RuntimeDir)
			return nil
		},
	}
}
