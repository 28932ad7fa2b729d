package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runoshun/decree/internal/app"
	"github.com/runoshun/decree/internal/domain"
	"github.com/runoshun/decree/internal/usecase/shared"
)

// newLogCommand creates the log command: print a run's routine.log, or
// decree's own global log when no id is given. The richer interactive log
// viewer the spec names is an out-of-core utility command; this is its
// minimal contract-level stand-in.
func newLogCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "log [id]",
		Short:   "Print a run's log, or decree's own global log",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c == nil {
				return domain.ErrNotAProject
			}
			runtimeDir := c.Paths.RuntimeDir

			if len(args) == 0 {
				return printFile(cmd, domain.GlobalLogPath(runtimeDir))
			}

			scope, err := shared.ResolveScope(runtimeDir, args[0])
			if err != nil {
				return err
			}
			runID := scope[len(scope)-1]
			runDir := domain.RunDir(runtimeDir, runID)
			return printFile(cmd, domain.RoutineLogPath(runDir))
		},
	}
}

func printFile(cmd *cobra.Command, path string) error {
	content, err := os.ReadFile(path) //nolint:gosec // path is derived from the project's own runtime directory
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	_, _ = cmd.OutOrStdout().Write(content)
	return nil
}
