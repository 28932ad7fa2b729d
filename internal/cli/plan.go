package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/runoshun/decree/internal/app"
	"github.com/runoshun/decree/internal/domain"
)

// newPlanCommand creates the plan command. Planning's own interactive
// session logic is an external collaborator (spec non-goal); decree's
// part is rendering the configured command.planning template and handing
// off to it with inherited stdio.
func newPlanCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "plan [template]",
		Short:   "Launch the configured external planning collaborator",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c == nil {
				return domain.ErrNotAProject
			}
			if c.Config.Commands.Planning == "" {
				return fmt.Errorf("no commands.planning configured")
			}
			template := ""
			if len(args) == 1 {
				template = args[0]
			}
			rendered, err := domain.RenderCommandTemplate(c.Config.Commands.Planning, template)
			if err != nil {
				return fmt.Errorf("render planning command: %w", err)
			}
			return runInherited(rendered)
		},
	}
}

// runInherited runs a shell command line with inherited stdio, for
// external-collaborator commands whose own output belongs directly in the
// user's terminal.
func runInherited(commandLine string) error {
	c := exec.Command("sh", "-c", commandLine) //nolint:gosec // commandLine comes from the project's own configured template
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
