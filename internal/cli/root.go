// Package cli provides the command-line interface for decree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/decree/internal/app"
)

// Command group IDs.
const (
	groupSetup    = "setup"
	groupPipeline = "pipeline"
	groupReview   = "review"
	groupAI       = "ai"
)

// NewRootCommand builds decree's command tree. c may be nil (e.g. when the
// current directory is not yet a decree project, or for commands like
// `init`/`help` that don't need a Container); commands that do need one
// report domain.ErrNotAProject themselves when c is nil.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:     "decree",
		Short:   "Spec-driven AI orchestration pipeline",
		Version: version,
		Long: `decree turns spec files and ad-hoc tasks into AI-routine runs:
normalize a message, checkpoint the tree, execute a routine, retry or
revert on failure, and record the result as a reviewable diff.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if c == nil || cmd.Name() == "init" {
				return nil
			}
			if _, err := c.ConfigLoader.Load(); err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not reload configuration: %v\n", err)
			}
			return nil
		},
	}

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupPipeline, Title: "Pipeline Commands:"},
		&cobra.Group{ID: groupReview, Title: "Review Commands:"},
		&cobra.Group{ID: groupAI, Title: "External Collaborator Commands:"},
	)

	initCmd := newInitCommand()
	initCmd.GroupID = groupSetup

	runCmd := newRunCommand(c)
	runCmd.GroupID = groupPipeline

	processCmd := newProcessCommand(c)
	processCmd.GroupID = groupPipeline

	daemonCmd := newDaemonCommand(c)
	daemonCmd.GroupID = groupPipeline

	diffCmd := newDiffCommand(c)
	diffCmd.GroupID = groupReview

	applyCmd := newApplyCommand(c)
	applyCmd.GroupID = groupReview

	statusCmd := newStatusCommand(c)
	statusCmd.GroupID = groupReview

	logCmd := newLogCommand(c)
	logCmd.GroupID = groupReview

	planCmd := newPlanCommand(c)
	planCmd.GroupID = groupAI

	sowCmd := newSowCommand(c)
	sowCmd.GroupID = groupAI

	aiCmd := newAICommand(c)
	aiCmd.GroupID = groupAI

	benchCmd := newBenchCommand(c)
	benchCmd.GroupID = groupAI

	root.AddCommand(
		initCmd,
		runCmd,
		processCmd,
		daemonCmd,
		diffCmd,
		applyCmd,
		statusCmd,
		logCmd,
		planCmd,
		sowCmd,
		aiCmd,
		benchCmd,
	)

	return root
}
