package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runoshun/decree/internal/app"
	"github.com/runoshun/decree/internal/domain"
	"github.com/runoshun/decree/internal/usecase"
)

// newRunCommand creates the run command: synthesize one ad-hoc task
// message, enqueue it, and drive it (and its chain) to disposition.
func newRunCommand(c *app.Container) *cobra.Command {
	var routineName string
	var prompt string
	var vars []string

	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run a single ad-hoc task through a routine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c == nil {
				return domain.ErrNotAProject
			}
			extra := map[string]string{}
			for _, kv := range vars {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid -v %q: expected key=value", kv)
				}
				extra[k] = v
			}

			chain, err := c.Minter.Mint()
			if err != nil {
				return fmt.Errorf("mint chain: %w", err)
			}
			msg := &domain.Message{
				Chain:   chain,
				Type:    domain.MessageTypeTask,
				Routine: routineName,
				Extra:   extra,
				Body:    prompt,
			}
			if err := c.Messages.Enqueue(msg); err != nil {
				return fmt.Errorf("enqueue message: %w", err)
			}

			results, err := c.RunPipelineUseCase().ExecuteMessage(cmd.Context(), msg)
			if err != nil {
				return err
			}
			return printResults(cmd, results)
		},
	}

	cmd.Flags().StringVarP(&routineName, "routine", "m", "", "routine name (default: configured default_routine)")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "message body")
	cmd.Flags().StringArrayVarP(&vars, "var", "v", nil, "custom parameter binding key=value (repeatable)")

	return cmd
}

// printResults renders a chain of ProcessResults to stdout, one line per
// message, in the shape `id: disposition[ (reason)]`.
func printResults(cmd *cobra.Command, results []*usecase.ProcessResult) error {
	for _, r := range results {
		if r.Reason != "" {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", r.Message.ID(), r.Disposition, r.Reason)
		} else {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", r.Message.ID(), r.Disposition)
		}
	}
	return nil
}
