package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/decree/internal/app"
	"github.com/runoshun/decree/internal/domain"
)

// newBenchCommand creates the bench command. The benchmark harness itself
// is an explicit spec non-goal; this surfaces the configured model and
// the parameters a real harness would use.
func newBenchCommand(c *app.Container) *cobra.Command {
	var runs, maxTokens, ctxSize int
	var verbose bool

	cmd := &cobra.Command{
		Use:     "bench [prompt]",
		Short:   "Benchmark the embedded LLM session (external collaborator)",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c == nil {
				return domain.ErrNotAProject
			}
			if c.Config.AI.ModelPath == "" {
				return fmt.Errorf("no ai.model_path configured")
			}
			prompt := ""
			if len(args) == 1 {
				prompt = args[0]
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(),
				"bench harness is an external collaborator outside decree's core pipeline (model=%s, runs=%d, max_tokens=%d, ctx=%d, prompt=%q)\n",
				c.Config.AI.ModelPath, runs, maxTokens, ctxSize, prompt)
			_ = verbose
			return nil
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 1, "number of benchmark runs")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "maximum tokens to generate per run")
	cmd.Flags().IntVar(&ctxSize, "ctx", 0, "context window size")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose per-run output")

	return cmd
}
