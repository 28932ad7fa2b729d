// Package routerai invokes the configured external router AI collaborator
// to pick a routine for a message that arrived without an explicit routine
// selection.
package routerai

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/runoshun/decree/internal/domain"
)

// Router implements domain.RouterAI by rendering a configured command-line
// template with the message body and candidate list folded into its
// single "{prompt}" substitution site, then running it via a shell.
type Router struct {
	commandTemplate string
}

// New returns a Router driven by commandTemplate (config's commands.router).
func New(commandTemplate string) *Router {
	return &Router{commandTemplate: commandTemplate}
}

var _ domain.RouterAI = (*Router)(nil)

// Route asks the external collaborator to pick one of candidates for body.
// An empty configured template, a run failure, or blank output are all
// reported as errors; the caller (the normalize use case) is responsible
// for falling back rather than treating this as fatal.
func (r *Router) Route(ctx context.Context, body string, candidates []domain.RoutineDescription) (string, error) {
	if r.commandTemplate == "" {
		return "", fmt.Errorf("router: no command configured")
	}

	prompt := buildPrompt(body, candidates)
	rendered, err := domain.RenderCommandTemplate(r.commandTemplate, prompt)
	if err != nil {
		return "", fmt.Errorf("router: render command: %w", err)
	}

	// #nosec G204 - the router command template is operator configuration.
	cmd := exec.CommandContext(ctx, "sh", "-c", rendered)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("router: run command: %w", err)
	}

	answer := strings.TrimSpace(stdout.String())
	if answer == "" {
		return "", fmt.Errorf("router: empty response")
	}
	return answer, nil
}

func buildPrompt(body string, candidates []domain.RoutineDescription) string {
	var b strings.Builder
	b.WriteString("Message:\n")
	b.WriteString(body)
	b.WriteString("\n\nAvailable routines:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Description)
	}
	b.WriteString("\nRespond with exactly one routine name.\n")
	return b.String()
}
