package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/runoshun/decree/internal/app"
	"github.com/runoshun/decree/internal/domain"
)

// newDaemonCommand creates the daemon command: poll cron entries and the
// inbox on a fixed interval until interrupted.
func newDaemonCommand(c *app.Container) *cobra.Command {
	var intervalSecs int

	cmd := &cobra.Command{
		Use:     "daemon",
		Short:   "Poll cron entries and the inbox until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c == nil {
				return domain.ErrNotAProject
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "daemon started, polling every %ds (ctrl-c to stop)\n", intervalSecs)
			return c.Daemon(intervalSecs).Run(ctx)
		},
	}

	cmd.Flags().IntVar(&intervalSecs, "interval", 60, "poll interval in seconds")
	return cmd
}
