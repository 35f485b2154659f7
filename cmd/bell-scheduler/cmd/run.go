package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/bell-scheduler/internal/service/scheduler"
)

// runCmd keeps the scheduler in the foreground.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Tick on the configured schedule until stopped.",
	Long: `Runs the scheduler in the foreground and ticks on the cron expression from
the "schedule" setting (every minute by default) until SIGINT or SIGTERM.

When metrics.listen_addr is set, prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		return scheduler.Run(ctx, &options)
	},
}
