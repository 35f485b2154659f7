package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/bell-scheduler/internal/service/scheduler"
)

// tickCmd fires the alarms due at the current minute once.
var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Fire the alarms due now and exit.",
	Long: `Performs a single scheduler tick: every enabled alarm scheduled for the
current weekday and minute that has not fired yet is played and recorded.

Problems with individual alarms, missing sounds or a missing audio player are
logged and never make the command fail. It only exits non-zero when the
configuration or the alarm database cannot be opened.

Intended for a cron entry such as:
  * * * * * bell-scheduler tick -c /etc/bell-scheduler.yaml`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		return scheduler.RunTick(ctx, &options)
	},
}
