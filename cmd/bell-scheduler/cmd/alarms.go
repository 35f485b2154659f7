package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/bell-scheduler/internal/service/inspect"
)

var (
	// alarmDay restricts the listing to one weekday.
	alarmDay string

	// alarmsCmd groups the alarm database commands.
	alarmsCmd = &cobra.Command{
		Use:   "alarms",
		Short: "Inspect the alarm database.",
	}

	// alarmsListCmd prints the stored alarms.
	alarmsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List alarms, enabled or not.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return inspect.RunAlarms(cmd.Context(), &options, alarmDay, cmd.OutOrStdout())
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	alarmsListCmd.Flags().StringVarP(&alarmDay, "day", "d", "", "only show alarms of this weekday")

	alarmsCmd.AddCommand(alarmsListCmd)
}
