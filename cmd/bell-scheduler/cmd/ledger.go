package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/bell-scheduler/internal/service/inspect"
)

var (
	// ledgerCmd groups the fired-occurrence ledger commands.
	ledgerCmd = &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the fired-occurrence ledger.",
	}

	// ledgerShowCmd prints today's fired occurrences.
	ledgerShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the occurrences fired today.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return inspect.RunLedgerShow(cmd.Context(), &options, cmd.OutOrStdout())
		},
	}

	// ledgerClearCmd empties the ledger.
	ledgerClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Forget the occurrences fired today.",
		Long: `Empties the ledger under its lock. Alarms of the current minute will ring
again on the next tick.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return inspect.RunLedgerClear(cmd.Context(), &options, cmd.OutOrStdout())
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	ledgerCmd.AddCommand(ledgerShowCmd, ledgerClearCmd)
}
