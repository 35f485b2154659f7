package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/bell-scheduler/internal/config"
	"github.com/oshokin/bell-scheduler/internal/logger"
	"github.com/oshokin/bell-scheduler/internal/service/scheduler"
	"github.com/oshokin/bell-scheduler/internal/version"
)

var (
	// options holds the configuration overrides shared by every subcommand.
	options scheduler.Options

	// rootCmd represents the base command of the bell scheduler.
	rootCmd = &cobra.Command{
		Use:   "bell-scheduler",
		Short: "Ring school bells on schedule.",
		Long: `Plays the configured alarm sounds when their weekday and time come.

Alarms are read from the bell web application's database. Every fired
occurrence is recorded in a ledger file so a bell rings at most once per
minute it is scheduled for, even when the scheduler is invoked several times
within that minute or restarted.

Run "bell-scheduler tick" from cron every minute, or "bell-scheduler run" to
keep a foreground process that ticks on its own.`,
		SilenceUsage: true,
	}
)

// Execute runs the bell-scheduler CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.Execute()

	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup persistent flags with consistent naming and descriptions.
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&options.LedgerFile, "ledger-file", "", "override the ledger file location")
	flags.StringVar(&options.SoundDir, "sound-dir", "", "override the sound directory")
	flags.StringVar(&options.DatabaseDSN, "dsn", "", "override the alarm database DSN")

	rootCmd.AddCommand(tickCmd, runCmd, soundsCmd, alarmsCmd, ledgerCmd)
}
