package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/bell-scheduler/internal/service/inspect"
)

var (
	// playSound starts playback after validating the sound.
	playSound bool

	// soundsCmd groups the sound directory commands.
	soundsCmd = &cobra.Command{
		Use:   "sounds",
		Short: "Inspect the sound directory.",
	}

	// soundsListCmd prints the playable files.
	soundsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List playable sound files.",
		Long:  "Lists the mp3, wav and ogg files of the configured sound directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return inspect.RunSounds(cmd.Context(), &options, cmd.OutOrStdout())
		},
	}

	// soundsTestCmd validates one file and optionally plays it.
	soundsTestCmd = &cobra.Command{
		Use:   "test <name>",
		Short: "Validate a sound file and the audio player.",
		Long: `Checks that the named file exists in the sound directory with a supported
format and shows which audio player would be used. With --play the sound is
played the same way a firing alarm plays it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect.RunSoundTest(cmd.Context(), &options, args[0], playSound, cmd.OutOrStdout())
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	soundsTestCmd.Flags().BoolVarP(&playSound, "play", "p", false, "play the sound")

	soundsCmd.AddCommand(soundsListCmd, soundsTestCmd)
}
