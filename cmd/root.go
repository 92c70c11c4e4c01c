package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "joybeat",
	Short: "Play MIDI files through Joy-Con rumble",
	Long:  `Turns a pair of Joy-Cons into haptic transducers: parses a MIDI file, picks its two most playable tracks and renders them as synchronized HD rumble.`,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
