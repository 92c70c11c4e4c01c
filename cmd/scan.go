package cmd

import (
	"fmt"

	"github.com/mbaxter/joybeat/constants"
	"github.com/mbaxter/joybeat/library"
	"github.com/spf13/cobra"
)

var scanMax int

func init() {
	scanCmd.Flags().IntVar(&scanMax, "max", 0, "stop after this many files (0 = no limit)")
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "List playable MIDI files under a directory",
	Long:  `List playable MIDI files under a directory`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := constants.GetMediaPath()
		if len(args) == 1 {
			root = args[0]
		}
		return scan(root)
	},
}

func scan(root string) error {
	paths := library.ScanDir(root, scanMax)
	if len(paths) == 0 {
		fmt.Printf("No MIDI files under %v\n", root)
		return nil
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	fmt.Printf("%d file(s)\n", len(paths))
	return nil
}
