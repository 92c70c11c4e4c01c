package cmd

import (
	"fmt"

	"github.com/mbaxter/joybeat/joycon"
	"github.com/spf13/cobra"
)

var chime bool

func init() {
	devicesCmd.Flags().BoolVar(&chime, "chime", false, "rumble a scale on each controller")
	rootCmd.AddCommand(devicesCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected controllers",
	Long:  `List connected controllers`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listDevices()
	},
}

func listDevices() error {
	manager, err := joycon.NewManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	controllers, err := manager.ConnectAndInitialize()
	if err != nil {
		return err
	}
	if len(controllers) == 0 {
		fmt.Println("No controllers found. Pair them over Bluetooth first.")
		return nil
	}

	for i, c := range controllers {
		info := c.Identity()
		fmt.Printf("%d: %v VID=%04x PID=%04x usage=%04x serial=%v path=%v\n",
			i, c.Type(), info.VendorID, info.ProductID, info.UsagePage, info.Serial, info.Path)
		if chime {
			if err := c.PlayScale(); err != nil {
				fmt.Printf("   chime failed: %v\n", err)
			}
		}
		c.Close()
	}
	return nil
}
