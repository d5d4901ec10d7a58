package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func deviceIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "device-id",
		Short: "Print this device's identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := wireUp.Store.GetOrCreateDeviceID()
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
}
