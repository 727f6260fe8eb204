package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"courier/internal/domain"
)

// devices <addr>: list the locally-known device ids for a recipient.
func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices <addr>",
		Short: "List locally-known device ids for a recipient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := wire.Sessions.GetDeviceIDs(domain.Address(args[0]))
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Println("no known devices")
				return nil
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}
