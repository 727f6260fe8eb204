package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"courier/internal/protocol/session"
)

// init: generate and store the local identity keys.
func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate and store the local identity keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			id, err := session.NewIdentity()
			if err != nil {
				return err
			}
			if err := wire.Identities.SaveIdentity(passphrase, id); err != nil {
				return err
			}
			fmt.Println("identity created")
			return nil
		},
	}
}
