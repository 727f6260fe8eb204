package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"courier/internal/domain"
	"courier/internal/outgoing"
)

// send <addr> <message>: encrypt and dispatch a message to one recipient.
func sendCmd() *cobra.Command {
	var (
		timestamp uint64
		trustNew  bool
	)
	cmd := &cobra.Command{
		Use:   "send <addr> <message>",
		Short: "Encrypt and dispatch a message to a recipient",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			addr := domain.Address(args[0])
			plaintext := []byte(args[1])
			if timestamp == 0 {
				timestamp = uint64(time.Now().UnixMilli())
			}

			msg, err := wire.NewOutgoing(passphrase, timestamp, plaintext)
			if err != nil {
				return err
			}

			var failed error
			msg.OnSent(func(entry outgoing.SentEntry) error {
				fmt.Printf("sent to %s at %d\n", entry.Addr, entry.Timestamp)
				return nil
			})
			msg.OnError(func(entry outgoing.ErrorEntry) error {
				failed = entry.Err
				fmt.Printf("failed for %s: %s: %v\n", entry.Addr, entry.Reason, entry.Err)
				return nil
			})
			msg.OnKeyChange(func(ike *outgoing.IdentityKeyError) error {
				if trustNew {
					ike.Accepted = true
					fmt.Printf("accepted new identity key for %s\n", ike.Addr)
					return nil
				}
				fmt.Printf("identity key for %s changed; rerun with --trust-new-identity to accept\n", ike.Addr)
				return nil
			})

			msg.SendToAddr(cmd.Context(), addr)
			return failed
		},
	}
	cmd.Flags().Uint64Var(&timestamp, "timestamp", 0, "send time in unix millis (default now)")
	cmd.Flags().BoolVar(&trustNew, "trust-new-identity", false, "accept a rotated identity key")
	return cmd
}
