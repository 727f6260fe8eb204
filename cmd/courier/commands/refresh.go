package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"courier/internal/creds"
)

// refresh-creds: keep the server credential fresh until interrupted.
func refreshCredsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-creds",
		Short: "Keep the server credential fresh until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r := creds.New(wire.Credentials, wire.Transport, wire.Log)
			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
