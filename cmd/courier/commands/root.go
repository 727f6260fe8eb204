package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"courier/internal/app"
)

var (
	home       string
	passphrase string
	serverURL  string
	verbose    bool

	wire *app.Wire
)

// Execute builds the root command and runs it.
func Execute() error {
	root := &cobra.Command{
		Use:   "courier",
		Short: "Outgoing dispatch client for an end-to-end encrypted messenger",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".courier")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			cfg, err := app.Load(home)
			if err != nil {
				return err
			}
			if serverURL != "" {
				cfg.ServerURL = serverURL
			}
			if verbose {
				cfg.Verbose = true
			}

			wire, err = app.NewWire(cfg)
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.courier)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the identity keys")
	root.PersistentFlags().StringVar(&serverURL, "server", "", "message server base URL")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging")

	root.AddCommand(initCmd(), sendCmd(), devicesCmd(), refreshCredsCmd())
	return root.Execute()
}
