package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/internal/stores"
	"github.com/zalando/go-keyring"
)

func NewLogoutCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout <store>",
		Short: "Remove a stored API token",
		Long: `Delete the keyring token saved by 'secretctl login'.

Examples:
  secretctl logout cluster`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			name := args[0]
			if _, err := cfg.GetStore(name); err != nil {
				return err
			}

			if err := keyring.Delete(stores.KeyringService, name); err != nil {
				if errors.Is(err, keyring.ErrNotFound) {
					cfg.Logger.Info("No stored token for %s", name)
					return nil
				}
				return fmt.Errorf("failed to remove token from keyring: %w", err)
			}

			cfg.Logger.Info("Token removed for %s", name)
			return nil
		},
	}

	return cmd
}
