package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/secretctl/internal/config"
)

const exampleConfig = `version: 1

defaults:
  store: local
  namespace: dev

# Uncomment to expose Prometheus metrics during import/export.
# metrics:
#   enabled: true
#   listen: ":9090"

# Named stores. Keys other than type and timeout_ms are backend-specific.
stores:
  local:
    type: memory
    namespaces: [dev]

  # cluster:
  #   type: cluster
  #   url: https://cluster.example.com
  #   # Token comes from the OS keyring: secretctl login cluster

  # aws:
  #   type: aws.secretsmanager
  #   region: us-east-1

  # params:
  #   type: aws.ssm
  #   region: us-east-1

  # gcp:
  #   type: gcp.secretmanager
  #   project_id: my-project

  # azure:
  #   type: azure.keyvault
  #   vault_url: https://my-vault.vault.azure.net/

  # akeyless:
  #   type: akeyless
  #   access_id: p-12345
  #   auth:
  #     method: api_key
  #     access_key: your-access-key

  # db:
  #   type: sql
  #   engine: postgres
  #   host: db.internal
  #   database: secretctl
  #   username: app
  #   password: hunter2
`

func NewInitCommand(cfg *config.Config) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new secretctl configuration",
		Long:  "Create a secretctl.yaml file with an example store setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Check if the config file already exists
			if _, err := os.Stat(cfg.Path); err == nil && !force {
				return fmt.Errorf("%s already exists. Use --force to overwrite it", cfg.Path)
			}

			// Write the file
			if err := os.WriteFile(cfg.Path, []byte(exampleConfig), 0644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			cfg.Logger.Info("Created %s with an example store setup", cfg.Path)
			cfg.Logger.Info("Next steps:")
			cfg.Logger.Info("  1. Edit %s to configure your stores", cfg.Path)
			cfg.Logger.Info("  2. Run 'secretctl doctor' to verify store connectivity")
			cfg.Logger.Info("  3. Run 'secretctl create <name> -g <group> KEY=VALUE' to store a secret")
			cfg.Logger.Info("  4. Run 'secretctl display' to list what is stored")

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	return cmd
}
