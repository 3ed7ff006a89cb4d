package commands

import (
	"github.com/spf13/cobra"
	"github.com/systmms/secretctl/internal/config"
)

func NewDeleteCommand(cfg *config.Config) *cobra.Command {
	var (
		namespace string
		group     string
	)

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a secret from a group",
		Long: `Delete a grouped secret from a namespace.

If the namespace or the secret does not exist the command reports it and
deletes nothing.

Examples:
  secretctl delete db-credentials -n dev -g backend`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			ns, err := resolveNamespace(cfg, namespace)
			if err != nil {
				return err
			}

			name := args[0]
			if err := validateSecretCoordinates(ns, group, name); err != nil {
				return err
			}

			mgr, store, err := newManager(cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			ctx, cancel := storeContext(cfg)
			defer cancel()

			return mgr.Delete(ctx, ns, group, name)
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace of the secret")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Secrets group the secret belongs to (required)")

	_ = cmd.MarkFlagRequired("group")

	return cmd
}
