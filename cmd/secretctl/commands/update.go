package commands

import (
	"github.com/spf13/cobra"
	"github.com/systmms/secretctl/internal/config"
	dserrors "github.com/systmms/secretctl/internal/errors"
)

func NewUpdateCommand(cfg *config.Config) *cobra.Command {
	var (
		namespace string
		group     string
		fromFile  string
	)

	cmd := &cobra.Command{
		Use:   "update <name> [KEY=VALUE...]",
		Short: "Replace a secret's key-value payload",
		Long: `Replace the entire payload of an existing grouped secret.

The new payload fully replaces the old one; keys absent from the new
payload are dropped. If the namespace or the secret does not exist the
command reports it and changes nothing.

Examples:
  # Rotate a password
  secretctl update db-credentials -n dev -g backend USERNAME=admin PASSWORD=new-password

  # Replace the payload from a file
  secretctl update db-credentials -n dev -g backend --from-file creds.yaml`,
		Args: cobra.MinimumNArgs(1),
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

			data, err := collectData(args[1:], fromFile)
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return dserrors.UserError{
					Message:    "No secret data given",
					Suggestion: "Pass KEY=VALUE arguments or --from-file <file>",
				}
			}

			mgr, store, err := newManager(cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			ctx, cancel := storeContext(cfg)
			defer cancel()

			return mgr.Update(ctx, ns, group, name, data)
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace of the secret")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Secrets group the secret belongs to (required)")
	cmd.Flags().StringVar(&fromFile, "from-file", "", "YAML or JSON file with key: value mappings to merge")

	_ = cmd.MarkFlagRequired("group")

	return cmd
}
