package commands

import (
	"github.com/spf13/cobra"
	"github.com/systmms/secretctl/internal/config"
	dserrors "github.com/systmms/secretctl/internal/errors"
)

func NewApplyCommand(cfg *config.Config) *cobra.Command {
	var (
		namespace string
		group     string
		fromFile  string
	)

	cmd := &cobra.Command{
		Use:   "apply <name> [KEY=VALUE...]",
		Short: "Create or update a secret",
		Long: `Write a grouped secret whether or not it already exists.

Existing secrets are updated, missing ones created. Like create, a
missing namespace is reported and nothing is stored.

Examples:
  # Idempotent write, safe to repeat
  secretctl apply api-token -n dev -g backend TOKEN=abc123`,
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

			return mgr.Apply(ctx, ns, group, name, data)
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace of the secret")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Secrets group the secret belongs to (required)")
	cmd.Flags().StringVar(&fromFile, "from-file", "", "YAML or JSON file with key: value mappings to merge")

	_ = cmd.MarkFlagRequired("group")

	return cmd
}
