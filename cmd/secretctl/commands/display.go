package commands

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/internal/secrets"
	"github.com/systmms/secretctl/internal/term"
	"github.com/systmms/secretctl/internal/validation"
)

func NewDisplayCommand(cfg *config.Config) *cobra.Command {
	var (
		namespace string
		group     string
	)

	cmd := &cobra.Command{
		Use:   "display [name]",
		Short: "Display secrets and their key-value payloads",
		Long: `Print the secrets of a namespace with their key-value payloads.

Without arguments every secret in the namespace is printed, optionally
limited to one group with -g. Naming a single secret requires its group
so the store-level name can be composed.

Examples:
  # Everything in the namespace
  secretctl display -n dev

  # One group
  secretctl display -n dev -g backend

  # One secret
  secretctl display db-credentials -n dev -g backend`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			ns, err := resolveNamespace(cfg, namespace)
			if err != nil {
				return err
			}
			if err := validation.ResourceName("namespace", ns); err != nil {
				return err
			}

			name := ""
			if len(args) == 1 {
				name = args[0]
			}

			// The ambiguous name-without-group request is settled here,
			// before any store is opened or queried.
			req, err := secrets.NewDisplayRequest(ns, group, name)
			if err != nil {
				if errors.Is(err, secrets.ErrGroupRequired) {
					printerFor(cfg).Line(term.StyleWarn, "%s", secrets.GroupGuidance)
					return nil
				}
				return err
			}

			if group != "" {
				if err := validation.GroupName(group); err != nil {
					return err
				}
			}
			if name != "" {
				if err := validation.ResourceName("secret name", name); err != nil {
					return err
				}
			}

			mgr, store, err := newManager(cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			ctx, cancel := storeContext(cfg)
			defer cancel()

			return mgr.Display(ctx, req)
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace to display")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Limit output to one secrets group")

	return cmd
}
