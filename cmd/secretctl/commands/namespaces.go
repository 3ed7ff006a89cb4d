package commands

import (
	"github.com/spf13/cobra"
	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/internal/validation"
)

// NewNamespacesCommand creates the parent 'namespaces' command
func NewNamespacesCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "namespaces",
		Short: "List and bootstrap namespaces",
		Long: `Manage the namespaces the selected store knows about.

Examples:
  secretctl namespaces list
  secretctl namespaces init staging`,
	}

	// Add subcommands
	cmd.AddCommand(
		NewNamespacesListCommand(cfg),
		NewNamespacesInitCommand(cfg),
	)

	return cmd
}

func NewNamespacesListCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List namespaces in the selected store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			mgr, store, err := newManager(cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			ctx, cancel := storeContext(cfg)
			defer cancel()

			return mgr.Namespaces(ctx)
		},
	}

	return cmd
}

func NewNamespacesInitCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <namespace>",
		Short: "Create a namespace if it does not exist",
		Long: `Bootstrap a namespace in the selected store. Safe to repeat.

Examples:
  secretctl namespaces init staging`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			namespace := args[0]
			if err := validation.ResourceName("namespace", namespace); err != nil {
				return err
			}

			mgr, store, err := newManager(cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			ctx, cancel := storeContext(cfg)
			defer cancel()

			return mgr.InitNamespace(ctx, namespace)
		},
	}

	return cmd
}
