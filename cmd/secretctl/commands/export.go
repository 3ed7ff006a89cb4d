package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/internal/secrets"
	"github.com/systmms/secretctl/internal/validation"
	"gopkg.in/yaml.v3"
)

// exportDocument is the YAML shape export writes and import reads.
type exportDocument struct {
	Namespace string         `yaml:"namespace"`
	Secrets   []exportRecord `yaml:"secrets"`
}

type exportRecord struct {
	Name  string            `yaml:"name"`
	Group string            `yaml:"group"`
	Data  map[string]string `yaml:"data"`
}

func NewExportCommand(cfg *config.Config) *cobra.Command {
	var (
		namespace string
		group     string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a namespace's secrets as YAML",
		Long: `Write every secret of a namespace as a YAML document.

Records carry their short name, group, and full payload, sorted by
store-level name; 'secretctl import' reads the same shape. Unlike
display, a missing namespace is an error here so pipelines cannot
mistake it for an empty result.

Examples:
  # To stdout
  secretctl export -n dev > dev-secrets.yaml

  # One group, straight to a file
  secretctl export -n dev -g backend -o backend-secrets.yaml`,
		Args: cobra.NoArgs,
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
			if group != "" {
				if err := validation.GroupName(group); err != nil {
					return err
				}
			}

			srv := startMetricsServer(cfg)
			defer stopMetricsServer(srv)

			mgr, store, err := newManager(cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			req := secrets.DisplayAll(ns)
			if group != "" {
				req = secrets.DisplayGroup(ns, group)
			}

			records, err := mgr.Export(context.Background(), req)
			if err != nil {
				return err
			}

			doc := exportDocument{Namespace: ns, Secrets: make([]exportRecord, 0, len(records))}
			for _, rec := range records {
				doc.Secrets = append(doc.Secrets, exportRecord{
					Name:  secrets.ShortName(rec.Group, rec.Name),
					Group: rec.Group,
					Data:  rec.Data,
				})
			}

			out, err := yaml.Marshal(doc)
			if err != nil {
				return fmt.Errorf("failed to encode export: %w", err)
			}

			if output == "" {
				fmt.Print(string(out))
				return nil
			}

			if err := os.WriteFile(output, out, 0600); err != nil {
				return fmt.Errorf("failed to write export file: %w", err)
			}
			cfg.Logger.Info("Exported %d secrets from namespace=%s to %s", len(doc.Secrets), ns, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace to export")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Limit the export to one secrets group")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}
