package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/secretctl/internal/config"
	dserrors "github.com/systmms/secretctl/internal/errors"
	"github.com/systmms/secretctl/internal/validation"
	"gopkg.in/yaml.v3"
)

func NewImportCommand(cfg *config.Config) *cobra.Command {
	var (
		file      string
		namespace string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import secrets from an export document",
		Long: `Apply every secret from an export document to a namespace.

Records are applied in document order: existing secrets are updated,
missing ones created, one report line per secret. The target namespace
defaults to the document's namespace field and must already exist.

Examples:
  # Into the document's own namespace
  secretctl import -f dev-secrets.yaml

  # Copy a namespace's secrets into another one
  secretctl import -f dev-secrets.yaml -n staging`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			raw, err := os.ReadFile(file)
			if err != nil {
				return dserrors.UserError{
					Message:    fmt.Sprintf("Cannot read import file '%s'", file),
					Suggestion: "Check the path; 'secretctl export -o <file>' writes importable documents",
					Err:        err,
				}
			}

			var doc exportDocument
			if err := yaml.Unmarshal(raw, &doc); err != nil {
				return dserrors.UserError{
					Message:    fmt.Sprintf("Import file '%s' is not a valid export document", file),
					Suggestion: "Expected YAML with namespace and secrets fields",
					Err:        err,
				}
			}

			target := namespace
			if target == "" {
				target = doc.Namespace
			}
			ns, err := resolveNamespace(cfg, target)
			if err != nil {
				return err
			}
			if err := validation.ResourceName("namespace", ns); err != nil {
				return err
			}

			// Reject a bad document before the first write, not midway
			// through one.
			for _, rec := range doc.Secrets {
				if err := validation.GroupName(rec.Group); err != nil {
					return err
				}
				if err := validation.ResourceName("secret name", rec.Name); err != nil {
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

			ctx := context.Background()
			if err := mgr.RequireNamespace(ctx, ns); err != nil {
				return err
			}

			for _, rec := range doc.Secrets {
				if err := mgr.Apply(ctx, ns, rec.Group, rec.Name, rec.Data); err != nil {
					return err
				}
			}

			cfg.Logger.Info("Imported %d secrets into namespace=%s", len(doc.Secrets), ns)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Export document to import (required)")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Target namespace (default: the document's namespace)")

	_ = cmd.MarkFlagRequired("file")

	return cmd
}
