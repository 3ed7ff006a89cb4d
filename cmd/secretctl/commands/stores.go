package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/internal/stores"
)

func NewStoresCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "stores",
		Short: "List available store backends",
		Long: `Display information about available secret store backends.

Shows both built-in backend types and configured store entries.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := stores.NewRegistry()

			fmt.Println("Built-in Store Types:")
			fmt.Println("====================")

			supportedTypes := registry.SupportedTypes()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "TYPE\tDESCRIPTION\n")
			_, _ = fmt.Fprintf(w, "----\t-----------\n")

			for _, storeType := range supportedTypes {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", storeType, getStoreDescription(storeType))
			}
			_ = w.Flush()

			// Show configured stores if config is available
			if err := cfg.Load(); err == nil && len(cfg.Definition.Stores) > 0 {
				fmt.Println("\nConfigured Stores:")
				fmt.Println("==================")

				w2 := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintf(w2, "NAME\tTYPE\tSTATUS\n")
				_, _ = fmt.Fprintf(w2, "----\t----\t------\n")

				for _, name := range cfg.StoreNames() {
					entry := cfg.Definition.Stores[name]
					status := "configured"
					if !registry.IsSupported(entry.Type) {
						status = "unsupported"
					}

					_, _ = fmt.Fprintf(w2, "%s\t%s\t%s\n", name, entry.Type, status)
				}
				_ = w2.Flush()
			}

			if verbose {
				fmt.Println("\nStore Details:")
				fmt.Println("==============")
				for _, storeType := range supportedTypes {
					fmt.Printf("\n%s:\n", storeType)
					for _, detail := range getStoreDetails(storeType) {
						fmt.Printf("  • %s\n", detail)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show detailed store information")

	return cmd
}

// getStoreDescription returns a description for a store type
func getStoreDescription(storeType string) string {
	descriptions := map[string]string{
		"memory":             "In-process store for demos and tests",
		"cluster":            "Cluster secret service via its REST API",
		"aws.secretsmanager": "AWS Secrets Manager via SDK",
		"aws.ssm":            "AWS Systems Manager Parameter Store",
		"gcp.secretmanager":  "Google Cloud Secret Manager",
		"azure.keyvault":     "Azure Key Vault",
		"akeyless":           "Akeyless zero-knowledge vault",
		"sql":                "Relational database tables (PostgreSQL, MySQL)",
	}

	if desc, exists := descriptions[storeType]; exists {
		return desc
	}
	return "No description available"
}

// getStoreDetails returns detailed information for a store type
func getStoreDetails(storeType string) []string {
	details := map[string][]string{
		"memory": {
			"Keeps namespaces and secrets in process memory",
			"Seed namespaces with a 'namespaces:' list in the store entry",
			"Nothing survives process exit",
		},
		"cluster": {
			"Talks to the cluster secret API over HTTPS",
			"Bearer token from the OS keyring: 'secretctl login <store>'",
			"Config: url, optionally token, ca_cert, insecure_skip_verify",
			"Namespaces are first-class API resources",
		},
		"aws.secretsmanager": {
			"Uses AWS SDK v2 for direct API access",
			"Credential chain: env vars, profile, assume_role, SSO cache",
			"Config: region, optionally profile, endpoint, assume_role, sso",
			"Namespaces become a <namespace>/ name prefix with a marker secret",
		},
		"aws.ssm": {
			"AWS Systems Manager Parameter Store with SecureString parameters",
			"Same credential chain and config keys as aws.secretsmanager",
			"Namespaces are parameter path hierarchies: /<namespace>/<name>",
		},
		"gcp.secretmanager": {
			"Google Cloud Secret Manager",
			"Application Default Credentials or a service account key file",
			"Config: project_id, optionally credentials_file, impersonate_service_account",
			"Namespaces and groups are recorded as secret labels",
		},
		"azure.keyvault": {
			"Azure Key Vault secrets",
			"DefaultAzureCredential, service principal, or managed identity",
			"Config: vault_url, optionally tenant_id, client_id, client_secret, use_managed_identity",
			"Namespaces and groups are recorded as secret tags",
		},
		"akeyless": {
			"Akeyless vault over its gateway API",
			"Auth methods: api_key, aws_iam, azure_ad, gcp",
			"Config: access_id, auth block, optionally gateway_url, prefix",
			"Namespaces are folder levels below the configured prefix",
		},
		"sql": {
			"Namespaces and secrets tables in a relational database",
			"Engines: postgres, mysql",
			"Config: engine, host, database, username, optionally port, password, sslmode",
			"For self-hosted clusters without a secret manager",
		},
	}

	if detail, exists := details[storeType]; exists {
		return detail
	}
	return []string{"No details available"}
}
