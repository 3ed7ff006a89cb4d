package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/internal/stores"
)

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check store connectivity and configuration",
		Long: `Verify that configured stores are reachable and authenticated.

This command checks:
- Configuration file validity
- Store construction from each configured entry
- Store authentication and connectivity

Use the global --store flag to limit the check to one entry.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration
			cfg.Logger.Info("Checking secretctl configuration...")
			if err := cfg.Load(); err != nil {
				return err
			}
			cfg.Logger.Info("Configuration loaded successfully")

			names := cfg.StoreNames()
			if cfg.StoreOverride != "" {
				if _, err := cfg.GetStore(cfg.StoreOverride); err != nil {
					return err
				}
				names = []string{cfg.StoreOverride}
			}

			// Check each store
			results := make([]storeHealth, 0, len(names))
			for _, name := range names {
				entry, _ := cfg.GetStore(name)
				health := storeHealth{Name: name, Type: entry.Type}

				store, err := stores.Open(cfg, name)
				if err != nil {
					health.Status = "error"
					health.Message = err.Error()
					results = append(results, health)
					continue
				}

				// Validate store with timeout
				ctx, cancel := context.WithTimeout(context.Background(), cfg.GetStoreTimeout(name))
				err = store.Validate(ctx)
				cancel()
				closeStore(store)

				if err != nil {
					health.Status = "error"
					health.Message = err.Error()
				} else {
					health.Status = "healthy"
					health.Message = "Store is ready"
				}
				results = append(results, health)
			}

			displayHealthResults(results)

			// Summary
			healthy := 0
			for _, result := range results {
				if result.Status == "healthy" {
					healthy++
				}
			}

			fmt.Printf("\nSummary: %d/%d stores healthy\n", healthy, len(results))
			if healthy < len(results) {
				return fmt.Errorf("some stores are not healthy")
			}

			cfg.Logger.Info("All systems operational!")
			return nil
		},
	}

	return cmd
}

// storeHealth is one row of the doctor report
type storeHealth struct {
	Name    string
	Type    string
	Status  string // healthy, error
	Message string
}

// displayHealthResults shows store health in a formatted table
func displayHealthResults(results []storeHealth) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "STORE\tTYPE\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-----\t----\t------\t-------\n")

	for _, result := range results {
		status := result.Status

		// Add status marker
		switch result.Status {
		case "healthy":
			status = "✓ " + status
		case "error":
			status = "✗ " + status
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			result.Name, result.Type, status, result.Message)
	}

	_ = w.Flush()
}
