package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"github.com/systmms/secretctl/cmd/secretctl/commands"
	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := run()
	// Wipe every enclave holding store tokens before exit
	memguard.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile     string
		storeOverride  string
		noColor        bool
		debug          bool
		nonInteractive bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "secretctl",
		Short: "Manage grouped, namespaced secrets across stores",
		Long: `secretctl creates, updates, and displays grouped secret-credential
objects held in your cluster's secret store or a configured cloud backend.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			logger := logging.New(debug, noColor)

			// Update config with parsed values
			cfg.Path = configFile
			cfg.Logger = logger
			cfg.NoColor = noColor
			cfg.StoreOverride = storeOverride
			cfg.NonInteractive = nonInteractive
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().StringVar(&storeOverride, "store", "", "Store entry to use (overrides defaults.store)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Non-interactive mode")

	// Add commands
	rootCmd.AddCommand(
		commands.NewInitCommand(cfg),
		commands.NewCreateCommand(cfg),
		commands.NewUpdateCommand(cfg),
		commands.NewApplyCommand(cfg),
		commands.NewDeleteCommand(cfg),
		commands.NewDisplayCommand(cfg),
		commands.NewExportCommand(cfg),
		commands.NewImportCommand(cfg),
		commands.NewNamespacesCommand(cfg),
		commands.NewStoresCommand(cfg),
		commands.NewDoctorCommand(cfg),
		commands.NewLoginCommand(cfg),
		commands.NewLogoutCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
