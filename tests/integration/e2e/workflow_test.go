// Package e2e drives the actual commands end to end against a persistent
// store, so every invocation re-opens the store the way real usage does.
package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretctl/cmd/secretctl/commands"
	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/internal/logging"
	"github.com/systmms/secretctl/internal/term"
	"github.com/systmms/secretctl/tests/fakes"
	"github.com/systmms/secretctl/tests/testutil"
)

// runCommand executes one command the way main wires it: fresh Config, the
// command loads it and opens the store itself.
func runCommand(t *testing.T, configPath string, build func(*config.Config) *cobra.Command, args ...string) *fakes.FakePrinter {
	t.Helper()

	printer := fakes.NewFakePrinter()
	cfg := &config.Config{
		Path:    configPath,
		Logger:  logging.New(false, true),
		Printer: printer,
	}

	cmd := build(cfg)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return printer
}

// TestCommandWorkflow walks the secret lifecycle through separate command
// invocations against PostgreSQL, which keeps state between them. Gate:
// SECRETCTL_TEST_PG_HOST.
func TestCommandWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	host := testutil.RequireEnv(t, "SECRETCTL_TEST_PG_HOST")

	configPath := filepath.Join(t.TempDir(), "secretctl.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`version: 1

defaults:
  store: db
  namespace: e2e

stores:
  db:
    type: sql
    engine: postgres
    host: %s
    port: %s
    database: %s
    username: %s
    password: %s
    sslmode: %s
`,
		host,
		testutil.EnvOr("SECRETCTL_TEST_PG_PORT", "5432"),
		testutil.EnvOr("SECRETCTL_TEST_PG_DATABASE", "secretctl_test"),
		testutil.EnvOr("SECRETCTL_TEST_PG_USER", "postgres"),
		testutil.EnvOr("SECRETCTL_TEST_PG_PASSWORD", "postgres"),
		testutil.EnvOr("SECRETCTL_TEST_PG_SSLMODE", "disable"),
	)), 0644))

	t.Cleanup(func() {
		// Leftovers would fail the next run's create
		printer := fakes.NewFakePrinter()
		cfg := &config.Config{Path: configPath, Logger: logging.New(false, true), Printer: printer}
		cmd := commands.NewDeleteCommand(cfg)
		cmd.SetArgs([]string{"creds", "-g", "e2e"})
		_ = cmd.Execute()
	})

	printer := runCommand(t, configPath, commands.NewNamespacesCommand, "init", "e2e")
	assert.Contains(t, printer.Styled(term.StyleInfo), "namespace=e2e ready")

	// Delete is soft, so this clears any leftover state without failing
	runCommand(t, configPath, commands.NewDeleteCommand, "creds", "-g", "e2e")

	printer = runCommand(t, configPath, commands.NewCreateCommand,
		"creds", "USERNAME=admin", "PASSWORD=hunter2", "-g", "e2e")
	assert.Equal(t, []string{"secret=creds created in group=e2e"}, printer.Styled(term.StyleInfo))

	printer = runCommand(t, configPath, commands.NewDisplayCommand, "creds", "-g", "e2e")
	assert.Equal(t, []string{
		"\n-- creds:",
		"-> PASSWORD=hunter2",
		"-> USERNAME=admin",
	}, printer.Styled(term.StylePlain))

	exportPath := filepath.Join(t.TempDir(), "e2e-secrets.yaml")
	runCommand(t, configPath, commands.NewExportCommand, "-o", exportPath)
	exported, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(exported), "name: creds")
	assert.Contains(t, string(exported), "group: e2e")

	printer = runCommand(t, configPath, commands.NewDeleteCommand, "creds", "-g", "e2e")
	assert.Equal(t, []string{"secret=creds in group=e2e deleted from namespace=e2e"}, printer.Styled(term.StyleInfo))

	printer = runCommand(t, configPath, commands.NewImportCommand, "-f", exportPath)
	assert.Equal(t, []string{"secret=creds in group=e2e applied"}, printer.Styled(term.StyleInfo))

	printer = runCommand(t, configPath, commands.NewDisplayCommand, "creds", "-g", "e2e")
	assert.Equal(t, []string{
		"\n-- creds:",
		"-> PASSWORD=hunter2",
		"-> USERNAME=admin",
	}, printer.Styled(term.StylePlain))
}
