package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretctl/internal/secrets"
	"github.com/systmms/secretctl/internal/term"
	"github.com/systmms/secretctl/tests/fakes"
)

func TestDisplayCommand_NameWithoutGroupGuidance(t *testing.T) {
	// The store type is deliberately invalid: the guidance path must end
	// the command before any store is constructed, so a clean exit here
	// proves no store query happened.
	cfg := writeTestConfig(t, `version: 1

defaults:
  store: broken
  namespace: dev

stores:
  broken:
    type: doesnotexist
`)
	printer := fakes.NewFakePrinter()
	cfg.Printer = printer

	cmd := NewDisplayCommand(cfg)
	cmd.SetArgs([]string{"certs", "-n", "dev"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, []string{secrets.GroupGuidance}, printer.Styled(term.StyleWarn))
}

func TestDisplayCommand_EmptyNamespace(t *testing.T) {
	cfg := writeTestConfig(t, memoryConfig)
	printer := fakes.NewFakePrinter()
	cfg.Printer = printer

	cmd := NewDisplayCommand(cfg)
	cmd.SetArgs([]string{"-n", "dev"})

	require.NoError(t, cmd.Execute())
	assert.Empty(t, printer.Lines)
}

func TestDisplayCommand_MissingNamespaceReported(t *testing.T) {
	cfg := writeTestConfig(t, memoryConfig)
	printer := fakes.NewFakePrinter()
	cfg.Printer = printer

	cmd := NewDisplayCommand(cfg)
	cmd.SetArgs([]string{"-n", "staging"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, []string{"namespace=staging could not be found in the secret store"}, printer.Styled(term.StyleWarn))
}

func TestDisplayCommand_MissingSecretRendered(t *testing.T) {
	cfg := writeTestConfig(t, memoryConfig)
	printer := fakes.NewFakePrinter()
	cfg.Printer = printer

	cmd := NewDisplayCommand(cfg)
	cmd.SetArgs([]string{"certs", "-n", "dev", "-g", "ssl"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, []string{
		"\n-- certs:",
		"cannot find secret=certs in namespace=dev",
	}, printer.Styled(term.StylePlain))
}

func TestDisplayCommand_RejectsInvalidNamespace(t *testing.T) {
	cfg := writeTestConfig(t, memoryConfig)

	cmd := NewDisplayCommand(cfg)
	cmd.SetArgs([]string{"-n", "Not_Valid"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespace")
}
