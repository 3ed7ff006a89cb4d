package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretctl/internal/term"
	"github.com/systmms/secretctl/tests/fakes"
)

func writeImportFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "import.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestImportCommand_AppliesInDocumentOrder(t *testing.T) {
	cfg := writeTestConfig(t, memoryConfig)
	printer := fakes.NewFakePrinter()
	cfg.Printer = printer

	path := writeImportFile(t, `namespace: dev
secrets:
  - name: certs
    group: ssl
    data:
      CRT: pem
  - name: token
    group: api
    data:
      TOKEN: abc123
`)

	cmd := NewImportCommand(cfg)
	cmd.SetArgs([]string{"-f", path})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, []string{
		"secret=certs in group=ssl applied",
		"secret=token in group=api applied",
	}, printer.Styled(term.StyleInfo))
}

func TestImportCommand_MissingNamespaceFails(t *testing.T) {
	cfg := writeTestConfig(t, memoryConfig)

	path := writeImportFile(t, `namespace: staging
secrets:
  - name: certs
    group: ssl
    data:
      CRT: pem
`)

	cmd := NewImportCommand(cfg)
	cmd.SetArgs([]string{"-f", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not be found")
	assert.Contains(t, err.Error(), "staging")
}

func TestImportCommand_NamespaceFlagOverridesDocument(t *testing.T) {
	cfg := writeTestConfig(t, memoryConfig)

	path := writeImportFile(t, `namespace: dev
secrets: []
`)

	cmd := NewImportCommand(cfg)
	cmd.SetArgs([]string{"-f", path, "-n", "staging"})

	// The document's namespace exists, the flag's does not; the failure
	// shows the flag won.
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staging")
}

func TestImportCommand_RejectsInvalidDocument(t *testing.T) {
	cfg := writeTestConfig(t, memoryConfig)

	path := writeImportFile(t, "secrets: [unterminated\n")

	cmd := NewImportCommand(cfg)
	cmd.SetArgs([]string{"-f", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid export document")
}

func TestImportCommand_ValidatesBeforeWriting(t *testing.T) {
	cfg := writeTestConfig(t, memoryConfig)
	printer := fakes.NewFakePrinter()
	cfg.Printer = printer

	path := writeImportFile(t, `namespace: dev
secrets:
  - name: certs
    group: ssl
    data:
      CRT: pem
  - name: token
    group: bad-group
    data:
      TOKEN: abc123
`)

	cmd := NewImportCommand(cfg)
	cmd.SetArgs([]string{"-f", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hyphens")
	// The valid first record must not have been applied.
	assert.Empty(t, printer.Lines)
}

func TestImportCommand_RequiresFileFlag(t *testing.T) {
	cfg := writeTestConfig(t, memoryConfig)

	cmd := NewImportCommand(cfg)
	cmd.SetArgs([]string{"-n", "dev"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}
