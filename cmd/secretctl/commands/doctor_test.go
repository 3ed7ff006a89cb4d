package commands

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedHealthConfig = `version: 1

defaults:
  store: local

stores:
  local:
    type: memory
    namespaces: [dev]
  legacy:
    type: doesnotexist
`

func TestDoctorCommand_HealthyStore(t *testing.T) {
	cfg := writeTestConfig(t, memoryConfig)

	cmd := NewDoctorCommand(cfg)
	output := captureStdout(t, cmd, []string{})

	assert.Contains(t, output, "local")
	assert.Contains(t, output, "✓ healthy")
	assert.Contains(t, output, "Summary: 1/1 stores healthy")
}

func TestDoctorCommand_ReportsBrokenStore(t *testing.T) {
	cfg := writeTestConfig(t, mixedHealthConfig)

	cmd := NewDoctorCommand(cfg)

	// captureStdout insists on success; this run must fail, so the pipe
	// swap is inlined.
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := cmd.Execute()

	_ = w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	output := buf.String()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not healthy")
	assert.Contains(t, output, "✗ error")
	assert.Contains(t, output, "unknown store type")
	assert.Contains(t, output, "Summary: 1/2 stores healthy")
}

func TestDoctorCommand_StoreOverrideLimitsCheck(t *testing.T) {
	cfg := writeTestConfig(t, mixedHealthConfig)
	cfg.StoreOverride = "local"

	cmd := NewDoctorCommand(cfg)
	output := captureStdout(t, cmd, []string{})

	assert.Contains(t, output, "Summary: 1/1 stores healthy")
	assert.NotContains(t, output, "legacy")
}

func TestDoctorCommand_UnknownOverrideFails(t *testing.T) {
	cfg := writeTestConfig(t, memoryConfig)
	cfg.StoreOverride = "nope"

	cmd := NewDoctorCommand(cfg)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not defined")
}
