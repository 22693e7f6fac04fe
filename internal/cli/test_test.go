package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leadScenario = `name: lead
description: "Creates one lead"
flow:
  - request: Create
    parameters:
      Target: { $record: { entity: lead, attributes: { subject: Hello } } }
`

func TestTestCommandPasses(t *testing.T) {
	out, err := execute(t, "", "test", testdata("scenarios"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ create_account\n")
	assert.Contains(t, out, "✓ seeded_accounts\n")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := execute(t, "", "test", testdata("scenarios"), "--filter", "create_*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "seeded_accounts")

	_, err = execute(t, "", "test", testdata("scenarios"), "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandFailures(t *testing.T) {
	out, err := execute(t, "", "test", testdata("failing"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_count")
	assert.Contains(t, out, "2 lead records")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandJSON(t *testing.T) {
	out, err := execute(t, "", "test", testdata("failing"), "--format", "json")
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "wrong_count", resp.Data.Scenarios[0].Name)
	assert.False(t, resp.Data.Scenarios[0].Pass)
}

func TestTestCommandMissingDir(t *testing.T) {
	_, err := execute(t, "", "test", testdata("nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandGoldenUpdateAndMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lead.yaml"), []byte(leadScenario), 0o644))

	out, err := execute(t, "", "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ lead (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "lead.golden"))
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"lead","trace":[{"depth":1,"entity":"lead","id":"00000000-0000-0000-0000-000000000001","message":"Create","outcome":"ok","seq":1}]}`,
		string(golden))

	_, err = execute(t, "", "test", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "lead.golden"), []byte(`{"scenario_name":"lead","trace":[]}`), 0o644))
	out, err = execute(t, "", "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\nsurprise: true\n"), 0o644))

	out, err := execute(t, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to parse YAML")
}
