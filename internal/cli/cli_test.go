package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"orderdesk/internal/cli"
	"orderdesk/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalog = `
restaurants:
  - slug: la-esquina
    name: La Esquina
    settings:
      accepting_orders: true
    categories:
      - name: Empanadas
        products:
          - name: Carne
            price: 850
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "orderdesk.yaml")
	content := "database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "desk.db") + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "orderdesk dev")
	assert.Contains(t, out, "schema 1.1.0")
}

func TestCommandsExist(t *testing.T) {
	for _, args := range [][]string{
		{"serve", "--help"},
		{"sweep", "--help"},
		{"migrate", "up", "--help"},
		{"seed", "--help"},
		{"board", "--help"},
		{"mcp", "serve", "--help"},
	} {
		_, err := run(t, args...)
		assert.NoError(t, err, "%v", args)
	}
}

func TestMigrateCommands(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 0.0.0")

	out, err = run(t, "--config", cfg, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1.1.0")

	out, err = run(t, "--config", cfg, "migrate", "down")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1.0.0")
}

func TestSeedSweepAndBoard(t *testing.T) {
	cfg := writeConfig(t)
	catalogPath := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(catalog), 0o600))

	out, err := run(t, "--config", cfg, "seed", "--file", catalogPath)
	require.NoError(t, err)
	var provisioned service.ProvisionResult
	require.NoError(t, json.Unmarshal([]byte(out), &provisioned))
	assert.Equal(t, service.ProvisionResult{Restaurants: 1, Categories: 1, Products: 1}, provisioned)

	out, err = run(t, "--config", cfg, "sweep")
	require.NoError(t, err)
	var swept service.SweepResult
	require.NoError(t, json.Unmarshal([]byte(out), &swept))
	assert.Equal(t, service.SweepResult{}, swept)

	out, err = run(t, "--config", cfg, "board", "--restaurant", "la-esquina")
	require.NoError(t, err)
	assert.Contains(t, out, "PENDING (0)")

	_, err = run(t, "--config", cfg, "board", "--restaurant", "nadie")
	assert.Error(t, err)
}

func TestSeedRequiresFile(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t), "seed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--file")
}

func TestMissingConfigFlagFile(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "sweep")
	require.Error(t, err)
}
