package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"skystreak/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "accounts.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[[accounts]]
handle = "alice.bsky.social"
display_name = "Alice"

[[accounts]]
handle = "bob.bsky.social"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	require.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "alice.bsky.social", cfg.Accounts[0].Handle)
	assert.Equal(t, "Alice", cfg.Accounts[0].DisplayName)
	assert.Equal(t, "bob.bsky.social", cfg.Accounts[1].Handle)
	assert.Empty(t, cfg.Accounts[1].DisplayName)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadConfigNoAccounts(t *testing.T) {
	path := writeConfig(t, "")

	_, err := config.LoadConfig(path)
	assert.ErrorContains(t, err, "no accounts")
}

func TestLoadConfigAccountWithoutHandle(t *testing.T) {
	path := writeConfig(t, `
[[accounts]]
display_name = "Nameless"
`)

	_, err := config.LoadConfig(path)
	assert.ErrorContains(t, err, "without handle")
}
