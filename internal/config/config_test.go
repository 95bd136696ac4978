package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfigFile writes TOML content to a temp file and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, defaultRedirectURL, cfg.Vendor.RedirectURL)
	assert.Contains(t, cfg.Storage.DBPath, defaultDBFile)
	assert.Empty(t, cfg.Vendor.ClientID)
}

func TestLoad(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
[vendor]
client_id = "cid-file"
client_secret = "secret-file"
base_url = "http://localhost:9999"

[storage]
db_path = "/tmp/test-wearsync.db"

[logging]
level = "debug"
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "cid-file", cfg.Vendor.ClientID)
		assert.Equal(t, "http://localhost:9999", cfg.Vendor.BaseURL)
		assert.Equal(t, "/tmp/test-wearsync.db", cfg.Storage.DBPath)
		assert.Equal(t, "debug", cfg.Logging.Level)

		// Unset fields keep defaults.
		assert.Equal(t, defaultRedirectURL, cfg.Vendor.RedirectURL)
	})

	t.Run("malformed TOML is an error", func(t *testing.T) {
		path := writeConfigFile(t, `[vendor`)

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("env overrides the file", func(t *testing.T) {
		t.Setenv(EnvClientID, "cid-env")

		path := writeConfigFile(t, `
[vendor]
client_id = "cid-file"
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "cid-env", cfg.Vendor.ClientID)
	})
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		t.Setenv(EnvConfig, "")

		cfg, err := LoadOrDefault("")
		require.NoError(t, err)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
		require.NoError(t, err)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("env var names the config file", func(t *testing.T) {
		path := writeConfigFile(t, `
[logging]
level = "warn"
`)
		t.Setenv(EnvConfig, path)

		cfg, err := LoadOrDefault("")
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("env secrets apply without a file", func(t *testing.T) {
		t.Setenv(EnvConfig, "")
		t.Setenv(EnvClientID, "cid-env")
		t.Setenv(EnvClientSecret, "secret-env")

		cfg, err := LoadOrDefault("")
		require.NoError(t, err)
		assert.Equal(t, "cid-env", cfg.Vendor.ClientID)
		assert.Equal(t, "secret-env", cfg.Vendor.ClientSecret)
	})
}

func TestValidateForVendorCalls(t *testing.T) {
	t.Run("complete credentials pass", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Vendor.ClientID = "cid"
		cfg.Vendor.ClientSecret = "secret"

		assert.NoError(t, cfg.ValidateForVendorCalls())
	})

	t.Run("missing client id fails", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Vendor.ClientSecret = "secret"

		assert.Error(t, cfg.ValidateForVendorCalls())
	})

	t.Run("missing client secret fails", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Vendor.ClientID = "cid"

		assert.Error(t, cfg.ValidateForVendorCalls())
	})
}
