// Package config loads the wearable-sync configuration: vendor app
// credentials, storage paths, and logging. Precedence is defaults ->
// TOML config file -> environment variables; secrets normally arrive via
// the environment so the config file can be committed without them.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Environment variable names for overrides.
const (
	EnvConfig       = "RIVAFLOW_WEARSYNC_CONFIG"
	EnvClientID     = "RIVAFLOW_VENDOR_CLIENT_ID"
	EnvClientSecret = "RIVAFLOW_VENDOR_CLIENT_SECRET" //nolint:gosec // env var name, not a credential
)

// Default values, layer 0 of the override chain.
const (
	defaultDBFile      = "wearsync.db"
	defaultLogLevel    = "info"
	defaultRedirectURL = "http://localhost:8080/integrations/whoop/callback"
)

// Config is the full configuration tree.
type Config struct {
	Vendor  VendorConfig  `toml:"vendor"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

// VendorConfig identifies the registered OAuth2 application and optionally
// overrides the vendor endpoints (used against staging environments).
type VendorConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
	BaseURL      string `toml:"base_url"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns a Config populated with all default values, used
// both as the TOML decode target (unset fields keep defaults) and as the
// fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Vendor: VendorConfig{
			RedirectURL: defaultRedirectURL,
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
		Logging: LoggingConfig{
			Level: defaultLogLevel,
		},
	}
}

// defaultDBPath places the database under the user config dir, falling back
// to the working directory when that cannot be resolved.
func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return defaultDBFile
	}

	return filepath.Join(dir, "rivaflow-wearsync", defaultDBFile)
}

// Load reads and parses a TOML config file and applies env overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// defaults with env overrides applied. Supports zero-config first runs.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	if path == "" {
		cfg := DefaultConfig()
		applyEnvOverrides(cfg)

		return cfg, nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		applyEnvOverrides(cfg)

		return cfg, nil
	}

	return Load(path)
}

// applyEnvOverrides layers environment variables over the loaded config.
// Env wins over the file so deployments can inject secrets.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvClientID); v != "" {
		cfg.Vendor.ClientID = v
	}

	if v := os.Getenv(EnvClientSecret); v != "" {
		cfg.Vendor.ClientSecret = v
	}
}

// ValidateForVendorCalls checks the fields required before talking to the
// vendor. Commands that only read local state skip this.
func (c *Config) ValidateForVendorCalls() error {
	if c.Vendor.ClientID == "" {
		return fmt.Errorf("config: vendor client_id is required (set %s or the config file)", EnvClientID)
	}

	if c.Vendor.ClientSecret == "" {
		return fmt.Errorf("config: vendor client_secret is required (set %s or the config file)", EnvClientSecret)
	}

	return nil
}
