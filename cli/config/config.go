// Package config handles CLI configuration loading and management.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration.
type Config struct {
	DefaultBackend string                   `yaml:"default_backend"`
	Backends       map[string]BackendConfig `yaml:"backends"`
}

// BackendConfig holds per-backend settings.
type BackendConfig struct {
	BaseURL   string `yaml:"base_url,omitempty"`
	APIKeyRef string `yaml:"api_key_ref,omitempty"`
	Model     string `yaml:"model,omitempty"`
}

// DefaultConfigPath returns the default configuration file path for the
// current platform.
// - macOS/Linux: ~/.prism/config.yaml
// - Windows: %USERPROFILE%\.prism\config.yaml
func DefaultConfigPath() string {
	var homeDir string

	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}

	if homeDir == "" {
		// Fallback to current directory
		return "config.yaml"
	}

	return filepath.Join(homeDir, ".prism", "config.yaml")
}

// LoadConfig loads configuration from the specified path.
// If the file doesn't exist, returns an empty config without error.
// Returns an error only if the file exists but cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Backends: make(map[string]BackendConfig),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing config file is not an error
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.Backends == nil {
		cfg.Backends = make(map[string]BackendConfig)
	}

	return cfg, nil
}

// Backend returns the settings for the given backend ID.
// Returns nil if the backend is not configured.
func (c *Config) Backend(id string) *BackendConfig {
	if c.Backends == nil {
		return nil
	}
	if bc, ok := c.Backends[id]; ok {
		return &bc
	}
	return nil
}
