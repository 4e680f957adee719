package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all wellness configuration.
type Config struct {
	// Gateway client
	API APIConfig `yaml:"api"`

	// Reference gateway (wellness serve)
	Server ServerConfig `yaml:"server"`

	// Export destinations and formatting
	Export ExportConfig `yaml:"export"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the gateway client.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout"`
	TokenFile string `yaml:"token_file"`
}

// ServerConfig configures the reference gateway.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	DatabasePath string `yaml:"database_path"` // empty = wellness.db beside the config
	TokenTTL     string `yaml:"token_ttl"` // empty = never expires
}

// ExportConfig configures the export pipeline.
type ExportConfig struct {
	Dir        string `yaml:"dir"`
	DateLayout string `yaml:"date_layout"`
	ChromePath string `yaml:"chrome_path"` // empty = let rod find or download one
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // used by the dashboard, which owns the terminal
}

// Dir is the per-user configuration directory.
func Dir() string {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return ".wellness"
	}
	return filepath.Join(cfg, "wellness")
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dir := Dir()
	exportDir := "."
	if home, err := os.UserHomeDir(); err == nil {
		exportDir = home
	}

	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:5000/api",
			Timeout:   "10s",
			TokenFile: filepath.Join(dir, "token"),
		},
		Server: ServerConfig{
			Addr:     ":5000",
			TokenTTL: "720h",
		},
		Export: ExportConfig{
			Dir:        exportDir,
			DateLayout: "1/2/2006",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dir, "wellness.log"),
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WELLNESS_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("WELLNESS_TOKEN_FILE"); v != "" {
		c.API.TokenFile = v
	}
	if v := os.Getenv("WELLNESS_DB"); v != "" {
		c.Server.DatabasePath = v
	}
	if v := os.Getenv("WELLNESS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("WELLNESS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("WELLNESS_EXPORT_DIR"); v != "" {
		c.Export.Dir = v
	}
}

// GetAPITimeout returns the client timeout, 10s if unset or invalid.
func (c *Config) GetAPITimeout() time.Duration {
	if d, err := time.ParseDuration(c.API.Timeout); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

// GetTokenTTL returns the issued-token lifetime; zero never expires.
func (c *Config) GetTokenTTL() time.Duration {
	d, err := time.ParseDuration(c.Server.TokenTTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Server.TokenTTL != "" {
		if _, err := time.ParseDuration(c.Server.TokenTTL); err != nil {
			return fmt.Errorf("invalid server.token_ttl %q: %w", c.Server.TokenTTL, err)
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	return nil
}
