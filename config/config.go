// Package config loads the Relay client configuration from relay.yaml.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhubert/relay-core/paths"
)

// Config holds the client configuration.
type Config struct {
	// Server is the base URL of the assistant backend, e.g. "http://localhost:8420".
	Server string `yaml:"server"`

	// Model is the default model requested for new turns.
	Model string `yaml:"model"`

	// Mode is the default permission mode requested for new turns
	// (e.g. "default", "plan", "accept-edits").
	Mode string `yaml:"mode"`

	// HistoryMaxLines caps persisted transcript size. Zero keeps everything.
	HistoryMaxLines int `yaml:"history_max_lines"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`
}

// Default returns the configuration used when no relay.yaml exists.
func Default() Config {
	return Config{
		Server:          "http://localhost:8420",
		Model:           "sonnet",
		Mode:            "default",
		HistoryMaxLines: 10000,
	}
}

// Load reads the config from the standard location, or returns defaults if no
// config file exists.
func Load() (Config, error) {
	path, err := paths.ConfigFilePath()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from the given path. A missing file yields the
// default configuration, not an error.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the config to the given path, creating parent directories.
func (c Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	server := strings.TrimSpace(c.Server)
	if server == "" {
		return fmt.Errorf("server is required")
	}
	parsed, err := url.Parse(server)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("server must include scheme and host (e.g. http://localhost:8420)")
	}
	if c.HistoryMaxLines < 0 {
		return fmt.Errorf("history_max_lines must not be negative")
	}
	return nil
}
