package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Missing(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "relay.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFrom_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	data := []byte("server: https://relay.example.com\nmodel: opus\nmode: plan\ndebug: true\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "https://relay.example.com", cfg.Server)
	assert.Equal(t, "opus", cfg.Model)
	assert.Equal(t, "plan", cfg.Mode)
	assert.True(t, cfg.Debug)
	// Unset fields keep defaults
	assert.Equal(t, Default().HistoryMaxLines, cfg.HistoryMaxLines)
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "relay.yaml")

	cfg := Default()
	cfg.Model = "haiku"
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"empty server", func(c *Config) { c.Server = "" }, true},
		{"server without scheme", func(c *Config) { c.Server = "localhost:8420" }, true},
		{"negative history cap", func(c *Config) { c.HistoryMaxLines = -1 }, true},
		{"https server", func(c *Config) { c.Server = "https://relay.example.com" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
