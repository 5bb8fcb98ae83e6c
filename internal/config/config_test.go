package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, []string{".py"}, cfg.Watch.Extensions)
	assert.Equal(t, 1000, cfg.Watch.DebounceMs)
	assert.Equal(t, []string{"flake8", "pylint", "mypy", "bandit"}, cfg.Analyzers.Enabled)
	assert.Contains(t, cfg.Watch.IgnorePatterns, "__pycache__/**")
	assert.Contains(t, cfg.Watch.IgnorePatterns, ".ipynb_checkpoints/**")
	require.NoError(t, cfg.Validate())
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, time.Second, cfg.DebounceWindow())
	assert.Equal(t, 500*time.Millisecond, cfg.SettleDelay())
	assert.Equal(t, 60*time.Second, cfg.AnalyzerTimeout("mypy"))
	assert.Equal(t, 30*time.Second, cfg.AnalyzerTimeout("flake8"))
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig().Watch.DebounceMs, cfg.Watch.DebounceMs)
	assert.Equal(t, DefaultConfig().Analyzers.Enabled, cfg.Analyzers.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigExplicitMissingFileFails(t *testing.T) {
	_, err := LoadConfig(t.TempDir(), filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadConfigFromFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".linewatch")
	require.NoError(t, os.MkdirAll(dir, 0755))

	content := `{
  "version": 1,
  "watch": {"extensions": [".py", ".pyi"], "debounceMs": 250},
  "analyzers": {"enabled": ["flake8"], "maxParallel": 2}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644))

	cfg, err := LoadConfig(root, "")
	require.NoError(t, err)

	assert.Equal(t, []string{".py", ".pyi"}, cfg.Watch.Extensions)
	assert.Equal(t, 250, cfg.Watch.DebounceMs)
	assert.Equal(t, []string{"flake8"}, cfg.Analyzers.Enabled)
	assert.Equal(t, 2, cfg.Analyzers.MaxParallel)
	// Unset keys keep their defaults
	assert.Equal(t, 500, cfg.Watch.SettleMs)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("LINEWATCH_WATCH_DEBOUNCEMS", "42")

	cfg, err := LoadConfig(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Watch.DebounceMs)
}

func TestSaveAndReload(t *testing.T) {
	for _, format := range []string{"json", "yaml", "toml"} {
		t.Run(format, func(t *testing.T) {
			root := t.TempDir()
			cfg := DefaultConfig()
			cfg.Watch.DebounceMs = 1500

			path, err := cfg.Save(root, format)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(root, ".linewatch", "config."+format), path)

			loaded, err := LoadConfig(root, "")
			require.NoError(t, err)
			assert.Equal(t, 1500, loaded.Watch.DebounceMs)
		})
	}
}

func TestEncode(t *testing.T) {
	cfg := DefaultConfig()

	data, err := cfg.Encode("yaml")
	require.NoError(t, err)
	var y map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &y))
	assert.Contains(t, y, "watch")

	data, err = cfg.Encode("toml")
	require.NoError(t, err)
	var tm map[string]interface{}
	require.NoError(t, toml.Unmarshal(data, &tm))
	assert.Contains(t, tm, "analyzers")

	_, err = cfg.Encode("xml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad version", func(c *Config) { c.Version = 99 }, "version"},
		{"no extensions", func(c *Config) { c.Watch.Extensions = nil }, "watch.extensions"},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -1 }, "watch.debounceMs"},
		{"zero timeout", func(c *Config) { c.Analyzers.DefaultTimeoutMs = 0 }, "analyzers.defaultTimeoutMs"},
		{"bad tool timeout", func(c *Config) { c.Analyzers.TimeoutMs["pylint"] = -5 }, "analyzers.timeoutMs.pylint"},
		{"no parallelism", func(c *Config) { c.Analyzers.MaxParallel = 0 }, "analyzers.maxParallel"},
		{"no files", func(c *Config) { c.Pipeline.MaxConcurrentFiles = 0 }, "pipeline.maxConcurrentFiles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
