package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"linewatch/internal/paths"
)

// CurrentVersion is the config schema version written by this build
const CurrentVersion = 1

// Config represents the complete linewatch configuration
type Config struct {
	Version int `json:"version" mapstructure:"version" yaml:"version" toml:"version"`

	Watch     WatchConfig     `json:"watch" mapstructure:"watch" yaml:"watch" toml:"watch"`
	Analyzers AnalyzersConfig `json:"analyzers" mapstructure:"analyzers" yaml:"analyzers" toml:"analyzers"`
	Pipeline  PipelineConfig  `json:"pipeline" mapstructure:"pipeline" yaml:"pipeline" toml:"pipeline"`
	Store     StoreConfig     `json:"store" mapstructure:"store" yaml:"store" toml:"store"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging" yaml:"logging" toml:"logging"`
}

// WatchConfig controls which files are tracked and how events are debounced
type WatchConfig struct {
	Extensions         []string `json:"extensions" mapstructure:"extensions" yaml:"extensions" toml:"extensions"`
	IgnorePatterns     []string `json:"ignorePatterns" mapstructure:"ignorePatterns" yaml:"ignorePatterns" toml:"ignorePatterns"`
	DebounceMs         int      `json:"debounceMs" mapstructure:"debounceMs" yaml:"debounceMs" toml:"debounceMs"`
	SettleMs           int      `json:"settleMs" mapstructure:"settleMs" yaml:"settleMs" toml:"settleMs"`
	SuppressFirstEvent bool     `json:"suppressFirstEvent" mapstructure:"suppressFirstEvent" yaml:"suppressFirstEvent" toml:"suppressFirstEvent"`
}

// AnalyzersConfig selects analyzers and bounds their execution
type AnalyzersConfig struct {
	Enabled          []string       `json:"enabled" mapstructure:"enabled" yaml:"enabled" toml:"enabled"`
	DefaultTimeoutMs int            `json:"defaultTimeoutMs" mapstructure:"defaultTimeoutMs" yaml:"defaultTimeoutMs" toml:"defaultTimeoutMs"`
	TimeoutMs        map[string]int `json:"timeoutMs" mapstructure:"timeoutMs" yaml:"timeoutMs" toml:"timeoutMs"`
	MaxParallel      int            `json:"maxParallel" mapstructure:"maxParallel" yaml:"maxParallel" toml:"maxParallel"`
	DefinitionsFile  string         `json:"definitionsFile" mapstructure:"definitionsFile" yaml:"definitionsFile" toml:"definitionsFile"`
}

// PipelineConfig bounds how many files are analyzed at once
type PipelineConfig struct {
	MaxConcurrentFiles int `json:"maxConcurrentFiles" mapstructure:"maxConcurrentFiles" yaml:"maxConcurrentFiles" toml:"maxConcurrentFiles"`
}

// StoreConfig controls in-memory baseline storage
type StoreConfig struct {
	CompressAboveBytes int `json:"compressAboveBytes" mapstructure:"compressAboveBytes" yaml:"compressAboveBytes" toml:"compressAboveBytes"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level" yaml:"level" toml:"level"`
	File       string `json:"file" mapstructure:"file" yaml:"file" toml:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize" yaml:"maxSize" toml:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups" yaml:"maxBackups" toml:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Watch: WatchConfig{
			Extensions: []string{".py"},
			IgnorePatterns: []string{
				"__pycache__/**",
				".ipynb_checkpoints/**",
				".mypy_cache/**",
				".pytest_cache/**",
				".git/**",
				".venv/**",
				"venv/**",
				".linewatch/**",
				"*.pyc",
			},
			DebounceMs:         1000,
			SettleMs:           500,
			SuppressFirstEvent: runtime.GOOS == "windows",
		},
		Analyzers: AnalyzersConfig{
			Enabled:          []string{"flake8", "pylint", "mypy", "bandit"},
			DefaultTimeoutMs: 30000,
			TimeoutMs: map[string]int{
				"mypy": 60000,
			},
			MaxParallel:     4,
			DefinitionsFile: filepath.Join(paths.ConfigDirName, "analyzers.toml"),
		},
		Pipeline: PipelineConfig{
			MaxConcurrentFiles: 4,
		},
		Store: StoreConfig{
			CompressAboveBytes: 256 * 1024,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// setDefaults registers every key so environment overrides resolve
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("watch.extensions", d.Watch.Extensions)
	v.SetDefault("watch.ignorePatterns", d.Watch.IgnorePatterns)
	v.SetDefault("watch.debounceMs", d.Watch.DebounceMs)
	v.SetDefault("watch.settleMs", d.Watch.SettleMs)
	v.SetDefault("watch.suppressFirstEvent", d.Watch.SuppressFirstEvent)
	v.SetDefault("analyzers.enabled", d.Analyzers.Enabled)
	v.SetDefault("analyzers.defaultTimeoutMs", d.Analyzers.DefaultTimeoutMs)
	v.SetDefault("analyzers.timeoutMs", d.Analyzers.TimeoutMs)
	v.SetDefault("analyzers.maxParallel", d.Analyzers.MaxParallel)
	v.SetDefault("analyzers.definitionsFile", d.Analyzers.DefinitionsFile)
	v.SetDefault("pipeline.maxConcurrentFiles", d.Pipeline.MaxConcurrentFiles)
	v.SetDefault("store.compressAboveBytes", d.Store.CompressAboveBytes)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// LoadConfig loads configuration for a watched root.
// If configFile is empty, <root>/.linewatch/config.{json,yaml,toml} is used when present.
// LINEWATCH_* environment variables override file values (e.g. LINEWATCH_WATCH_DEBOUNCEMS).
func LoadConfig(root, configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("LINEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(paths.ConfigDir(root))
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing default config is fine; a missing explicit one is not
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, &ConfigError{Field: "file", Message: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error()}
	}

	return &cfg, nil
}

// Encode serializes the configuration as json, yaml or toml
func (c *Config) Encode(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return json.MarshalIndent(c, "", "  ")
	case "yaml", "yml":
		return yaml.Marshal(c)
	case "toml":
		return toml.Marshal(c)
	default:
		return nil, &ConfigError{Field: "format", Message: fmt.Sprintf("unsupported format %q", format)}
	}
}

// Save writes the configuration to <root>/.linewatch/config.<format>
func (c *Config) Save(root, format string) (string, error) {
	if format == "" {
		format = "json"
	}
	data, err := c.Encode(format)
	if err != nil {
		return "", err
	}

	dir, err := paths.EnsureConfigDir(root)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(dir, "config."+strings.ToLower(format))
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", err
	}
	return configPath, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if len(c.Watch.Extensions) == 0 {
		return &ConfigError{Field: "watch.extensions", Message: "at least one extension is required"}
	}
	if c.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "watch.debounceMs", Message: "must not be negative"}
	}
	if c.Watch.SettleMs < 0 {
		return &ConfigError{Field: "watch.settleMs", Message: "must not be negative"}
	}
	if c.Analyzers.DefaultTimeoutMs <= 0 {
		return &ConfigError{Field: "analyzers.defaultTimeoutMs", Message: "must be positive"}
	}
	for name, ms := range c.Analyzers.TimeoutMs {
		if ms <= 0 {
			return &ConfigError{Field: "analyzers.timeoutMs." + name, Message: "must be positive"}
		}
	}
	if c.Analyzers.MaxParallel < 1 {
		return &ConfigError{Field: "analyzers.maxParallel", Message: "must be at least 1"}
	}
	if c.Pipeline.MaxConcurrentFiles < 1 {
		return &ConfigError{Field: "pipeline.maxConcurrentFiles", Message: "must be at least 1"}
	}
	if c.Store.CompressAboveBytes < 0 {
		return &ConfigError{Field: "store.compressAboveBytes", Message: "must not be negative"}
	}
	return nil
}

// DebounceWindow is the minimum spacing between two accepted events for a path
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// SettleDelay is the quiet period after the last raw event before a file is read
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Watch.SettleMs) * time.Millisecond
}

// AnalyzerTimeout returns the subprocess timeout for the named analyzer
func (c *Config) AnalyzerTimeout(name string) time.Duration {
	if ms, ok := c.Analyzers.TimeoutMs[name]; ok && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return time.Duration(c.Analyzers.DefaultTimeoutMs) * time.Millisecond
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
