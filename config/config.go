// Package config loads and saves the engine's on-disk configuration as
// TOML; a human-edited engine config reads better as TOML than JSON.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ShellConfig controls how each terminal's login shell is spawned.
type ShellConfig struct {
	Path          string            `toml:"path"`
	SourceRC      bool              `toml:"source_rc"`
	AdditionalEnv map[string]string `toml:"additional_env"`
}

// CacheBudget bounds the two-level line cache and the glyph atlas.
type CacheBudget struct {
	MaxLayouts               int `toml:"max_layouts"`
	MaxCompositionsPerLayout int `toml:"max_compositions_per_layout"`
	AtlasPageSize            int `toml:"atlas_page_size"`
}

// DefaultCacheBudget returns the stock cache sizes.
func DefaultCacheBudget() CacheBudget {
	return CacheBudget{
		MaxLayouts:               4096,
		MaxCompositionsPerLayout: 16,
		AtlasPageSize:            1024,
	}
}

// Config is the engine-wide configuration persisted to disk.
type Config struct {
	Shell ShellConfig `toml:"shell"`

	FontPath  string      `toml:"font_path"`
	ThemeName string      `toml:"theme_name"`
	Cache     CacheBudget `toml:"cache"`
}

// DefaultConfig returns the configuration used when no file exists yet.
func DefaultConfig() *Config {
	return &Config{
		Shell:     ShellConfig{AdditionalEnv: make(map[string]string)},
		ThemeName: "raven-blue",
		Cache:     DefaultCacheBudget(),
	}
}

// PoolConfig is the pool-creation-time configuration passed across the C
// boundary by the host: font path, default theme, and cache
// budgets, plus the shell settings a host may want to override per pool.
type PoolConfig struct {
	FontPath  string
	ThemeName string
	Cache     CacheBudget
	Shell     ShellConfig
}

// ToPoolConfig extracts the subset of Config a TerminalPool needs.
func (c *Config) ToPoolConfig() PoolConfig {
	return PoolConfig{
		FontPath:  c.FontPath,
		ThemeName: c.ThemeName,
		Cache:     c.Cache,
		Shell:     c.Shell,
	}
}

// GetConfigPath returns the path to the config file.
func GetConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".termengine.toml"
	}
	configDir := filepath.Join(homeDir, ".config", "termengine")
	os.MkdirAll(configDir, 0755)
	return filepath.Join(configDir, "config.toml")
}

// Load loads the configuration from disk, falling back to defaults if no
// file exists yet.
func Load() (*Config, error) {
	configPath := GetConfigPath()
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", configPath, err)
	}
	return cfg, nil
}

// Save writes the configuration to disk as TOML.
func (c *Config) Save() error {
	configPath := GetConfigPath()
	f, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", configPath, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("config: encode %s: %w", configPath, err)
	}
	return nil
}
