package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API     APIConfig
	Storage StorageConfig
	UI      UIConfig
}

// APIConfig points the console at the BlueCone backend.
type APIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	OpsBaseURL     string `mapstructure:"ops_base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StorageConfig controls where the token files live.
type StorageConfig struct {
	Dir string `mapstructure:"dir"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DefaultTenantID string `mapstructure:"default_tenant_id"`
	DefaultEnv      string `mapstructure:"default_env"`
	DefaultWindow   string `mapstructure:"default_window"`
}

// Load reads configuration from file and env. Env var overrides use prefix
// BLUECONE_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.ops_base_url", "")
	v.SetDefault("api.timeout_seconds", 30)
	v.SetDefault("storage.dir", "")
	v.SetDefault("ui.default_tenant_id", "default")
	v.SetDefault("ui.default_env", "dev")
	v.SetDefault("ui.default_window", "5m")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("BLUECONE_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "bluecone-console"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("BLUECONE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// config file is optional
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.API.OpsBaseURL == "" {
		c.API.OpsBaseURL = c.API.BaseURL
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if
// needed. Used by the settings view for non-sensitive preferences; tokens
// are stored separately.
func Save(cfg Config) error {
	path := os.Getenv("BLUECONE_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "bluecone-console", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.ops_base_url", cfg.API.OpsBaseURL)
	v.Set("api.timeout_seconds", cfg.API.TimeoutSeconds)
	v.Set("storage.dir", cfg.Storage.Dir)
	v.Set("ui.default_tenant_id", cfg.UI.DefaultTenantID)
	v.Set("ui.default_env", cfg.UI.DefaultEnv)
	v.Set("ui.default_window", cfg.UI.DefaultWindow)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
