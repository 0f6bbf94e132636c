package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the connection wait and persistence timings
const (
	DefaultPollInitialDelay = time.Second
	DefaultPollInterval     = 500 * time.Millisecond
	DefaultPollAttempts     = 20
	DefaultPersistDelay     = 300 * time.Millisecond
	DefaultModelCacheTTL    = 24 * time.Hour
)

// Config holds global application settings
type Config struct {
	Keybindings      string        `yaml:"keybindings"`
	CachePath        string        `yaml:"cache_path,omitempty"`
	HostSettings     string        `yaml:"host_settings,omitempty"` // Path to the host's settings.json
	HostURL          string        `yaml:"host_url,omitempty"`      // Base URL of the host's status endpoint
	Locale           string        `yaml:"locale,omitempty"`
	LogFile          string        `yaml:"log_file,omitempty"`
	LogLevel         string        `yaml:"log_level,omitempty"`
	PollInitialDelay time.Duration `yaml:"poll_initial_delay"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	PollAttempts     int           `yaml:"poll_attempts"`
	PersistDelay     time.Duration `yaml:"persist_delay"`
	ModelCacheTTL    time.Duration `yaml:"model_cache_ttl"`
}

// Default returns a configuration populated with defaults
func Default() *Config {
	return &Config{
		Keybindings:      "vim",
		Locale:           "und",
		LogLevel:         "info",
		PollInitialDelay: DefaultPollInitialDelay,
		PollInterval:     DefaultPollInterval,
		PollAttempts:     DefaultPollAttempts,
		PersistDelay:     DefaultPersistDelay,
		ModelCacheTTL:    DefaultModelCacheTTL,
	}
}

// Load reads configuration from the given directory
func Load(configDir string) (*Config, error) {
	cfg := Default()

	configPath := filepath.Join(configDir, "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // Return defaults
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Zero or negative timings fall back to defaults
	if cfg.PollInitialDelay < 0 {
		cfg.PollInitialDelay = DefaultPollInitialDelay
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = DefaultPollAttempts
	}
	if cfg.PersistDelay < 0 {
		cfg.PersistDelay = DefaultPersistDelay
	}
	if cfg.ModelCacheTTL <= 0 {
		cfg.ModelCacheTTL = DefaultModelCacheTTL
	}

	return cfg, nil
}

// Save writes configuration to the given directory
func (c *Config) Save(configDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
