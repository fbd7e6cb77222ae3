// Package config loads daemon configuration: built-in defaults, then an
// optional YAML file, then IDLETAB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable, e.g. IDLETAB_LOG_LEVEL.
const EnvPrefix = "IDLETAB"

// FileName is the config file name inside the data directory.
const FileName = "config.yaml"

// Host backends.
const (
	HostCDP    = "cdp"
	HostMemory = "memory"
)

// Config holds all daemon configuration. Durations accept Go syntax ("90s",
// "24h") in both YAML and the environment.
type Config struct {
	// General
	DataDir     string `yaml:"data_dir" envconfig:"DATA_DIR"`
	Environment string `yaml:"environment" envconfig:"ENV"`
	LogLevel    string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	// HTTP dashboard and API. Empty HTTPAddr disables it.
	HTTPAddr    string `yaml:"http_addr" envconfig:"HTTP_ADDR"`
	CORSOrigins string `yaml:"cors_origins" envconfig:"CORS_ORIGINS"`

	// Browser
	Host          string `yaml:"host" envconfig:"HOST_BACKEND"`
	CDPControlURL string `yaml:"cdp_control_url" envconfig:"CDP_CONTROL_URL"`
	BrowserBin    string `yaml:"browser_bin" envconfig:"BROWSER_BIN"`
	Headless      bool   `yaml:"headless" envconfig:"HEADLESS"`

	// Schedules
	SweepDelay      time.Duration `yaml:"sweep_delay" envconfig:"SWEEP_DELAY"`
	SweepPeriod     time.Duration `yaml:"sweep_period" envconfig:"SWEEP_PERIOD"`
	SyncPeriod      time.Duration `yaml:"sync_period" envconfig:"SYNC_PERIOD"`
	MinSyncInterval time.Duration `yaml:"min_sync_interval" envconfig:"MIN_SYNC_INTERVAL"`

	// Engine tunables
	CleanupGrace  time.Duration `yaml:"cleanup_grace" envconfig:"CLEANUP_GRACE"`
	RecencyWindow time.Duration `yaml:"recency_window" envconfig:"RECENCY_WINDOW"`
	TestTabCount  int           `yaml:"test_tab_count" envconfig:"TEST_TAB_COUNT"`
}

// Default returns the built-in configuration rooted at dataDir.
func Default(dataDir string) Config {
	return Config{
		DataDir:         dataDir,
		Environment:     "production",
		LogLevel:        "info",
		HTTPAddr:        "127.0.0.1:19017",
		Host:            HostCDP,
		SweepDelay:      time.Minute,
		SweepPeriod:     24 * time.Hour,
		SyncPeriod:      5 * time.Minute,
		MinSyncInterval: time.Minute,
		CleanupGrace:    30 * time.Second,
		RecencyWindow:   5 * time.Minute,
		TestTabCount:    5,
	}
}

// DefaultDataDir returns ~/.idletab.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".idletab"), nil
}

// Path returns the config file path for dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Load builds the configuration for dataDir. A missing config file is not an
// error. Environment variables win over the file.
func Load(dataDir string) (Config, error) {
	cfg := Default(dataDir)
	if err := cfg.mergeFile(Path(dataDir)); err != nil {
		return Config{}, err
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading config from env: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Validate rejects values the daemon cannot run with.
func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	switch c.Host {
	case HostCDP, HostMemory:
	default:
		return fmt.Errorf("host %q: must be %q or %q", c.Host, HostCDP, HostMemory)
	}
	if c.SweepPeriod <= 0 || c.SyncPeriod <= 0 {
		return errors.New("sweep_period and sync_period must be positive")
	}
	if c.SweepDelay < 0 || c.MinSyncInterval < 0 || c.CleanupGrace < 0 || c.RecencyWindow < 0 {
		return errors.New("durations must not be negative")
	}
	if c.TestTabCount < 1 {
		return fmt.Errorf("test_tab_count %d: must be at least 1", c.TestTabCount)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// IsDevelopment reports whether human-readable console logging is wanted.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// YAML renders the effective configuration.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes cfg to the config file, creating the data directory.
func Save(cfg Config) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", cfg.DataDir, err)
	}
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	return os.WriteFile(Path(cfg.DataDir), data, 0o644)
}
