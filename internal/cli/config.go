package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mcoot/archive/internal/factory"
	"github.com/mcoot/archive/internal/storage"
)

// Config holds CLI configuration. Sources apply in order: defaults, the YAML
// file, ARCHIVE_* environment variables, then command-line flags.
type Config struct {
	Storage      string `yaml:"storage"       env:"ARCHIVE_STORAGE"`
	DBPath       string `yaml:"db_path"       env:"ARCHIVE_DB_PATH"`
	RedisURL     string `yaml:"redis_url"     env:"ARCHIVE_REDIS_URL"`
	LogLevel     string `yaml:"log_level"     env:"ARCHIVE_LOG_LEVEL"`
	LogFile      string `yaml:"log_file"      env:"ARCHIVE_LOG_FILE"`
	HistoryLimit int    `yaml:"history_limit" env:"ARCHIVE_HISTORY_LIMIT"`
	Output       string `yaml:"output"        env:"ARCHIVE_OUTPUT"`
	NoColor      bool   `yaml:"no_color"      env:"ARCHIVE_NO_COLOR"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Storage:      factory.StorageTypeSQLite,
		DBPath:       factory.DefaultSQLitePath,
		RedisURL:     "redis://localhost:6379",
		LogLevel:     "info",
		LogFile:      "data/archive.log",
		HistoryLimit: storage.DefaultHistoryLimit,
		Output:       "text",
	}
}

// LoadConfig layers the YAML file at path and the environment over the
// defaults. A missing file is ignored unless required is set.
func LoadConfig(path string, required bool) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
		// No config file is fine
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings that have a fixed set of values
func (c *Config) Validate() error {
	storageTypes := []string{factory.StorageTypeMemory, factory.StorageTypeSQLite, factory.StorageTypeRedis}
	if !slices.Contains(storageTypes, c.Storage) {
		return fmt.Errorf("invalid storage %q: must be one of %v", c.Storage, storageTypes)
	}
	if c.Output != "text" && c.Output != "json" {
		return fmt.Errorf("invalid output %q: must be text or json", c.Output)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history limit must be positive, got %d", c.HistoryLimit)
	}
	return nil
}

func defaultConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".archive/config.yaml"
	}
	return filepath.Join(home, ".archive", "config.yaml")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
