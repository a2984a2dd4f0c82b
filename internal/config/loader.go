package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Ning0612/drivemirror/internal/domain"
)

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{
		".",
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "drivemirror"))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "drivemirror"))
		paths = append(paths, filepath.Join(homeDir, ".drivemirror"))
	}

	return paths
}

// setDefaults registers default values so a sparse config file still
// yields a complete TransferConfig
func setDefaults(v *viper.Viper) {
	v.SetDefault("transfer.max_workers", DefaultMaxWorkers)
	v.SetDefault("transfer.chunk_size_bytes", DefaultChunkSizeBytes)
	v.SetDefault("transfer.max_retries", DefaultMaxRetries)
	v.SetDefault("transfer.retry_base_delay_seconds", DefaultRetryBaseDelay)
	v.SetDefault("transfer.network_timeout_seconds", DefaultNetworkTimeout)
	v.SetDefault("transfer.adaptive_concurrency", true)
	v.SetDefault("transfer.progress_interval", DefaultProgressInterval)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.max_backups", 5)
}

// Load reads and parses a configuration file.
// If path is empty, searches default locations for config.yaml.
// A missing file is not an error: all transfer settings have defaults
// and root ids may come from flags.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if path != "" {
				return nil, domain.ErrConfigNotFound
			}
			// No config anywhere: run on defaults
		} else if os.IsNotExist(err) {
			return nil, domain.ErrConfigNotFound
		} else {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromString parses configuration from a YAML string
func LoadFromString(yamlContent string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
