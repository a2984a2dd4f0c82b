package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Ning0612/drivemirror/internal/domain"
)

// Defaults match the tool's established behavior: 8 workers, 8 MiB
// upload chunks, 3 attempts per transfer, 5 minute network timeout.
const (
	DefaultMaxWorkers       = 8
	DefaultChunkSizeBytes   = 8 * 1024 * 1024
	DefaultMaxRetries       = 3
	DefaultRetryBaseDelay   = 1.0
	DefaultNetworkTimeout   = 300
	DefaultProgressInterval = 10
)

// TransferConfig controls the replication engine. Immutable for the
// duration of a run; the scheduler keeps its own effective worker count
// bounded by MaxWorkers.
type TransferConfig struct {
	// SourceRootID is the folder id to mirror from
	SourceRootID string `mapstructure:"source_root_id"`

	// DestRootID is the folder id to mirror into
	DestRootID string `mapstructure:"dest_root_id"`

	// MaxWorkers is the upper bound on concurrent transfers
	MaxWorkers int `mapstructure:"max_workers"`

	// ChunkSizeBytes bounds the media uploader's per-request payload
	ChunkSizeBytes int `mapstructure:"chunk_size_bytes"`

	// MaxRetries is the attempt budget per logical transfer
	// (download+upload count as one unit)
	MaxRetries int `mapstructure:"max_retries"`

	// RetryBaseDelaySeconds scales the backoff table
	RetryBaseDelaySeconds float64 `mapstructure:"retry_base_delay_seconds"`

	// NetworkTimeoutSeconds bounds each network leg of a transfer
	NetworkTimeoutSeconds int `mapstructure:"network_timeout_seconds"`

	// AdaptiveConcurrency enables failure-driven worker scaling
	AdaptiveConcurrency bool `mapstructure:"adaptive_concurrency"`

	// ProgressInterval emits a progress line every N completed files
	ProgressInterval int `mapstructure:"progress_interval"`
}

// NetworkTimeout returns the per-leg timeout as a duration
func (c TransferConfig) NetworkTimeout() time.Duration {
	return time.Duration(c.NetworkTimeoutSeconds) * time.Second
}

// AuthConfig holds OAuth credentials and per-account token paths
type AuthConfig struct {
	ClientID        string `mapstructure:"client_id"`
	ClientSecret    string `mapstructure:"client_secret"`
	SourceTokenPath string `mapstructure:"source_token_path"`
	DestTokenPath   string `mapstructure:"dest_token_path"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Config is the complete configuration for drivemirror
type Config struct {
	Transfer TransferConfig `mapstructure:"transfer"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`

	// DataDir holds run history and the run lock
	DataDir string `mapstructure:"data_dir"`
}

// DefaultTransferConfig returns a TransferConfig with all defaults set
func DefaultTransferConfig() TransferConfig {
	return TransferConfig{
		MaxWorkers:            DefaultMaxWorkers,
		ChunkSizeBytes:        DefaultChunkSizeBytes,
		MaxRetries:            DefaultMaxRetries,
		RetryBaseDelaySeconds: DefaultRetryBaseDelay,
		NetworkTimeoutSeconds: DefaultNetworkTimeout,
		AdaptiveConcurrency:   true,
		ProgressInterval:      DefaultProgressInterval,
	}
}

// Validate checks numeric bounds. Root ids are validated at run start
// because they may arrive from flags after loading.
func (c *Config) Validate() error {
	t := c.Transfer
	if t.MaxWorkers < 1 {
		return fmt.Errorf("%w: max_workers must be >= 1, got %d", domain.ErrConfigInvalid, t.MaxWorkers)
	}
	if t.ChunkSizeBytes <= 0 {
		return fmt.Errorf("%w: chunk_size_bytes must be positive, got %d", domain.ErrConfigInvalid, t.ChunkSizeBytes)
	}
	if t.MaxRetries < 1 {
		return fmt.Errorf("%w: max_retries must be >= 1, got %d", domain.ErrConfigInvalid, t.MaxRetries)
	}
	if t.RetryBaseDelaySeconds <= 0 {
		return fmt.Errorf("%w: retry_base_delay_seconds must be positive, got %v", domain.ErrConfigInvalid, t.RetryBaseDelaySeconds)
	}
	if t.NetworkTimeoutSeconds < 1 {
		return fmt.Errorf("%w: network_timeout_seconds must be >= 1, got %d", domain.ErrConfigInvalid, t.NetworkTimeoutSeconds)
	}
	if t.ProgressInterval < 1 {
		return fmt.Errorf("%w: progress_interval must be >= 1, got %d", domain.ErrConfigInvalid, t.ProgressInterval)
	}
	return nil
}

// GetDataDir returns the configured data directory or the default under
// the user config dir
func (c *Config) GetDataDir() string {
	if c.DataDir != "" {
		return ExpandPath(c.DataDir)
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".drivemirror"
	}
	return filepath.Join(configDir, "drivemirror")
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
