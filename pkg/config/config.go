// Package config loads, defaults and validates the daemon
// configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (REGIONFS_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete regionfs daemon configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Region configures the filesystem memory region and its backing file.
	Region RegionConfig `mapstructure:"region" yaml:"region"`

	// Mount configures the FUSE mount.
	Mount MountConfig `mapstructure:"mount" yaml:"mount"`

	// Snapshot selects and configures the snapshot store.
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// RegionConfig describes the memory region holding the filesystem.
type RegionConfig struct {
	// Size is the region size in bytes. The filesystem uses whole
	// 1024-byte blocks; a size that is not a multiple of the block
	// size wastes the tail. Minimum is two blocks.
	Size uint64 `mapstructure:"size" yaml:"size" validate:"required,gte=2048"`

	// BackingFile is the file the region is mapped from. When set, the
	// filesystem persists across mounts: unmapping writes the image
	// back byte-for-byte. When empty the region is anonymous memory
	// and the filesystem is ephemeral.
	BackingFile string `mapstructure:"backing_file" yaml:"backing_file"`
}

// MountConfig configures the FUSE mount.
type MountConfig struct {
	// Mountpoint is the directory the filesystem is mounted on.
	Mountpoint string `mapstructure:"mountpoint" yaml:"mountpoint" validate:"required"`

	// FsName is the filesystem name shown in the mount table.
	FsName string `mapstructure:"fsname" yaml:"fsname"`

	// AllowOther permits other users to access the mount.
	AllowOther bool `mapstructure:"allow_other" yaml:"allow_other"`

	// Debug enables FUSE request logging.
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// SnapshotConfig selects the snapshot store. The Type field determines
// which implementation is used; only the matching type-specific section
// is consulted.
type SnapshotConfig struct {
	// Type specifies the snapshot store implementation.
	// Valid values: none, file, s3.
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=none file s3"`

	// File contains file-store configuration, used when Type = "file".
	File map[string]any `mapstructure:"file" yaml:"file"`

	// S3 contains S3-store configuration, used when Type = "s3".
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// Load loads configuration from file, environment, and defaults.
// An empty configPath, or a path that does not exist, yields the
// defaults (plus any environment overrides).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable support: variables use the
// REGIONFS_ prefix with underscores for nesting, e.g.
// REGIONFS_LOGGING_LEVEL=DEBUG or REGIONFS_REGION_SIZE=1048576.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("REGIONFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
}

// readConfigFile reads the config file when one exists; a missing file
// is not an error — defaults and environment still apply.
func readConfigFile(v *viper.Viper, configPath string) error {
	if configPath == "" {
		return nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	return nil
}
