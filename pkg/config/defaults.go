package config

import "strings"

// Default values applied when the file and environment leave a field
// unset. Zero values are replaced; explicit values are preserved.
const (
	// DefaultRegionSize is 1 MiB: 1024 blocks, of which a handful go
	// to the inode table.
	DefaultRegionSize = 1 << 20

	// DefaultMountpoint is where the filesystem lands when the config
	// names nothing else.
	DefaultMountpoint = "/mnt/regionfs"
)

// ApplyDefaults fills any unspecified configuration fields.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyRegionDefaults(&cfg.Region)
	applyMountDefaults(&cfg.Mount)
	applySnapshotDefaults(&cfg.Snapshot)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
}

func applyRegionDefaults(cfg *RegionConfig) {
	if cfg.Size == 0 {
		cfg.Size = DefaultRegionSize
	}
}

func applyMountDefaults(cfg *MountConfig) {
	if cfg.Mountpoint == "" {
		cfg.Mountpoint = DefaultMountpoint
	}
	if cfg.FsName == "" {
		cfg.FsName = "regionfs"
	}
}

func applySnapshotDefaults(cfg *SnapshotConfig) {
	if cfg.Type == "" {
		cfg.Type = "none"
	}
}
