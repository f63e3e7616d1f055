// Package config holds the application configuration: defaults, the
// optional YAML file overlay and validation. CLI flags are applied on top
// by the caller, so precedence is flags > file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"dupescan/signalhandler"

	"gopkg.in/yaml.v3"
)

// Config is the effective application configuration.
type Config struct {
	// DatabasePath is the SQLite catalog location. Empty disables the
	// catalog entirely (every scan recomputes).
	DatabasePath string

	// ThumbnailCacheDir is the on-disk thumbnail cache root. Empty
	// disables thumbnail caching.
	ThumbnailCacheDir string

	// MatchThreshold is the maximum Hamming distance between perceptual
	// hashes for two images to count as visually similar.
	MatchThreshold int

	// BatchSize bounds how many fingerprints are computed per batch.
	BatchSize int

	// ThumbnailSize is the default bounding box for generated thumbnails.
	ThumbnailSize int

	// Workers is the number of parallel workers for fingerprinting and
	// thumbnail generation.
	Workers int
}

// fileConfig mirrors Config with pointer fields, so an explicit zero in
// the file (match_threshold: 0 means bit-identical hashes only) is
// distinguishable from an absent key.
type fileConfig struct {
	DatabasePath      *string `yaml:"database_path"`
	ThumbnailCacheDir *string `yaml:"thumbnail_cache_dir"`
	MatchThreshold    *int    `yaml:"match_threshold"`
	BatchSize         *int    `yaml:"batch_size"`
	ThumbnailSize     *int    `yaml:"thumbnail_size"`
	Workers           *int    `yaml:"workers"`
}

// Default returns the configuration used when no file or flags override it.
func Default() Config {
	return Config{
		DatabasePath:      DefaultDatabasePath(),
		ThumbnailCacheDir: DefaultThumbnailCacheDir(),
		MatchThreshold:    10,
		BatchSize:         64,
		ThumbnailSize:     400,
		Workers:           signalhandler.GetOptimalProcs(),
	}
}

// DefaultDatabasePath returns the per-user catalog location, or empty if
// no user config directory is available.
func DefaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dupescan", "catalog.db")
}

// DefaultThumbnailCacheDir returns the per-user thumbnail cache root, or
// empty if no user cache directory is available.
func DefaultThumbnailCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dupescan", "thumbnails")
}

// Load reads a YAML configuration file and applies it over the defaults.
// A missing file is not an error when path is empty; an explicitly named
// file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("cannot read config file %s: %v", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("cannot parse config file %s: %v", path, err)
	}
	cfg.apply(file)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %v", path, err)
	}
	return cfg, nil
}

// defaultConfigPath returns the standard config file location, or empty
// when no user config directory is available.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dupescan", "config.yaml")
}

// apply overlays the fields present in file onto cfg. Values are taken
// as-is, including an explicit empty database_path (catalog off) and an
// explicit match_threshold of 0; Validate rejects out-of-range ones
// afterwards.
func (cfg *Config) apply(file fileConfig) {
	if file.DatabasePath != nil {
		cfg.DatabasePath = *file.DatabasePath
	}
	if file.ThumbnailCacheDir != nil {
		cfg.ThumbnailCacheDir = *file.ThumbnailCacheDir
	}
	if file.MatchThreshold != nil {
		cfg.MatchThreshold = *file.MatchThreshold
	}
	if file.BatchSize != nil {
		cfg.BatchSize = *file.BatchSize
	}
	if file.ThumbnailSize != nil {
		cfg.ThumbnailSize = *file.ThumbnailSize
	}
	if file.Workers != nil {
		cfg.Workers = *file.Workers
	}
}

// Validate checks the configuration for out-of-range values.
func (cfg *Config) Validate() error {
	if cfg.MatchThreshold < 0 || cfg.MatchThreshold > 64 {
		return fmt.Errorf("match_threshold must be between 0 and 64, got %d", cfg.MatchThreshold)
	}
	if cfg.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", cfg.BatchSize)
	}
	if cfg.ThumbnailSize < 1 {
		return fmt.Errorf("thumbnail_size must be at least 1, got %d", cfg.ThumbnailSize)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	return nil
}
