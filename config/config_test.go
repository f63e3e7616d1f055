package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10, cfg.MatchThreshold)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.Equal(t, 400, cfg.ThumbnailSize)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"match_threshold: 6\nthumbnail_size: 256\ndatabase_path: /tmp/cat.db\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.MatchThreshold)
	assert.Equal(t, 256, cfg.ThumbnailSize)
	assert.Equal(t, "/tmp/cat.db", cfg.DatabasePath)

	// Unset fields keep their defaults.
	assert.Equal(t, 64, cfg.BatchSize)
}

func TestLoadExplicitZeroThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("match_threshold: 0\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.MatchThreshold, "explicit 0 is a valid threshold, not an absent key")
}

func TestLoadExplicitEmptyDatabasePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`database_path: ""`+"\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.DatabasePath, "explicit empty path turns the catalog off")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("match_threshold: [broken"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsOutOfRangeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("match_threshold: 65\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.BatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MatchThreshold = 0
	assert.NoError(t, cfg.Validate(), "threshold 0 means exact perceptual match only")
}
