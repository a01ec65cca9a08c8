package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/data/images", cfg.SourceDir)
	assert.Equal(t, 500, cfg.InfoCacheSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SOURCE_DIR", "/srv/images")
	t.Setenv("INFO_CACHE_SIZE", "42")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/srv/images", cfg.SourceDir)
	assert.Equal(t, 42, cfg.InfoCacheSize)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("PORT", "99999")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsZeroCacheSize(t *testing.T) {
	t.Setenv("INFO_CACHE_SIZE", "0")
	_, err := Load()
	assert.Error(t, err)
}
