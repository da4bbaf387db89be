package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WORK_DIR", "/tmp/krawl")
	t.Setenv("LISTENER_FETCHERS", " OSHWA , ,wikifactory")
	t.Setenv("OSHWA_BATCH_SIZE", "not-a-number")
	t.Setenv("LOG_JSON", "yes")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/tmp/krawl", "krawler.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join("/tmp/krawl", "__fetcher__"), cfg.StateDir())
	assert.Equal(t, []string{"oshwa", "wikifactory"}, cfg.ListenerFetchers)
	assert.Equal(t, 50, cfg.OSHWABatchSize)
	assert.True(t, cfg.LogJSON)
}

func TestRequire(t *testing.T) {
	var cfg Config
	assert.Error(t, cfg.Require("OSHWA_API_TOKEN", "  "))
	assert.NoError(t, cfg.Require("OSHWA_API_TOKEN", "abc"))
}
