package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Discover.MaxPages)
	assert.Equal(t, 2000, cfg.Discover.PageDelayMs)
	assert.Equal(t, 1500, cfg.Discover.RequestDelayMs)
	assert.Equal(t, 5, cfg.Discover.MinNewResults)
	assert.Equal(t, 3, cfg.Enrich.MaxAttempts)
	assert.Equal(t, 1, cfg.Enrich.Concurrency)
	assert.True(t, cfg.Enrich.RewriteDescription)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GOLFDIR_STORE_DRIVER", "sqlite")
	t.Setenv("GOLFDIR_STORE_SQLITE_PATH", "/tmp/test.db")
	t.Setenv("GOLFDIR_DISCOVER_MAX_PAGES", "1")
	t.Setenv("GOLFDIR_GOOGLE_ENVIRONMENT", "staging")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.Store.SQLitePath)
	assert.Equal(t, 1, cfg.Discover.MaxPages)
	assert.Equal(t, "staging", cfg.Google.Environment)
}

func TestActiveKey(t *testing.T) {
	g := GoogleConfig{APIKey: "prod", StagingKey: "stage", Environment: "production"}
	assert.Equal(t, "prod", g.ActiveKey())

	g.Environment = "staging"
	assert.Equal(t, "stage", g.ActiveKey())

	g.StagingKey = ""
	assert.Equal(t, "prod", g.ActiveKey())
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	assert.Error(t, InitLogger(LogConfig{Level: "verbose", Format: "json"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
