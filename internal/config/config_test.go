package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "console", cfg.App.LogFormat)
	assert.Equal(t, "https://www.duapune.com/", cfg.Scraper.BaseURL)
	assert.True(t, cfg.Scraper.Robust)
	assert.True(t, cfg.Scraper.VerifyTLS)
	assert.True(t, cfg.Scraper.Headless)
	assert.Equal(t, 60*time.Second, cfg.Scraper.RequestTimeout)
	assert.Equal(t, 60*time.Second, cfg.Scraper.PageLoadTimeout)
	assert.Equal(t, 5*time.Second, cfg.Scraper.SettleDelay)
	assert.Equal(t, 8, cfg.Scraper.MaxFetchRetries)
	assert.Equal(t, 5, cfg.Scraper.MaxDiscoveryCycles)
	assert.Equal(t, "data", cfg.Output.Dir)
	assert.True(t, cfg.Output.CSV)
	assert.True(t, cfg.Output.IncludeHTML)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCRAPER_ROBUST", "false")
	t.Setenv("SCRAPER_VERIFY_TLS", "false")
	t.Setenv("SCRAPER_SETTLE_DELAY", "2s")
	t.Setenv("SCRAPER_MAX_FETCH_RETRIES", "0")
	t.Setenv("OUTPUT_INCLUDE_HTML", "false")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Scraper.Robust)
	assert.False(t, cfg.Scraper.VerifyTLS)
	assert.Equal(t, 2*time.Second, cfg.Scraper.SettleDelay)
	assert.Zero(t, cfg.Scraper.MaxFetchRetries)
	assert.False(t, cfg.Output.IncludeHTML)
	assert.Equal(t, "json", cfg.App.LogFormat)
}

func TestLoad_FlagsTakePrecedence(t *testing.T) {
	t.Setenv("SCRAPER_HEADLESS", "true")
	t.Setenv("OUTPUT_DIR", "from-env")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--headless=false", "--max-discovery-cycles=2"}))

	cfg, err := LoadWithFlags(fs)
	require.NoError(t, err)

	assert.False(t, cfg.Scraper.Headless)
	assert.Equal(t, 2, cfg.Scraper.MaxDiscoveryCycles)
	assert.Equal(t, "from-env", cfg.Output.Dir)
}

func TestLoad_DatabaseRequiresConnectionDetails(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")

	_, err := Load()

	require.ErrorIs(t, err, errMissingRequiredEnv)
	assert.Contains(t, err.Error(), "DB_NAME, DB_USER")
}

func TestLoad_DatabaseEnabled(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_NAME", "duapune")
	t.Setenv("DB_USER", "scraper")
	t.Setenv("DB_POOL_MAX_CONNS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "5432", cfg.Database.DBPort)
	assert.Equal(t, int32(2), cfg.Database.PoolMaxConns)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("SCRAPER_MAX_FETCH_RETRIES", "-1")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := Load()

	require.ErrorIs(t, err, errInvalidValue)
	assert.Contains(t, err.Error(), "SCRAPER_MAX_FETCH_RETRIES")
	assert.Contains(t, err.Error(), "LOG_FORMAT")
}
