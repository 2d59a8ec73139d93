package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("BASE_URL", "http://example.com/faultydashboard/")
	t.Setenv("FS_REPORT_URL", "http://example.com/FS_Report/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "station_platform", cfg.Database.Database)
	assert.Equal(t, 20*time.Second, cfg.Sync.RequestTimeout)
	assert.Equal(t, 11, cfg.Sync.Hour)
	assert.Equal(t, 0, cfg.Sync.Minute)
	assert.Equal(t, "Asia/Kolkata", cfg.Sync.Timezone)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestValidate_MissingEndpoints(t *testing.T) {
	t.Setenv("BASE_URL", "")
	t.Setenv("FS_REPORT_URL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BASE_URL")

	cfg.Sync.BaseURL = "http://example.com/"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FS_REPORT_URL")
}

func TestValidate_ScheduleBounds(t *testing.T) {
	t.Setenv("BASE_URL", "http://example.com/")
	t.Setenv("FS_REPORT_URL", "http://example.com/fs/")
	t.Setenv("SYNC_HOUR", "25")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestValidate_BadTimezone(t *testing.T) {
	t.Setenv("BASE_URL", "http://example.com/")
	t.Setenv("FS_REPORT_URL", "http://example.com/fs/")
	t.Setenv("SYNC_TIMEZONE", "Mars/Olympus")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("BASE_URL", "http://example.com/")
	t.Setenv("FS_REPORT_URL", "http://example.com/fs/")
	t.Setenv("SYNC_REQUEST_TIMEOUT", "30s")
	t.Setenv("SYNC_HOUR", "6")
	t.Setenv("SYNC_MINUTE", "30")
	t.Setenv("DB_MAX_OPEN_CONNS", "50")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30*time.Second, cfg.Sync.RequestTimeout)
	assert.Equal(t, 6, cfg.Sync.Hour)
	assert.Equal(t, 30, cfg.Sync.Minute)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
}
