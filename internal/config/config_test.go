package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-imagen-client/internal/config"
	"github.com/stretchr/testify/require"
)

const testConfigFile = `
[app]
name = "Studio"
log_level = "DEBUG"

[api]
base_url = "https://api.example.com/"
refresh_path = "/login/refresh"
auth_failure_statuses = [401, 403]
refresh_timeout = "5s"

[storage]
backend = "redis"
redis_db = 3

[notifications]
page_size = 20
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "imagen.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	c := config.New()
	require.Equal(t, "/refresh-token", c.GetRefreshPath())
	require.Equal(t, []int{401}, c.GetAuthFailureStatuses())
	require.Equal(t, 15*time.Second, c.GetRefreshTimeout())
	require.Equal(t, 50, c.GetNotificationsPageSize())
	require.Equal(t, "notifications", c.GetNotificationsTable())
	require.Equal(t, "info", c.GetLogLevel())
}

func TestLoadFile(t *testing.T) {
	c, err := config.Load(writeConfig(t, testConfigFile))
	require.NoError(t, err)

	require.Equal(t, "Studio", c.GetAppName())
	require.Equal(t, "debug", c.GetLogLevel())
	require.Equal(t, "https://api.example.com", c.GetBaseURL())
	require.Equal(t, "/login/refresh", c.GetRefreshPath())
	require.Equal(t, []int{401, 403}, c.GetAuthFailureStatuses())
	require.Equal(t, 5*time.Second, c.GetRefreshTimeout())
	require.Equal(t, "redis", c.GetStorageBackend())
	require.Equal(t, 3, c.GetRedisDB())
	require.Equal(t, 20, c.GetNotificationsPageSize())
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("IMAGEN_REFRESH_PATH", "/auth/refresh")
	t.Setenv("IMAGEN_AUTH_FAILURE_STATUSES", "403")
	t.Setenv("IMAGEN_REDIS_DB", "7")

	c, err := config.Load(writeConfig(t, testConfigFile))
	require.NoError(t, err)
	require.Equal(t, "/auth/refresh", c.GetRefreshPath())
	require.Equal(t, []int{403}, c.GetAuthFailureStatuses())
	require.Equal(t, 7, c.GetRedisDB())
}

func TestLoadMissingFile(t *testing.T) {
	c, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000", c.GetBaseURL())
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := config.Load(writeConfig(t, "[api\nbase_url ="))
	require.Error(t, err)
}
