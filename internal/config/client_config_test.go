package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-admin/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadClientConfig_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TENANT_ADMIN_SERVER", "")

	cfg, err := config.LoadClientConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", cfg.Server)
	require.Equal(t, config.DefaultRefreshThreshold, cfg.RefreshThreshold)
	require.Equal(t, config.DefaultCheckInterval, cfg.CheckInterval)
	require.Equal(t, "credentials.json", filepath.Base(cfg.CredentialsPath))
}

func TestLoadClientConfig_FromYAML(t *testing.T) {
	t.Setenv("TENANT_ADMIN_SERVER", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server: https://admin.example.com\ncredentials_path: /tmp/creds.json\nrefresh_threshold: 2m\ncheck_interval: 30s\nlog_level: debug\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := config.LoadClientConfig(path)
	require.NoError(t, err)
	require.Equal(t, "https://admin.example.com", cfg.Server)
	require.Equal(t, "/tmp/creds.json", cfg.CredentialsPath)
	require.Equal(t, 2*time.Minute, cfg.RefreshThreshold)
	require.Equal(t, 30*time.Second, cfg.CheckInterval)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadClientConfig_EnvOverridesServer(t *testing.T) {
	t.Setenv("TENANT_ADMIN_SERVER", "http://override:9000")
	cfg, err := config.LoadClientConfig("")
	require.NoError(t, err)
	require.Equal(t, "http://override:9000", cfg.Server)
}

func TestGetDurationEnv(t *testing.T) {
	t.Setenv("TEST_EXPIRY", "90m")
	require.Equal(t, 90*time.Minute, config.GetDurationEnv("TEST_EXPIRY", time.Hour))

	t.Setenv("TEST_EXPIRY", "not-a-duration")
	require.Equal(t, time.Hour, config.GetDurationEnv("TEST_EXPIRY", time.Hour))
}
