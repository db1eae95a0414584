package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HTTP_ADDR", "DB_PATH", "SESSION_SECRET", "SESSION_TTL",
		"SECURE_COOKIES", "ADMIN_USERNAME", "ADMIN_PASSWORD", "SHUTDOWN_TIMEOUT",
		"METRICS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "./data/database.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, "admin", cfg.AdminPassword)
	assert.False(t, cfg.SecureCookies)
	assert.Len(t, cfg.SessionSecret, 64, "random secret is generated")
	assert.True(t, cfg.GeneratedSecret)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	// Unset so godotenv may fill them in; t.Setenv restores them afterwards.
	os.Unsetenv("DB_PATH")
	os.Unsetenv("SESSION_TTL")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DB_PATH=/tmp/futsal.db\nSESSION_TTL=2h\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DB_PATH")
		os.Unsetenv("SESSION_TTL")
	})

	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SESSION_SECRET", "fixed")

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/futsal.db", cfg.DBPath)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "fixed", cfg.SessionSecret)
	assert.False(t, cfg.GeneratedSecret)
}

func TestLoadMetricsAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("METRICS_ADDR", "127.0.0.1:9100")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_TTL", "forever")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "SESSION_TTL")
}
