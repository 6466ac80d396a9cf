package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, "8080", cfg.ServerPort)
	require.Equal(t, "mysql", cfg.SourceDriver)
	require.Equal(t, "local", cfg.StorageType)
	require.Equal(t, 5, cfg.WorkerCount)
	require.Equal(t, int64(3), cfg.MaxDBConcurrency)
	require.Equal(t, 15*time.Minute, cfg.DefaultTimeout)
	require.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SOURCE_DRIVER", "postgres")
	t.Setenv("WORKER_COUNT", "12")
	t.Setenv("COMPRESSION", "true")
	t.Setenv("DEFAULT_TIMEOUT", "90s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()
	require.Equal(t, "postgres", cfg.SourceDriver)
	require.Equal(t, 12, cfg.WorkerCount)
	require.True(t, cfg.Compression)
	require.Equal(t, 90*time.Second, cfg.DefaultTimeout)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("COMPRESSION", "kinda")
	t.Setenv("DEFAULT_TIMEOUT", "soon")

	cfg := Load()
	require.Equal(t, 5, cfg.WorkerCount)
	require.False(t, cfg.Compression)
	require.Equal(t, 15*time.Minute, cfg.DefaultTimeout)
}
