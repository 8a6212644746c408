package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestYAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
session: kitchen
storage:
  driver: ristretto
  cache_bytes: 4096
  ttl: 30m
http:
  addr: ":9090"
  shutdown_timeout: 3s
log:
  level: debug
`)
	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "kitchen", cfg.Session)
	assert.Equal(t, DriverCache, cfg.Storage.Driver)
	assert.Equal(t, int64(4096), cfg.Storage.CacheBytes)
	assert.Equal(t, 30*time.Minute, cfg.Storage.TTL)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "data/taskhub.db", cfg.Storage.SQLitePath, "unset keys keep defaults")
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "session: from-file\n")
	t.Setenv("TASKHUB_SESSION", "from-env")
	t.Setenv("TASKHUB_STORAGE", "memory")
	t.Setenv("TASKHUB_STORAGE_TTL", "1h")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Session)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, time.Hour, cfg.Storage.TTL)
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad yaml", yaml: "session: [\n"},
		{name: "unknown driver", yaml: "storage:\n  driver: redis\n"},
		{name: "bad session", yaml: "session: \"my tab\"\n"},
		{name: "empty sqlite path", yaml: "storage:\n  driver: sqlite\n  sqlite_path: \"\"\n"},
		{name: "bad env duration", env: map[string]string{"TASKHUB_STORAGE_TTL": "soon"}},
		{name: "bad env int", env: map[string]string{"TASKHUB_CACHE_BYTES": "lots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFrom(writeFile(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestValidSession(t *testing.T) {
	assert.True(t, ValidSession("chat-42"))
	assert.True(t, ValidSession("tab_1"))
	assert.False(t, ValidSession(""))
	assert.False(t, ValidSession("a/b"))
}
