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
	for _, k := range []string{
		"STORE_DRIVER", "DATABASE_URL", "REDIS_URL", "SERVER_PORT", "FETCHER_USER_AGENT",
		"FETCHER_TIMEOUT", "UPLOAD_DIR", "MAX_UPLOAD_BYTES", "LOG_LEVEL", "LOG_FORMAT", "REFRESH_WORKER",
	} {
		t.Setenv(k, "")
	}
	// Keep stray .env files in the package dir from leaking in.
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/tv")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, defaultUserAgent, cfg.UserAgent)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.RefreshWorker)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/tv")
	t.Setenv("FETCHER_TIMEOUT", "5s")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("REFRESH_WORKER", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.True(t, cfg.RefreshWorker)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingDatabaseURL)

	t.Setenv("STORE_DRIVER", "memory")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)

	t.Setenv("STORE_DRIVER", "sqlite")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_url: postgres://db/tv
server_port: "9090"
timeout: 10s
log_format: text
refresh_worker: true
`), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/tv", cfg.DatabaseURL)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.RefreshWorker)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("server_port: \"1\"\n"), 0o600))
	_, err = LoadFromFile(empty)
	assert.ErrorIs(t, err, ErrMissingDatabaseURL)
}

func TestApplyEnvFile(t *testing.T) {
	t.Setenv("TVC_A", "")
	t.Setenv("TVC_B", "")
	t.Setenv("TVC_C", "")
	t.Setenv("TVC_KEEP", "original")

	applyEnvFile([]byte(`
# comment
TVC_A=plain # trailing
export TVC_B="quoted # kept"
TVC_C='single'
TVC_KEEP=overwritten
not a pair
`))
	assert.Equal(t, "plain", os.Getenv("TVC_A"))
	assert.Equal(t, "quoted # kept", os.Getenv("TVC_B"))
	assert.Equal(t, "single", os.Getenv("TVC_C"))
	assert.Equal(t, "original", os.Getenv("TVC_KEEP"))
}
