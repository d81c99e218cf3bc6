package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gorev.yaml")
	content := `
scheduler:
  backend: gocron
  drain_interval: 10s
queue:
  backend: redis
  redis:
    host: localhost
    port: "6379"
server:
  enabled: true
  http:
    port: "9090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendGocron, cfg.Scheduler.Backend)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.DrainInterval)
	assert.Equal(t, BackendRedis, cfg.Queue.Backend)
	assert.Equal(t, "localhost", cfg.Queue.Redis.Host)
	assert.Equal(t, "gorev:", cfg.Queue.Redis.Prefix, "default prefix applies")
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, "9090", cfg.Server.Http.Port)
}

func TestLoad_InvalidBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gorev.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue:\n  backend: kafka\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown queue backend")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, BackendInMemory, cfg.Scheduler.Backend)
	assert.Equal(t, BackendInMemory, cfg.Queue.Backend)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.DrainInterval)
	assert.False(t, cfg.Server.Enabled)
	assert.NoError(t, cfg.Validate())
}
