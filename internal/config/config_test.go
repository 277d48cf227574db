package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "ece:", cfg.Cache.Prefix)
	assert.Equal(t, 30*time.Second, cfg.Leader.TTL)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, "localhost:6379", cfg.RedisAddress())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "/tmp/plain.db")
	t.Setenv("DATABASE_URL_ACCELERATE", "/tmp/accelerated.db")
	t.Setenv("LOCK_WAIT", "750ms")
	t.Setenv("ADMIN_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/accelerated.db", cfg.Database.URL, "the accelerated url wins")
	assert.Equal(t, 750*time.Millisecond, cfg.Lock.Wait)
	assert.Equal(t, "token", cfg.Admin.Token)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
redis:
  host: cache.internal
  port: 6380
database:
  driver: sqlite
  url: marketplace.db
instance:
  id: api-2
`), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "cache.internal:6380", cfg.RedisAddress())
	assert.Equal(t, "ece:", cfg.Cache.Prefix)
	assert.Equal(t, "Server: 0.0.0.0:7000, Redis: cache.internal:6380, Database: sqlite, Instance: api-2",
		cfg.GetConfigString())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Driver: "postgres", URL: "x"}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Database: DatabaseConfig{Driver: "sqlite"}}
	assert.Error(t, cfg.Validate())
}
