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
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("APP_SERVER_MODE", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 2*time.Second, cfg.Directory.DecryptDelay)
	assert.Equal(t, 3*time.Second, cfg.Directory.ErrorStatusTTL)
	assert.Equal(t, 30*time.Second, cfg.Directory.RefreshInterval)
	assert.InDelta(t, 0.3, cfg.Access.NFTThreshold, 1e-9)
	assert.InDelta(t, 0.5, cfg.Access.TokenThreshold, 1e-9)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	yaml := []byte(`
server:
  port: 9090
  mode: debug
store:
  backend: redis
redis:
  addr: "redis:6379"
directory:
  decrypt_delay: 500ms
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("APP_REDIS_ADDR", "cache:6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 500*time.Millisecond, cfg.Directory.DecryptDelay)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server: ServerConfig{Mode: "debug"},
			Store:  StoreConfig{Backend: "memory"},
			Access: AccessConfig{NFTThreshold: 0.3, TokenThreshold: 0.5},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Store.Backend = "ipfs"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Store.Backend = "sql"
	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Access.NFTThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Server.Mode = "release"
	assert.Error(t, cfg.Validate())
	cfg.JWT.Secret = "s3cret"
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("FHE_DOTENV_A=local\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FHE_DOTENV_A=base\nFHE_DOTENV_B=base\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("FHE_DOTENV_A")
		_ = os.Unsetenv("FHE_DOTENV_B")
	})

	loaded := loadDotEnv(dir)
	assert.Len(t, loaded, 2)
	assert.Equal(t, "local", os.Getenv("FHE_DOTENV_A"))
	assert.Equal(t, "base", os.Getenv("FHE_DOTENV_B"))

	assert.Empty(t, loadDotEnv(t.TempDir()))
}
