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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, DefaultQueuePrefix, cfg.Offline.QueuePrefix)
	assert.Equal(t, "memory", cfg.Store.Kind)
	assert.Equal(t, "manual", cfg.Connectivity.Mode)
	assert.True(t, cfg.Connectivity.StartOnline)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
logging:
  level: debug
  format: json
cache:
  ttl: 45s
  max_entries: 500
  eviction: FIFO
  refresh_ahead: 0.8
store:
  kind: sqlite
  path: /tmp/queue.db
remote:
  base_url: https://api.example.com
  timeout: 3
  headers:
    X-Client: mobile
connectivity:
  mode: probe
  url: https://api.example.com/health
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 45*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, "fifo", cfg.Cache.Eviction)
	assert.InDelta(t, 0.8, cfg.Cache.RefreshAhead, 1e-9)
	assert.Equal(t, "sqlite", cfg.Store.Kind)
	assert.Equal(t, 3*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, "mobile", cfg.Remote.Headers["x-client"])
	assert.Equal(t, "probe", cfg.Connectivity.Mode)

	// untouched sections keep their defaults
	assert.Equal(t, DefaultShards, cfg.Cache.Shards)
	assert.Equal(t, DefaultQueuePrefix, cfg.Offline.QueuePrefix)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "cache:\n  ttl: 45s\n")
	t.Setenv("RESILIENT_CACHE_TTL", "10s")
	t.Setenv("RESILIENT_STORE_KIND", "badger")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "badger", cfg.Store.Kind)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeFile(t, "store:\n  kind: sqlite\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required_if")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		tag    string
	}{
		{"log level", func(c *Config) { c.Logging.Level = "LOUD" }, "oneof"},
		{"negative max entries", func(c *Config) { c.Cache.MaxEntries = -1 }, "min"},
		{"refresh fraction", func(c *Config) { c.Cache.RefreshAhead = 1 }, "lt"},
		{"eviction", func(c *Config) { c.Cache.Eviction = "lfu" }, "oneof"},
		{"probe without url", func(c *Config) { c.Connectivity.Mode = "probe" }, "required_unless"},
		{"base url", func(c *Config) { c.Remote.BaseURL = "not a url" }, "url"},
		{"metrics listen", func(c *Config) { c.Metrics.Listen = "nope" }, "hostname_port"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.tag)
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Cache.TTL = 90 * time.Second
	cfg.Store = StoreConfig{Kind: "badger", Path: "/data/queue"}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
