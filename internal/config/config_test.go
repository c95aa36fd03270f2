package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("CRON_SECRET", "s3cret")

	cfg, err := Load(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Anthropic.APIKey)
	assert.Equal(t, "s3cret", cfg.Batch.Secret)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Batch.Size)
	assert.Equal(t, 2, cfg.Batch.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Sources.Timeout)
	assert.Equal(t, "256x256", cfg.ImageGen.Size)
	assert.Equal(t, "gists.published", cfg.NATS.Subject)
	assert.Equal(t, 150, cfg.Publishing.SummaryChars)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("CRON_SECRET", "")
	t.Setenv("GIST_BATCH_SECRET", "")

	cfg, err := Load(writeConfig(t, `
cache:
  driver: redis
redis:
  url: redis://localhost:6379/0
batch:
  size: 25
  secret: from-file
sources:
  timeout: 3s
`))
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, 25, cfg.Batch.Size)
	assert.Equal(t, "from-file", cfg.Batch.Secret)
	assert.Equal(t, 3*time.Second, cfg.Sources.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database:  DatabaseConfig{Driver: "sqlite"},
			Cache:     CacheConfig{Driver: "memory"},
			Anthropic: AnthropicConfig{APIKey: "sk"},
			Batch:     BatchConfig{Size: 10, Secret: "s"},
			Server:    ServerConfig{Enabled: true},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing llm key", func(c *Config) { c.Anthropic.APIKey = "" }, "anthropic.api_key"},
		{"server without secret", func(c *Config) { c.Batch.Secret = "" }, "batch.secret"},
		{"cli without secret", func(c *Config) { c.Batch.Secret = ""; c.Server.Enabled = false }, ""},
		{"unknown cache", func(c *Config) { c.Cache.Driver = "memcached" }, "cache driver"},
		{"redis without url", func(c *Config) { c.Cache.Driver = "redis" }, "redis.url"},
		{"unknown database", func(c *Config) { c.Database.Driver = "postgres" }, "database driver"},
		{"imagegen without key", func(c *Config) { c.ImageGen.Enabled = true }, "imagegen.api_key"},
		{"objectstore without bucket", func(c *Config) { c.ObjectStore.Enabled = true }, "objectstore.bucket"},
		{"zero batch size", func(c *Config) { c.Batch.Size = 0 }, "batch.size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
