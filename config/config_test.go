package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, MemoryDriverInMemory, cfg.Memory.Driver)
	assert.Equal(t, ModelProviderNone, cfg.Model.Provider)
	assert.Equal(t, 3, cfg.Executor.Retries)
	assert.Equal(t, 30*time.Second, cfg.Executor.Timeout)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goalmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
  format: json
memory:
  driver: sqlite
  path: /tmp/agent.db
model:
  provider: openai
  name: gpt-4o-mini
executor:
  retries: 5
  timeout: 10s
  concurrency: 4
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, MemoryDriverSQLite, cfg.Memory.Driver)
	assert.Equal(t, "/tmp/agent.db", cfg.Memory.Path)
	assert.Equal(t, ModelProviderOpenAI, cfg.Model.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Name)
	assert.Equal(t, 5, cfg.Executor.Retries)
	assert.Equal(t, 10*time.Second, cfg.Executor.Timeout)
	assert.Equal(t, 4, cfg.Executor.Concurrency)
}

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goalmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte("memory:\n  driver: cassandra\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid memory driver")
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv("GOALMESH_LOG_LEVEL", "warn")
	t.Setenv("GOALMESH_EXECUTOR_RETRIES", "7")
	t.Setenv("GOALMESH_EXECUTOR_TIMEOUT", "5s")
	t.Setenv("GOALMESH_EXECUTOR_SIMULATE", "true")

	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 7, cfg.Executor.Retries)
	assert.Equal(t, 5*time.Second, cfg.Executor.Timeout)
	assert.True(t, cfg.Executor.Simulate)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid logging level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "invalid logging format"},
		{"sqlite without path", func(c *Config) { c.Memory.Driver = MemoryDriverSQLite; c.Memory.Path = "" }, "requires a path"},
		{"redis without url", func(c *Config) { c.Memory.Driver = MemoryDriverRedis }, "requires a redis_url"},
		{"bad provider", func(c *Config) { c.Model.Provider = "cohere" }, "invalid model provider"},
		{"zero retries", func(c *Config) { c.Executor.Retries = 0 }, "retries"},
		{"zero timeout", func(c *Config) { c.Executor.Timeout = 0 }, "timeout"},
		{"zero concurrency", func(c *Config) { c.Executor.Concurrency = 0 }, "concurrency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
