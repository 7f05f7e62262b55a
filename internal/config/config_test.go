package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/nativekit/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  file:
    enabled: true
    path: /tmp/nativekit.log
    rotation:
      max_size: 10
events:
  strict: true
metrics:
  enabled: true
  namespace: app
http:
  timeout: 5s
  user_agent: test-agent
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, LogLevelDebug, cfg.Log.Level)
	assert.True(t, cfg.Log.Console.Enabled)
	assert.True(t, cfg.Log.File.Enabled)
	assert.Equal(t, 10, cfg.Log.File.Rotation.MaxSize)
	assert.Equal(t, 3, cfg.Log.File.Rotation.MaxBackups)
	assert.True(t, cfg.Events.Strict)
	assert.Equal(t, "app", cfg.Metrics.Namespace)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "test-agent", cfg.HTTP.UserAgent)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "events:\n  strict: false\nhttp:\n  timeout: 5s\n")
	t.Setenv("NATIVEKIT_EVENTS_STRICT", "true")
	t.Setenv("NATIVEKIT_HTTP_TIMEOUT", "250ms")
	t.Setenv("NATIVEKIT_LOG_CONSOLE_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Events.Strict)
	assert.Equal(t, 250*time.Millisecond, cfg.HTTP.Timeout)
	assert.Equal(t, LogFormatJSON, cfg.Log.Console.Format)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "events:\n  strcit: true\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown configuration field")

	var kitErr *errors.KitError
	require.True(t, errors.As(err, &kitErr))
	assert.Equal(t, errors.KindConfig, kitErr.Kind)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "unknown level"},
		{"bad format", func(c *Config) { c.Log.File.Format = "xml" }, "unknown format"},
		{"no outputs", func(c *Config) { c.Log.Console.Enabled = false }, "at least one log output"},
		{"file without path", func(c *Config) { c.Log.File.Enabled = true }, "log.file.path"},
		{"metrics without listen", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Listen = "" }, "metrics.listen"},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics.path"},
		{"negative timeout", func(c *Config) { c.HTTP.Timeout = -time.Second }, "http.timeout"},
		{"negative conns", func(c *Config) { c.HTTP.MaxConnsPerHost = -1 }, "max_conns_per_host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, Default().Validate())
}
