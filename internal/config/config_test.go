package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 10, cfg.Pools.Rows)
	require.Equal(t, 2, cfg.Pools.Render)
	require.Equal(t, 4, cfg.Pools.Subprocess)
	require.Equal(t, 3, cfg.HTTP.MaxAttempts)
	require.Equal(t, 25*time.Second, cfg.HTTP.Timeout())
	require.Equal(t, 500*time.Millisecond, cfg.HTTP.BackoffBase())
	require.False(t, cfg.Render.Enabled)
	require.Equal(t, "gpt-4.1-mini", cfg.OpenAI.Model)
	require.Equal(t, 5*time.Second, cfg.OpenAI.PollInterval())
	require.Equal(t, time.Hour, cfg.OpenAI.PollCeiling())
	require.Equal(t, 3, cfg.OpenAI.StageRetries)
	require.False(t, cfg.Metrics.Enabled)
	require.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestValidateRejectsEnabledMetricsWithoutAddr(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = ""
	err = cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "metrics.addr")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pools:
  rows: 4
render:
  enabled: true
  nav_timeout_seconds: 30
openai:
  model: gpt-4o-mini
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Pools.Rows)
	require.True(t, cfg.Render.Enabled)
	require.Equal(t, 30*time.Second, cfg.Render.NavTimeout())
	require.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	// Untouched keys keep their defaults.
	require.Equal(t, 2, cfg.Pools.Render)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pools:
  rows: 0
`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "pool sizes")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
