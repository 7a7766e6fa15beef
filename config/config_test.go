package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sinema", c.Processor.Name)
	assert.Equal(t, 100, c.Processor.HistoryCapacity)
	assert.Equal(t, TimerBackendOS, c.Timer.Backend)
	assert.Equal(t, time.Second, c.Timer.Interval)
	assert.Equal(t, ":9090", c.Metrics.Listen)
	assert.Equal(t, 5*time.Second, c.Metrics.PollInterval)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, Default(), c)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, "sinema.yaml", `
processor:
  name: player
  history_capacity: 16
timer:
  backend: portable
  initial: 250ms
  interval: 2s
log:
  level: debug
`)
	t.Setenv("SINEMA_TIMER_INTERVAL", "500ms")
	t.Setenv("SINEMA_METRICS_LISTEN", "127.0.0.1:0")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "player", c.Processor.Name)
	assert.Equal(t, 16, c.Processor.HistoryCapacity)
	assert.Equal(t, TimerBackendPortable, c.Timer.Backend)
	assert.Equal(t, 250*time.Millisecond, c.Timer.Initial)
	assert.Equal(t, 500*time.Millisecond, c.Timer.Interval, "env overrides file")
	assert.Equal(t, "127.0.0.1:0", c.Metrics.Listen)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown backend", func(c *Config) { c.Timer.Backend = "sundial" }, "timer.backend"},
		{"negative interval", func(c *Config) { c.Timer.Interval = -time.Second }, "timer.interval"},
		{"negative initial", func(c *Config) { c.Timer.Initial = -time.Second }, "timer.initial"},
		{"negative poll", func(c *Config) { c.Metrics.PollInterval = -time.Second }, "metrics.poll_interval"},
		{"negative history", func(c *Config) { c.Processor.HistoryCapacity = -1 }, "processor.history_capacity"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	require.NoError(t, Default().Validate())
}

func TestLoad_RejectsInvalidEnv(t *testing.T) {
	t.Setenv("SINEMA_TIMER_BACKEND", "sundial")
	_, err := Load("")
	assert.ErrorContains(t, err, "timer.backend")
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "SINEMA_PROCESSOR_NAME=from-dotenv\n")
	t.Setenv("SINEMA_PROCESSOR_NAME", "")
	os.Unsetenv("SINEMA_PROCESSOR_NAME")

	require.NoError(t, LoadDotEnv(path))
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", c.Processor.Name)

	assert.Error(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestConfig_CoreValues(t *testing.T) {
	c := Default()
	c.Timer.Backend = TimerBackendPortable
	c.Timer.Initial = time.Hour

	opts := c.ProcessorOptions(nil, nil)
	assert.Equal(t, "sinema", opts.Name)
	assert.Equal(t, 100, opts.HistoryCapacity)
	assert.NotNil(t, opts.Logger)
	assert.NotNil(t, opts.Metrics)
	assert.NotNil(t, c.Logger())

	timer, err := c.NewTimer()
	require.NoError(t, err)
	defer timer.Close()
	assert.False(t, timer.IsArmed())
}
