package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:10000", cfg.Engine.BaseURL)
	assert.Equal(t, 2, cfg.Status.PollIntervalSecs)
	assert.Equal(t, 300, cfg.Status.TimeoutSecs)
	assert.Equal(t, 5, cfg.Status.HistoryLimit)
	assert.True(t, cfg.Status.ZeroOnError)
	assert.Equal(t, 10000, cfg.Serve.Port)
	assert.Equal(t, "uploads", cfg.Serve.UploadDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, 2*time.Second, cfg.Status.PollInterval())
	assert.Equal(t, 5*time.Minute, cfg.Status.Timeout())
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
engine:
  base_url: https://scraper.internal:8443
status:
  poll_interval_secs: 5
  zero_progress_on_error: false
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://scraper.internal:8443", cfg.Engine.BaseURL)
	assert.Equal(t, 5, cfg.Status.PollIntervalSecs)
	assert.False(t, cfg.Status.ZeroOnError)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 300, cfg.Status.TimeoutSecs)
	assert.Equal(t, 10000, cfg.Serve.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
engine:
  base_url: https://from-file.example
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SCRAPE_ENGINE_BASE_URL", "https://from-env.example")
	t.Setenv("SCRAPE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "https://from-env.example", cfg.Engine.BaseURL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("SCRAPE_SERVE_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Serve.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Engine: EngineConfig{BaseURL: "http://localhost:10000"},
		Status: StatusConfig{PollIntervalSecs: 2, TimeoutSecs: 300, HistoryLimit: 5},
		Serve:  ServeConfig{Port: 10000, UploadDir: "uploads"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_MissingBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.BaseURL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.base_url is required")
}

func TestValidate_PollBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Status.PollIntervalSecs = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval_secs")

	cfg = validConfig()
	cfg.Status.TimeoutSecs = 1
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout_secs")
}

func TestValidate_HistoryLimitBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Status.HistoryLimit = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history_limit must be between 1 and 50")

	cfg.Status.HistoryLimit = 51
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history_limit must be between 1 and 50")
}

func TestValidate_ServePort(t *testing.T) {
	cfg := validConfig()
	cfg.Serve.Port = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serve.port must be > 0")
}
