package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadDefault()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000", cfg.Server.BaseURL)
	require.Equal(t, 50, cfg.Timeline.PageSize)
	require.Equal(t, 30, cfg.Timeline.ChatPageSize)
	require.Equal(t, time.Second, cfg.Live.BackoffBase)
	require.Equal(t, 5*time.Second, cfg.Live.BackoffCap)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  base_url: https://support.example.com
  token: secret-token
timeline:
  page_size: 25
  strict: true
logging:
  level: debug
`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "https://support.example.com", cfg.Server.BaseURL)
	require.Equal(t, "secret-token", cfg.Server.Token)
	require.Equal(t, 25, cfg.Timeline.PageSize)
	require.True(t, cfg.Timeline.Strict)
	require.Equal(t, "debug", cfg.Logging.Level)
	// Untouched keys keep defaults.
	require.Equal(t, 30, cfg.Timeline.ChatPageSize)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  base_url: https://file.example.com
`), 0644))

	t.Setenv("TGDESK_SERVER_BASE_URL", "https://env.example.com")
	t.Setenv("TGDESK_LOGGING_LEVEL", "warn")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "https://env.example.com", cfg.Server.BaseURL)
	require.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.BaseURL = "not a url"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Timeline.PageSize = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Live.BackoffCap = cfg.Live.BackoffBase / 2
	require.Error(t, cfg.Validate())
}

func TestLiveURLDerivation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.BaseURL = "https://support.example.com"
	require.Equal(t, "wss://support.example.com/ws", cfg.LiveURL())

	cfg.Server.BaseURL = "http://localhost:8000/"
	require.Equal(t, "ws://localhost:8000/ws", cfg.LiveURL())

	cfg.Live.URL = "wss://push.example.com/stream"
	require.Equal(t, "wss://push.example.com/stream", cfg.LiveURL())
}
