package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Proxy config
	assert.Equal(t, "http://localhost:8000", cfg.Proxy.Base)
	assert.Equal(t, 60*time.Second, cfg.Proxy.FetchTimeout)
	assert.Equal(t, 2, cfg.Proxy.RetryMax)

	// Preview config
	assert.Equal(t, 16*time.Millisecond, cfg.Preview.FrameInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.Preview.ExtractDelay)

	// Storage config
	assert.Equal(t, "memory", cfg.Storage.Driver)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("PROXY_BASE", "https://preview.example.com")
	t.Setenv("PREVIEW_EXTRACT_DELAY", "2s")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9001", cfg.Server.Port)
	assert.Equal(t, "https://preview.example.com", cfg.Proxy.Base)
	assert.Equal(t, 2*time.Second, cfg.Preview.ExtractDelay)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("PREVIEW_FRAME_INTERVAL", "not-a-duration")

	_, err := Load()
	assert.Error(t, err)

	os.Unsetenv("PREVIEW_FRAME_INTERVAL")
}
