package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Proxy     ProxyConfig
	Preview   PreviewConfig
	Storage   StorageConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// ProxyConfig holds upstream fetch configuration.
type ProxyConfig struct {
	// Base is the externally visible origin substituted for the
	// {{PROXY_BASE}} placeholder at content-injection time.
	Base           string        `envconfig:"PROXY_BASE" default:"http://localhost:8000"`
	FetchTimeout   time.Duration `envconfig:"PROXY_FETCH_TIMEOUT" default:"60s"`
	RetryMax       int           `envconfig:"PROXY_RETRY_MAX" default:"2"`
	UserAgent      string        `envconfig:"PROXY_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	MaxResourceMiB int           `envconfig:"PROXY_MAX_RESOURCE_MIB" default:"25"`
	// StripScripts removes executable script content from rendered
	// pages. Previews stay visually faithful but inert.
	StripScripts bool `envconfig:"PROXY_STRIP_SCRIPTS" default:"false"`
}

// PreviewConfig holds engine tuning knobs.
type PreviewConfig struct {
	FrameInterval  time.Duration `envconfig:"PREVIEW_FRAME_INTERVAL" default:"16ms"`
	ExtractDelay   time.Duration `envconfig:"PREVIEW_EXTRACT_DELAY" default:"1500ms"`
	RepairDebounce time.Duration `envconfig:"PREVIEW_REPAIR_DEBOUNCE" default:"250ms"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	// Driver selects the key-value backend: "memory" or "sqlite".
	Driver string `envconfig:"STORAGE_DRIVER" default:"memory"`
	Path   string `envconfig:"STORAGE_PATH" default:"restyle.db"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Proxy: ProxyConfig{
			Base:           "http://localhost:8000",
			FetchTimeout:   60 * time.Second,
			RetryMax:       2,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MaxResourceMiB: 25,
			StripScripts:   false,
		},
		Preview: PreviewConfig{
			FrameInterval:  16 * time.Millisecond,
			ExtractDelay:   1500 * time.Millisecond,
			RepairDebounce: 250 * time.Millisecond,
		},
		Storage: StorageConfig{
			Driver: "memory",
			Path:   "restyle.db",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
