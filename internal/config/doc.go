// Package config provides 12-factor configuration management for the
// restyle preview service.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Proxy: upstream fetch and {{PROXY_BASE}} substitution settings
//   - Preview: engine scheduling knobs (frame interval, deferred extraction)
//   - Storage: key-value persistence backend selection
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, PROXY_BASE, PROXY_FETCH_TIMEOUT
//   - PREVIEW_FRAME_INTERVAL, PREVIEW_EXTRACT_DELAY, PREVIEW_REPAIR_DEBOUNCE
//   - STORAGE_DRIVER, STORAGE_PATH
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST
package config
