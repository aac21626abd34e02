// Package main is the entry point for the restyle preview server.
//
// This application serves the live-preview restyling service: it fetches
// target pages through the embedded proxy, drives the preview engine
// (camera, surfaces, style injection, extraction, remapping, comparison),
// and streams state to the UI over WebSocket.
//
// Architecture:
//
//	Frontend (iframe + chrome) → Go service → Upstream websites
//
// The server provides:
//   - REST API for rendering, styling, extraction, and remapping
//   - Path and query subresource proxying with open CORS
//   - WebSocket relay for scroll and state updates
//   - Prometheus metrics and rate limiting
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	./server -port 8000 -proxy-base http://localhost:8000
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
