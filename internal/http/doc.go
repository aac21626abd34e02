// Package http provides HTTP handlers for the restyle REST API.
//
// This package implements all HTTP endpoints using the Gin framework,
// including page rendering, resource proxying, camera control, device
// selection, style layers, extraction, and color remapping.
//
// Endpoints:
//   - Health: / and /health
//   - Rendering: /api/render, /api/proxy-resource, /api/proxy-path/*
//   - Camera: /api/view/zoom, /api/view/pan, /api/view/reset
//   - Devices: /api/devices, /api/devices/select, /api/devices/multi
//   - Styling: /api/style/css, /api/style/typography, /api/style/effects
//   - Analysis: /api/extract, /api/remap
//   - Comparison: /api/comparison, /api/comparison/split, /api/comparison/sync
//
// Features:
//   - JSON request/response handling
//   - Proper HTTP status codes
//   - Error response formatting
//   - Request validation
//
// Example Usage:
//
//	handlers := http.NewHandlers(eng, client, metrics, cfg.Proxy.Base, log)
//	router.GET("/health", handlers.Health)
//	router.POST("/api/render", handlers.Render)
package http
