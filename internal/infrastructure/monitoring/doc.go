/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the preview
service, tracking HTTP requests, upstream fetches, preview engine activity,
and WebSocket traffic.

# Features

- HTTP request metrics (latency, throughput, size)
- Upstream fetch metrics (render and resource duration, errors)
- Preview engine metrics (surface writes, style repairs, extractions, remaps)
- Comparison sync metrics
- WebSocket connection metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record engine activity
	metrics.SetSurfacesActive(2)
	metrics.IncRemapsApplied()

	// Time upstream fetches
	timer := monitoring.NewFetchTimer(metrics, "page")
	// ... fetch and process ...
	timer.Done(err)

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
