/*
Package tracing provides lightweight request tracing for the preview service.

# Overview

Each HTTP request gets a span carrying a trace ID, operation name, tags, and
duration. Spans follow OpenTelemetry concepts with a minimal in-process
implementation: completed spans are buffered and emitted through structured
logging rather than exported to an external collector.

# Usage

	// Create tracer
	tracer := tracing.New("restyle", logger)
	defer tracer.Close()

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

	span.SetTag("key", "value")
	span.Log("message", map[string]interface{}{"detail": "info"})

# Trace Format

Traces use standard HTTP headers for propagation:
- X-Trace-ID: Unique identifier for an entire request flow
- X-Span-ID: Identifier for the current operation

Proxies in front of the service can forward these headers to correlate
render, extract, and resource-fetch requests belonging to one preview
session.
*/
package tracing
