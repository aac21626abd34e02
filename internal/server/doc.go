// Package server assembles the preview service.
//
// It wires the collaborators together:
//   - HTTP routing with Gin
//   - Middleware stack (tracing, metrics, CORS, rate limiting, recovery)
//   - Proxy client for upstream page and resource fetches
//   - Preview engine with its frame scheduler and storage
//   - WebSocket relay for state and scroll streaming
//
// Server lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Open storage and start the frame scheduler
//  4. Build the proxy client and preview engine
//  5. Register HTTP routes and middleware
//  6. Serve until the context is canceled
//  7. Graceful shutdown, then release engine, scheduler, tracer, storage
//
// Example usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
