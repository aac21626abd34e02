package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/previewlab/restyle/internal/config"
	"github.com/previewlab/restyle/internal/server"
)

func main() {
	port := flag.String("port", "", "Server port (overrides PORT)")
	proxyBase := flag.String("proxy-base", "", "Externally visible origin (overrides PROXY_BASE)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *proxyBase != "" {
		cfg.Proxy.Base = *proxyBase
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
