package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcavoj/voxbridge/internal/config"
	"github.com/mcavoj/voxbridge/internal/journal"
	"github.com/mcavoj/voxbridge/internal/observability"
	"github.com/mcavoj/voxbridge/internal/relay"
	"github.com/mcavoj/voxbridge/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := journal.NewStore(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("journal store init failed: %v", err)
	}
	defer store.Close()

	connector := upstream.NewConnector(upstream.Config{
		APIKey:    cfg.ElevenLabsAPIKey,
		WSBaseURL: cfg.ElevenLabsWSBaseURL,
	})

	server := relay.New(cfg, connector, metrics, store)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: server.Router(),
	}

	go func() {
		log.Printf("relay listening on %s (mode=%s)", cfg.BindAddr, cfg.RelayMode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	// Close live relay sessions first so every socket group gets a normal
	// closure frame, then drain the HTTP listener.
	server.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
