package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skilltrace-systems/skilltrace-indexer/internal/config"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/enricher"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/indexer"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/logging"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/lookup"
	natsclient "github.com/skilltrace-systems/skilltrace-indexer/internal/messaging/nats"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/pump"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/server"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/storage"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/validator"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("indexer"))
	logging.SetDefault(logger)

	slog.Info("Starting indexer",
		slog.String("nats_url", cfg.NATS.URL),
		slog.String("topic", cfg.NATS.Topic),
		slog.String("channel", cfg.NATS.Channel),
		slog.String("opensearch_url", cfg.OpenSearch.URL),
		slog.String("lookup_url", cfg.Lookup.URL),
	)

	schema, err := validator.New(cfg.Schema)
	if err != nil {
		slog.Error("Failed to build schema", logging.Error(err))
		os.Exit(1)
	}

	osClient, err := storage.NewClient(cfg.OpenSearch)
	if err != nil {
		slog.Error("Failed to create OpenSearch client", logging.Error(err))
		os.Exit(1)
	}
	slog.Info("Connected to OpenSearch", slog.String("url", cfg.OpenSearch.URL))

	templates := indexer.NewTemplateManager(osClient, cfg.OpenSearch)
	if err := templates.EnsureTemplate(context.Background()); err != nil {
		slog.Error("Failed to install index template", logging.Error(err))
		os.Exit(1)
	}

	writer := indexer.NewWriter(osClient, cfg.OpenSearch)
	resolver := lookup.NewClient(cfg.Lookup)
	enrich := enricher.New(resolver, writer, logger)

	nc, err := natsclient.NewClient(natsclient.Config{
		URL:           cfg.NATS.URL,
		Name:          "skilltrace-indexer",
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWait,
		Timeout:       5 * time.Second,
	})
	if err != nil {
		slog.Error("Failed to connect to NATS", logging.Error(err))
		os.Exit(1)
	}
	slog.Info("Connected to NATS", slog.String("url", cfg.NATS.URL))

	p := pump.New(nc, schema, enrich, cfg.NATS.Topic, cfg.NATS.Channel, logger)
	if err := p.Start(); err != nil {
		slog.Error("Failed to start pump", logging.Error(err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.New(p, osClient).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Ops server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Ops server error", logging.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down")

	if err := p.Stop(); err != nil {
		slog.Warn("Failed to stop pump", logging.Error(err))
	}
	if err := nc.Drain(); err != nil {
		slog.Warn("Failed to drain NATS connection", logging.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("Ops server forced to shutdown", logging.Error(err))
	}

	slog.Info("Stopped")
}
