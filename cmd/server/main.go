/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the billing engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line arguments
  2. Load YAML configuration (defaults when the file is missing)
  3. Open the SQLite document store and blob storage
  4. Create API handler with dependencies
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the document store
  4. Exit

EXAMPLES:
  # Run with the default config
  ./server

  # Run with a config file and an in-memory database
  ./server --config ./billing.yaml --db ":memory:"

SEE ALSO:
  - config/config.go: Configuration file format
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/warp/billing-engine/api"
	"github.com/warp/billing-engine/config"
	"github.com/warp/billing-engine/logger"
	"github.com/warp/billing-engine/store"
	"github.com/warp/billing-engine/store/blob"
	"github.com/warp/billing-engine/store/sqlite"
)

type args struct {
	Config string `arg:"--config" help:"Path to the configuration YAML file."`
	Addr   string `arg:"--addr" help:"Listen address, overrides the config file."`
	DB     string `arg:"--db" help:"SQLite database path, overrides the config file. Use ':memory:' for ephemeral."`
}

func (args) Description() string {
	return "Billing engine: card statement aggregation, rollover, and cash ledger."
}

func main() {
	var a args
	arg.MustParse(&a)

	cfg, err := config.Load(a.Config)
	if err != nil {
		errLog := logger.New("error")
		errLog.Fatal().Err(err).Msg("configuration")
	}
	if a.Addr != "" {
		cfg.Addr = a.Addr
	}
	if a.DB != "" {
		cfg.Database = a.DB
	}

	log := logger.New(cfg.LogLevel)

	st, err := sqlite.New(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("database", cfg.Database).Msg("open store")
	}
	defer st.Close()

	var blobs store.BlobStore
	if cfg.BlobDir != "" {
		local, err := blob.NewLocal(cfg.BlobDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.BlobDir).Msg("open blob storage")
		}
		blobs = local
	}

	handler := api.NewHandler(st, blobs, api.HeaderAuth{Fallback: cfg.DefaultUser}, log)
	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		BlobDir:     cfg.BlobDir,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
