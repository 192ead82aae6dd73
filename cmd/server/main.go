/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the household ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env and environment, then apply command-line flags
  2. Validate configuration
  3. Open the configured store (memory, sqlite or bolt)
  4. Build the engine with logger and Prometheus recorder
  5. Optionally seed a scenario
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -port       HTTP server port                      PORT
  -store      memory | sqlite | bolt                STORE
  -db         Database path (":memory:" for sqlite) DB_PATH
  -log-level  debug | info | warn | error           LOG_LEVEL
  -seed       Scenario id to load at start-up       SEED_SCENARIO

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  ./server -store=sqlite -db="./data/ledger.db"
  ./server -seed=household
  ./server -port=3000 -log-level=debug

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/household-ledger/api"
	"github.com/warp/household-ledger/config"
	"github.com/warp/household-ledger/expense"
	"github.com/warp/household-ledger/logging"
	"github.com/warp/household-ledger/metrics"
	"github.com/warp/household-ledger/scenario"
	"github.com/warp/household-ledger/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	// Flags
	flag.StringVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "store backend: memory, sqlite or bolt")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "database path")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	flag.StringVar(&cfg.SeedScenario, "seed", cfg.SeedScenario, "scenario to load at start-up")
	flag.Parse()
	if cfg.DBPath == "" {
		cfg.DBPath = config.DefaultDBPath(cfg.Store)
	}

	logger := logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// Initialize store
	handle, err := store.Open(cfg.Store, cfg.DBPath)
	if err != nil {
		logger.Error("failed to open store", "store", cfg.Store, "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer handle.Close()

	m := metrics.New()
	engine := expense.NewEngine(handle.Store)
	engine.Logger = logger
	engine.Recorder = m

	if cfg.SeedScenario != "" {
		sum, err := scenario.Load(context.Background(), engine, cfg.SeedScenario)
		if err != nil {
			logger.Error("failed to seed scenario", "scenario", cfg.SeedScenario, "err", err)
			os.Exit(1)
		}
		logger.Info("scenario seeded", "scenario", sum.Scenario, "bills", sum.Bills)
	}

	handler := api.NewHandler(engine)
	handler.Logger = logger
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     m,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "addr", server.Addr, "store", cfg.Store)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
	}

	logger.Info("server stopped")
}
