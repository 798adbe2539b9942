/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the scoring engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, optional YAML, SCORING_ env vars)
  2. Initialize structured logging
  3. Initialize SQLite store and seed the default achievement catalog
  4. Wire engine, aggregator, replay controller, API handler
  5. Start the metrics scheduler and HTTP server with graceful shutdown

CONFIGURATION:
  SCORING_ADDR                 HTTP listen address (default :8080)
  SCORING_DB_PATH              SQLite path; ":memory:" for in-memory
  SCORING_LOG_LEVEL            debug | info | warn | error
  SCORING_STREAK_WINDOW_DAYS   Streak look-back window
  SCORING_MAX_CONFLICT_RETRIES Engine CAS retry bound
  SCORING_REFRESH_INTERVAL     Background metrics refresh cadence
  SCORING_SCHEDULER_ENABLED    Toggle the background refresher
  SCORING_CONFIG               Optional YAML file with the same keys

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
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

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/scoring-engine/api"
	"github.com/warp/scoring-engine/catalog"
	"github.com/warp/scoring-engine/config"
	"github.com/warp/scoring-engine/gamification"
	"github.com/warp/scoring-engine/performance"
	"github.com/warp/scoring-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Seed the built-in achievement catalog (existing rows keep edits)
	if err := store.SeedDefinitions(context.Background(), catalog.DefaultCatalog()); err != nil {
		logger.Fatal("failed to seed achievement catalog", zap.Error(err))
	}

	// Wire the domain
	aggregator := performance.NewAggregator(store, logger)
	engine := gamification.NewEngine(store, aggregator, logger)
	engine.StreakWindowDays = cfg.StreakWindowDays
	engine.MaxRetries = cfg.MaxConflictRetries
	replayer := gamification.NewReplayController(store, engine, logger)

	handler := api.NewHandler(store, engine, aggregator, replayer, logger)
	router := api.NewRouter(handler)

	// Background metrics refresh
	scheduler := api.NewMetricsScheduler(store, aggregator, logger)
	scheduler.Enabled = cfg.SchedulerEnabled
	if cfg.RefreshInterval > 0 {
		scheduler.CheckInterval = cfg.RefreshInterval
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
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
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
