package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rowtracker-platform/internal/config"
	"rowtracker-platform/internal/handlers"
	"rowtracker-platform/internal/repository"
	"rowtracker-platform/internal/services"
	"rowtracker-platform/pkg/database"
	"rowtracker-platform/pkg/logging"
	"rowtracker-platform/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("rowtracker-api", "1.0.0", logging.ParseLevel(cfg.LogLevel))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting row tracker API server", logging.Fields{
		"version":     "1.0.0",
		"server_addr": cfg.ServerAddr(),
		"db_host":     cfg.DBHost,
		"db_name":     cfg.DBName,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("rowtracker")

	// Initialize database
	dbConfig := &database.Config{
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		Database:        cfg.DBName,
		SSLMode:         cfg.DBSSLMode,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to configure database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository
	sampleRepo := repository.NewSampleRepository(db, logger, metricsCollector)

	// Initialize services
	analyticsService := services.NewAnalyticsService(sampleRepo, logger, metricsCollector)
	playbackService := services.NewPlaybackService(sampleRepo, logger, metricsCollector)

	// Initialize handlers
	trackHandler := handlers.NewTrackHandler(analyticsService, playbackService, sampleRepo, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()

	// Register routes
	trackHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
