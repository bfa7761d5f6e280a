package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"rowtracker-platform/internal/config"
	"rowtracker-platform/internal/repository"
	"rowtracker-platform/internal/scraper"
	"rowtracker-platform/internal/services"
	"rowtracker-platform/pkg/database"
	"rowtracker-platform/pkg/logging"
	"rowtracker-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	once := flag.Bool("once", false, "Run a single scrape cycle and exit")
	source := flag.String("source", "", "Scrape a single source URL instead of the configured list")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	sources := cfg.ScrapeSources
	if *source != "" {
		sources = []string{*source}
	}
	if len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "No scrape sources configured: set ROWTRACKER_SCRAPE_SOURCES or pass -source")
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("rowtracker-scraper", "1.0.0", logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[SCRAPER_START] Starting position scraper", logging.Fields{
		"version":  "1.0.0",
		"sources":  len(sources),
		"interval": cfg.ScrapeInterval.String(),
		"once":     *once,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("rowtracker_scraper")

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
		logger.Fatal(ctx, "[SCRAPER_ERROR] Failed to configure database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository
	sampleRepo := repository.NewSampleRepository(db, logger, metricsCollector)

	// Optional CSV archive of every scraped batch
	var archiver *services.CSVArchiver
	if cfg.ArchiveDir != "" {
		archiver, err = services.NewCSVArchiver(cfg.ArchiveDir, logger)
		if err != nil {
			logger.Fatal(ctx, "[SCRAPER_ERROR] Failed to prepare archive directory", logging.Fields{
				"dir": cfg.ArchiveDir,
			}, err)
		}
	}

	// Initialize services
	fetcher := scraper.NewClient(cfg.FetchTimeout, logger, metricsCollector)
	ingestion := services.NewIngestionService(sampleRepo, archiver, logger, metricsCollector)
	scheduler := services.NewScrapeScheduler(
		fetcher,
		ingestion,
		sources,
		cfg.ScrapeInterval,
		clockwork.NewRealClock(),
		logger,
		metricsCollector,
	)

	if *once {
		scheduler.RunCycle(ctx)
		logger.Info(ctx, "[SCRAPER_COMPLETE] Single cycle finished", logging.Fields{})
		return
	}

	scheduler.Run(ctx)
	logger.Info(ctx, "[SCRAPER_STOP] Scraper stopped", logging.Fields{})
}
