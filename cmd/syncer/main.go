package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"station-platform/internal/config"
	"station-platform/internal/ingest"
	"station-platform/internal/locator"
	"station-platform/internal/models"
	"station-platform/internal/repository"
	"station-platform/internal/services"
	"station-platform/pkg/database"
	"station-platform/pkg/logging"
	"station-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	dateStr := flag.String("date", "", "Observation date to sync (YYYY-MM-DD, default: today)")
	latest := flag.Bool("latest", false, "Sync the most recent report published upstream instead of a fixed date")
	flag.Parse()

	if *latest && *dateStr != "" {
		fmt.Fprintln(os.Stderr, "-date and -latest are mutually exclusive")
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	date := time.Now().UTC()
	if *dateStr != "" {
		date, err = time.Parse("2006-01-02", *dateStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -date value %q, expected YYYY-MM-DD\n", *dateStr)
			os.Exit(1)
		}
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("station-syncer", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[SYNCER_START] Starting one-shot station sync", logging.Fields{
		"version": "1.0.0",
		"date":    date.Format("2006-01-02"),
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("station_syncer")

	// Initialize database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[SYNCER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository and services
	stationRepo := repository.NewStationRepository(db, logger, metricsCollector)
	locatorClient := locator.NewClient(cfg.Sync.BaseURL, cfg.Sync.FaultReportURL, cfg.Sync.RequestTimeout, logger)
	csvFetcher := ingest.NewFetcher(cfg.Sync.RequestTimeout, logger)
	syncService := services.NewSyncService(locatorClient, csvFetcher, stationRepo, logger, metricsCollector)

	if *latest {
		// The newest of the station index and the fault-report tree wins;
		// either may lag the other by a day.
		found := false
		_, stationDate, err := locatorClient.LocateLatestStationCSV(ctx, models.StationTypeAWS)
		if err != nil {
			logger.Warn(ctx, "[SYNCER_LATEST] No dated station report on the index", logging.Fields{
				"error": err.Error(),
			})
		} else {
			date = stationDate
			found = true
		}

		_, faultDate, err := locatorClient.LocateLatestFaultFolder(ctx)
		if err != nil {
			logger.Warn(ctx, "[SYNCER_LATEST] No dated fault folder in the report tree", logging.Fields{
				"error": err.Error(),
			})
		} else if !found || faultDate.After(date) {
			date = faultDate
			found = true
		}

		if !found {
			logger.Fatal(ctx, "[SYNCER_ERROR] Failed to locate any latest upstream report", logging.Fields{}, err)
		}

		logger.Info(ctx, "[SYNCER_LATEST] Resolved latest published report", logging.Fields{
			"date": date.Format("2006-01-02"),
		})
	}

	// Run the sync
	result := syncService.RunSync(ctx, date)

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("SYNC COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Run ID:          %s\n", result.RunID)
	fmt.Printf("Date:            %s\n", result.Date.Format("2006-01-02"))
	for stationType, count := range result.StationsUpserted {
		fmt.Printf("%s stations:    %d\n", stationType, count)
	}
	fmt.Printf("Fault records:   %d\n", result.FaultRecords)
	fmt.Printf("Faults merged:   %d\n", result.FaultsMerged)
	fmt.Printf("Duration:        %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
		os.Exit(1)
	}

	logger.Info(ctx, "[SYNCER_COMPLETE] Sync completed successfully", logging.Fields{
		"run_id":           result.RunID,
		"fault_records":    result.FaultRecords,
		"faults_merged":    result.FaultsMerged,
		"duration_seconds": result.Duration.Seconds(),
	})
}
