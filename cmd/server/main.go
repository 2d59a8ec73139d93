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
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"station-platform/internal/config"
	"station-platform/internal/handlers"
	"station-platform/internal/ingest"
	"station-platform/internal/locator"
	"station-platform/internal/repository"
	"station-platform/internal/services"
	"station-platform/pkg/database"
	"station-platform/pkg/logging"
	"station-platform/pkg/metrics"
)

func main() {
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

	// Initialize logger
	logger := logging.NewStructuredLogger("station-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting station platform API server", logging.Fields{
		"version":     "1.0.0",
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"db_host":     cfg.Database.Host,
		"db_name":     cfg.Database.Database,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("station_platform")

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
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository
	stationRepo := repository.NewStationRepository(db, logger, metricsCollector)

	// Initialize services
	stationService := services.NewStationService(stationRepo, logger, metricsCollector)

	locatorClient := locator.NewClient(cfg.Sync.BaseURL, cfg.Sync.FaultReportURL, cfg.Sync.RequestTimeout, logger)
	csvFetcher := ingest.NewFetcher(cfg.Sync.RequestTimeout, logger)
	syncService := services.NewSyncService(locatorClient, csvFetcher, stationRepo, logger, metricsCollector)

	// Start the daily sync scheduler
	tz, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Invalid sync timezone", logging.Fields{
			"timezone": cfg.Sync.Timezone,
		}, err)
	}

	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()

	scheduler := services.NewScheduler(
		clockwork.NewRealClock(),
		tz,
		cfg.Sync.Hour,
		cfg.Sync.Minute,
		func(ctx context.Context, date time.Time) {
			syncService.RunSync(ctx, date)
		},
		logger,
	)
	go scheduler.Run(schedulerCtx)

	// Initialize handlers
	stationHandler := handlers.NewStationHandler(stationService, syncService, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()

	// Register routes
	stationHandler.RegisterRoutes(router)

	// API documentation and Prometheus metrics endpoints
	router.HandleFunc("/api/docs", handlers.SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", handlers.OpenAPISpec).Methods("GET")
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
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
	stopScheduler()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
