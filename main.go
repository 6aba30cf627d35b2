package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"avplay/internal/backend"
	"avplay/internal/database"
	"avplay/internal/filesystem"
	"avplay/internal/handlers"
	"avplay/internal/indexer"
	"avplay/internal/logging"
	"avplay/internal/memory"
	"avplay/internal/metrics"
	"avplay/internal/middleware"
	"avplay/internal/player"
	"avplay/internal/playlist"
	"avplay/internal/startup"
)

const (
	statsInterval   = time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics()

	manager := playlist.NewManager()
	manager.SetHTTPClient(&http.Client{Timeout: config.FetchTimeout})

	// Initialize database and restore the library
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))
	restoreLibrary(db, manager)

	snapshots, err := scheduleSnapshots(config.SnapshotSchedule, db, manager)
	if err != nil {
		startup.LogFatal("Invalid snapshot schedule: %v", err)
	}
	startup.LogSnapshotSchedule(config.SnapshotSchedule)
	snapshots.Start()

	// Initialize scanner
	var idx *indexer.Indexer
	if config.ScanningEnabled {
		startup.LogScannerInit(config.PlaylistDir, config.ScanInterval)
		idx = indexer.New(manager, config.PlaylistDir, config.ScanInterval)
		idx.Start()
		startup.LogScannerStarted()
	} else {
		startup.LogScannerDisabled()
	}

	collector := metrics.NewCollector(manager, statsInterval)
	collector.Start()

	// Initialize player
	startup.LogPlayerInit(config)
	controller := player.NewController(
		backend.New(config.SimTrackLength),
		player.WithPollInterval(config.PollInterval),
	)

	h := handlers.New(manager, controller, db, idx, config)

	// Setup router
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks, config.LogPolling)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggingConfig.LogPolling = config.LogPolling
	loggedHandler := middleware.Logger(loggingConfig)(router)

	// Apply compression middleware
	compressionConfig := middleware.DefaultCompressionConfig()
	handler := middleware.Compression(compressionConfig)(loggedHandler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	done := make(chan struct{})
	go func() {
		defer close(done)
		handleShutdown(shutdownDeps{
			srv:        srv,
			metricsSrv: metricsSrv,
			indexer:    idx,
			collector:  collector,
			controller: controller,
			snapshots:  snapshots,
			db:         db,
			manager:    manager,
		})
	}()

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

// restoreLibrary loads the last snapshot into the manager. A store that
// cannot be read is logged and the service starts empty.
func restoreLibrary(db *database.Database, manager *playlist.Manager) {
	ctx := context.Background()
	snaps, err := db.LoadSnapshot(ctx)
	if err != nil {
		logging.Error("Failed to restore library: %v", err)
		return
	}
	manager.Restore(snaps)

	last, err := db.GetLastSnapshot(ctx)
	if err != nil {
		logging.Warn("Failed to read last snapshot time: %v", err)
	}
	stats := manager.Stats()
	startup.LogLibraryRestored(stats.Playlists, stats.Entries, last)
}

func saveSnapshot(db *database.Database, manager *playlist.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	snaps := manager.Snapshot()
	if err := db.SaveSnapshot(ctx, snaps); err != nil {
		logging.Error("Library snapshot failed: %v", err)
		return
	}
	logging.Debug("Library snapshot saved (%d playlists)", len(snaps))
}

// scheduleSnapshots returns a stopped cron that snapshots the manager on
// schedule. Runs never overlap.
func scheduleSnapshots(schedule string, db *database.Database, manager *playlist.Manager) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() { saveSnapshot(db, manager) }); err != nil {
		return nil, err
	}
	return c, nil
}

type shutdownDeps struct {
	srv        *http.Server
	metricsSrv *http.Server
	indexer    *indexer.Indexer
	collector  *metrics.Collector
	controller *player.Controller
	snapshots  *cron.Cron
	db         *database.Database
	manager    *playlist.Manager
}

func handleShutdown(deps shutdownDeps) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := deps.srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}
	if deps.metricsSrv != nil {
		if err := deps.metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	startup.LogShutdownStep("Releasing player")
	if err := deps.controller.Release(); err != nil {
		logging.Warn("Player release error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Player released")
	}

	if deps.indexer != nil {
		startup.LogShutdownStep("Stopping scanner")
		deps.indexer.Stop()
		startup.LogShutdownStepComplete("Scanner stopped")
	}
	deps.collector.Stop()

	startup.LogShutdownStep("Saving library snapshot")
	<-deps.snapshots.Stop().Done()
	saveSnapshot(deps.db, deps.manager)
	startup.LogShutdownStepComplete("Library snapshot saved")

	startup.LogShutdownComplete()
}
