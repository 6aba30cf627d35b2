package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avplay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "avplay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "avplay_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Playlist I/O and codec metrics
var (
	PlaylistLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avplay_playlist_loads_total",
			Help: "Total number of playlist loads by format, source kind and status",
		},
		[]string{"format", "source", "status"}, // source: "file", "url"
	)

	PlaylistLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "avplay_playlist_load_duration_seconds",
			Help:    "Time spent fetching and parsing a playlist",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"format", "source"},
	)

	PlaylistSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avplay_playlist_saves_total",
			Help: "Total number of playlist saves by format and status",
		},
		[]string{"format", "status"},
	)

	PlaylistEntriesParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avplay_playlist_entries_parsed_total",
			Help: "Total number of entries produced by codecs",
		},
		[]string{"format"},
	)

	CodecParseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avplay_codec_parse_failures_total",
			Help: "Malformed documents recovered as empty playlists",
		},
		[]string{"format"},
	)
)

// Playlist manager metrics, refreshed by the Collector
var (
	ManagerPlaylists = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "avplay_manager_playlists",
			Help: "Number of playlists held by the manager",
		},
	)

	ManagerEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "avplay_manager_entries",
			Help: "Total number of entries across all managed playlists",
		},
	)
)

// Playback controller metrics
var (
	ControllerAdvancesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avplay_controller_advances_total",
			Help: "Track advances by playback mode and outcome",
		},
		[]string{"mode", "outcome"}, // outcome: "played", "wrapped", "finished", "stale", "error"
	)

	ControllerTrackEndsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avplay_controller_track_ends_total",
			Help: "Track completions detected by the monitor loop",
		},
	)

	ControllerUnexpectedStopsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avplay_controller_unexpected_stops_total",
			Help: "Backend stops observed while the controller believed it was playing",
		},
	)

	ControllerMonitorRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "avplay_controller_monitor_running",
			Help: "Number of running monitor loops",
		},
	)

	ControllerPollErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avplay_controller_poll_errors_total",
			Help: "Monitor polls that failed and triggered the error backoff",
		},
	)

	ControllerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "avplay_controller_state",
			Help: "Current playlist state (1 for the active state, 0 otherwise)",
		},
		[]string{"state"},
	)
)

// Library store metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avplay_db_queries_total",
			Help: "Total number of library store queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "avplay_db_query_duration_seconds",
			Help:    "Library store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	SnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avplay_library_snapshots_total",
			Help: "Manager snapshots written to the library store",
		},
		[]string{"status"},
	)
)

// Scanner metrics
var (
	ScannerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avplay_scanner_runs_total",
			Help: "Total number of playlist directory scans",
		},
	)

	ScannerFilesLoaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avplay_scanner_files_loaded_total",
			Help: "Playlist files loaded into the manager by the scanner",
		},
	)

	ScannerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avplay_scanner_errors_total",
			Help: "Playlist files the scanner failed to load",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "avplay_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avplay_filesystem_operation_errors_total",
			Help: "Filesystem operations that returned an error",
		},
		[]string{"operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avplay_filesystem_retry_attempts_total",
			Help: "Retries caused by stale file handles",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avplay_filesystem_retry_failures_total",
			Help: "Operations that still failed after exhausting retries",
		},
		[]string{"operation"},
	)
)
