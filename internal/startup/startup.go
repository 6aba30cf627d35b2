package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"golang.org/x/term"

	"avplay/internal/logging"
	"avplay/internal/player"
	"avplay/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	PlaylistDir      string
	DatabaseDir      string
	Port             string
	MetricsPort      string
	MetricsEnabled   bool
	ScanInterval     time.Duration
	SnapshotSchedule string
	PlaybackMode     player.Mode
	AutoPlay         bool
	PollInterval     time.Duration
	FetchTimeout     time.Duration
	SimTrackLength   time.Duration
	LogHealthChecks  bool
	LogPolling       bool

	// Derived paths
	DatabasePath string

	// ScanningEnabled is false when the playlist directory cannot be read.
	ScanningEnabled bool
}

// Defaults for values that fail to parse.
const (
	defaultScanInterval     = 5 * time.Minute
	defaultSnapshotSchedule = "@every 5m"
	defaultPollInterval     = 100 * time.Millisecond
	defaultFetchTimeout     = 30 * time.Second
	defaultSimTrackLength   = 3 * time.Minute
)

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	playlistDir := getEnv("PLAYLIST_DIR", "/playlists")
	databaseDir := getEnv("DATABASE_DIR", "/database")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	scanIntervalStr := getEnv("SCAN_INTERVAL", "5m")
	snapshotSchedule := getEnv("SNAPSHOT_SCHEDULE", defaultSnapshotSchedule)
	modeStr := getEnv("PLAYBACK_MODE", "sequential")
	autoPlay := getEnvBool("AUTO_PLAY", true)
	pollIntervalStr := getEnv("POLL_INTERVAL", "100ms")
	fetchTimeoutStr := getEnv("FETCH_TIMEOUT", "30s")
	simTrackLengthStr := getEnv("SIM_TRACK_LENGTH", "3m")
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	logPolling := getEnvBool("LOG_PLAYER_POLLING", false)

	logging.Info("  PLAYLIST_DIR:        %s", playlistDir)
	logging.Info("  DATABASE_DIR:        %s", databaseDir)
	logging.Info("  PORT:                %s", port)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  SCAN_INTERVAL:       %s", scanIntervalStr)
	logging.Info("  SNAPSHOT_SCHEDULE:   %s", snapshotSchedule)
	logging.Info("  PLAYBACK_MODE:       %s", modeStr)
	logging.Info("  AUTO_PLAY:           %v", autoPlay)
	logging.Info("  POLL_INTERVAL:       %s", pollIntervalStr)
	logging.Info("  FETCH_TIMEOUT:       %s", fetchTimeoutStr)
	logging.Info("  SIM_TRACK_LENGTH:    %s", simTrackLengthStr)
	logging.Info("  LOAD_WORKERS:        %s (I/O pool: %d)", getEnv(workers.EnvOverride, "auto"), workers.ForIO(0))
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  LOG_PLAYER_POLLING:  %v", logPolling)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	mode, err := player.ParseMode(modeStr)
	if err != nil {
		logging.Warn("  Invalid PLAYBACK_MODE, using default: sequential")
		mode = player.ModeSequential
	}

	if _, err := cron.ParseStandard(snapshotSchedule); err != nil {
		logging.Warn("  Invalid SNAPSHOT_SCHEDULE (%v), using default: %s", err, defaultSnapshotSchedule)
		snapshotSchedule = defaultSnapshotSchedule
	}

	config := &Config{
		Port:             port,
		MetricsPort:      metricsPort,
		MetricsEnabled:   metricsEnabled,
		ScanInterval:     parseDuration("SCAN_INTERVAL", scanIntervalStr, defaultScanInterval),
		SnapshotSchedule: snapshotSchedule,
		PlaybackMode:     mode,
		AutoPlay:         autoPlay,
		PollInterval:     parsePositiveDuration("POLL_INTERVAL", pollIntervalStr, defaultPollInterval),
		FetchTimeout:     parsePositiveDuration("FETCH_TIMEOUT", fetchTimeoutStr, defaultFetchTimeout),
		SimTrackLength:   parsePositiveDuration("SIM_TRACK_LENGTH", simTrackLengthStr, defaultSimTrackLength),
		LogHealthChecks:  logHealthChecks,
		LogPolling:       logPolling,
	}

	// Resolve paths
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	config.PlaylistDir, err = filepath.Abs(playlistDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve playlist directory path: %w", err)
	}
	logging.Info("  Playlist directory (absolute): %s", config.PlaylistDir)

	config.DatabaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", config.DatabaseDir)
	config.DatabasePath = filepath.Join(config.DatabaseDir, "avplay.db")

	// Playlist directory problems only disable scanning
	if err := ensureDirectory(config.PlaylistDir, "playlist"); err != nil {
		logging.Warn("  Playlist directory issue: %v", err)
		logging.Warn("  Directory scanning will be disabled")
	} else {
		config.ScanningEnabled = true
	}

	// Ensure base database directory exists (required for database)
	if err := ensureDirectory(config.DatabaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	// Test write access for database (required)
	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(config.DatabaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	// Summary
	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Library store: ENABLED (required)")
	logging.Info("    Scanning:      %s", enabledString(config.ScanningEnabled))
	logging.Info("    Metrics:       %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func parseDuration(key, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		logging.Warn("  Invalid %s, using default: %v", key, fallback)
		return fallback
	}
	return d
}

func parsePositiveDuration(key, value string, fallback time.Duration) time.Duration {
	d := parseDuration(key, value, fallback)
	if d == 0 {
		logging.Warn("  %s must be positive, using default: %v", key, fallback)
		return fallback
	}
	return d
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogLibraryRestored logs how many playlists were restored from the store.
func LogLibraryRestored(playlists, entries int, lastSnapshot time.Time) {
	if playlists == 0 {
		logging.Info("  Library store is empty")
		return
	}
	logging.Info("  [OK] Restored %d playlists (%d entries)", playlists, entries)
	if !lastSnapshot.IsZero() {
		logging.Info("  Last snapshot: %s", lastSnapshot.Local().Format(time.RFC1123))
	}
}

// LogSnapshotSchedule logs the snapshot cron schedule.
func LogSnapshotSchedule(schedule string) {
	logging.Info("  Snapshot schedule: %s", schedule)
}

// LogScannerInit logs playlist scanner initialization
func LogScannerInit(dir string, interval time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SCANNER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Directory:     %s", dir)
	if interval > 0 {
		logging.Info("  Scan interval: %v", interval)
	} else {
		logging.Info("  Scan interval: DISABLED (initial scan only)")
	}
	logging.Info("  Starting scanner...")
}

// LogScannerStarted logs successful scanner start
func LogScannerStarted() {
	logging.Info("  [OK] Scanner started")
}

// LogScannerDisabled logs that the scanner was not started.
func LogScannerDisabled() {
	logging.Info("")
	logging.Warn("  Playlist scanning disabled (directory not available)")
}

// LogPlayerInit logs playback controller initialization
func LogPlayerInit(config *Config) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("PLAYER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Backend:        simulator (track length %v)", config.SimTrackLength)
	logging.Info("  Default mode:   %s", config.PlaybackMode)
	logging.Info("  Auto-play:      %v", config.AutoPlay)
	logging.Info("  Poll interval:  %v", config.PollInterval)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks, logPolling bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		// Group routes by prefix for cleaner output
		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
	if logPolling {
		logging.Info("    Player status logging: ON")
	} else {
		logging.Info("    Player status logging: OFF (set LOG_PLAYER_POLLING=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s/api", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		fmt.Fprintln(os.Stderr, `
------------------------------------------------------------
                   __
  ____ __   ______/ /___ ___  __
 / __ '/ | / / __ \/ / __ '/ / / /
/ /_/ /| |/ / /_/ / / /_/ / /_/ /
\__,_/ |___/ .___/_/\__,_/\__, /
          /_/            /____/
------------------------------------------------------------`)
	}
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "playlist" && logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			fileCount := 0
			dirCount := 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				} else {
					fileCount++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
		}
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
