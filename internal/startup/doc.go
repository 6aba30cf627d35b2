// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// The following environment variables are supported:
//
//   - PLAYLIST_DIR: Directory scanned for playlist files (default: /playlists)
//   - DATABASE_DIR: Path to the library store directory (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - SCAN_INTERVAL: Playlist directory rescan interval, 0 disables (default: 5m)
//   - SNAPSHOT_SCHEDULE: Cron schedule for library snapshots (default: @every 5m)
//   - PLAYBACK_MODE: Default progression mode (default: sequential)
//   - AUTO_PLAY: Start playback when a playlist is loaded (default: true)
//   - POLL_INTERVAL: Playback monitor poll interval (default: 100ms)
//   - FETCH_TIMEOUT: Timeout for loading playlists from URLs (default: 30s)
//   - SIM_TRACK_LENGTH: Track length reported by the simulated backend (default: 3m)
//   - LOAD_WORKERS: Pins the worker count for concurrent loads
//   - LOG_HEALTH_CHECKS: Log requests to health endpoints (default: true)
//   - LOG_PLAYER_POLLING: Log GET /api/player requests (default: false)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//
// Invalid values are logged and replaced by their defaults. Only an unusable
// database directory is fatal; an unusable playlist directory disables
// scanning.
//
// # Build Information
//
// Version, Commit and BuildTime are injected at build time:
//
//	go build -ldflags "-X avplay/internal/startup.Version=1.0.0 -X avplay/internal/startup.Commit=abc123"
package startup
