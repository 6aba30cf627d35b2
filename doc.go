// Command avplay serves a playlist library and a playback controller over
// HTTP.
//
// # Application Lifecycle
//
//  1. Memory configuration: GOMEMLIMIT from MEMORY_LIMIT when running in a
//     container
//  2. Configuration loading from environment variables
//  3. Database initialization and restore of the last library snapshot
//  4. Component initialization:
//     - Snapshot cron: saves the library on SNAPSHOT_SCHEDULE
//     - Scanner: loads playlist files from PLAYLIST_DIR and keeps them in sync
//     - Metrics collector: samples library size for Prometheus
//     - Player: a playback controller over the simulated backend
//  5. HTTP server with logging, metrics and compression middleware, plus a
//     separate Prometheus endpoint on METRICS_PORT
//  6. Graceful shutdown on SIGINT/SIGTERM with a final snapshot
//
// # API
//
// Playlists live under /api/playlists, the stored library under /api/library
// and playback under /api/player. /health, /livez and /readyz serve probes.
package main
