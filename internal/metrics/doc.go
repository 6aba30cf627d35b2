// Package metrics provides Prometheus instrumentation for avplay.
//
// All metrics are registered with promauto at package initialisation and are
// prefixed with "avplay_" to avoid naming collisions with other applications.
//
// # Metric Categories
//
// ## HTTP Metrics
//
// Track control API performance and error rates:
//   - HTTPRequestsTotal: Counter of requests by method, path and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Playlist Metrics
//
//   - PlaylistLoadsTotal / PlaylistLoadDuration: loads by format and source kind
//   - PlaylistSavesTotal: saves by format and status
//   - PlaylistEntriesParsed: entries produced by each codec
//   - CodecParseFailures: malformed XSPF/JSON documents recovered as empty
//   - ManagerPlaylists / ManagerEntries: sampled by the Collector
//
// ## Controller Metrics
//
//   - ControllerAdvancesTotal: advances by mode and outcome
//   - ControllerTrackEndsTotal, ControllerUnexpectedStopsTotal
//   - ControllerMonitorRunning, ControllerPollErrors, ControllerState
//
// ## Library Store, Scanner and Filesystem Metrics
//
//   - DBQueryTotal / DBQueryDuration, SnapshotsTotal
//   - ScannerRunsTotal, ScannerFilesLoaded, ScannerErrors
//   - FilesystemOperationDuration / Errors, FilesystemRetryAttempts / Failures
//
// The filesystem package cannot import this package (it sits below it), so
// filesystem metrics flow through NewFilesystemObserver.
package metrics
