// Package handlers provides HTTP request handlers for the avplay API.
//
// It includes handlers for:
//   - Creating, loading, editing and exporting playlists
//   - Driving the playback controller
//   - Snapshotting playlists to the library store and restoring them
//   - Triggering playlist directory scans
//   - Health checks and version information
//
// All request and response bodies are JSON except playlist exports, which
// are served as the serialized document with its MIME type.
package handlers
