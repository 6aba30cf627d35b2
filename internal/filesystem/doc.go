/*
Package filesystem provides resilient filesystem operations with automatic retry
logic for NFS stale file handle errors.

Playlists frequently live on network shares next to the media they reference.
Loading, saving and the "is this location an existing file" check performed by
the playback controller all go through this package so that a transient ESTALE
does not surface as a failed load or a track being mistaken for a URL.

# Usage

	data, err := filesystem.ReadFileWithRetry("/nfs/playlists/mix.m3u", filesystem.DefaultRetryConfig())

	err := filesystem.WriteFileAtomic(path, []byte(text), 0o644, filesystem.DefaultRetryConfig())

	if filesystem.IsRegularFile(entry.Location) { ... }

# Retry Behavior

The retry logic implements exponential backoff with the following defaults:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

Only NFS stale file handle errors (ESTALE) trigger retries. All other errors
fail immediately without retry attempts.

WriteFileAtomic writes to a temporary sibling file and renames it into place,
so a concurrent reader sees either the old or the new playlist.

Metrics are reported through an Observer installed with SetObserver; the
metrics package provides the Prometheus implementation.
*/
package filesystem
