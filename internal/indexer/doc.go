// Package indexer keeps the playlist manager in sync with a directory of
// playlist files.
//
// Each file with a playlist extension is loaded under its path relative to
// the scanned directory, without extension, so "rock/classics.m3u" becomes
// the playlist "rock/classics". A scan:
//   - Loads files that are new or whose size or modification time changed
//   - Removes playlists whose files were deleted since the last scan
//   - Leaves playlists created through other means untouched
//
// Scans run once at startup, then on a fixed interval, and can be triggered
// on demand. Hidden files and directories (prefixed with '.') are skipped.
package indexer
