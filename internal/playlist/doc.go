// Package playlist parses, edits and writes playlist files.
//
// Supported formats:
//   - M3U / M3U8: line based, #EXTINF metadata
//   - PLS: INI style File<n>/Title<n>/Length<n> keys
//   - XSPF: XML track lists (non-track elements of a loaded document are kept)
//   - JSON: a bare array of track objects or an object with a "tracks" array
//   - WPL (Windows Playlist): registered as a custom codec under the key "wpl"
//
// A Playlist remembers the text it was loaded from so that saving it again in
// the same format keeps the structural choices of the original file: whether
// an M3U file had an #EXTM3U header, the surrounding XSPF document, or whether
// a JSON playlist was a bare array. Saving in a different format always
// produces a fresh document.
//
// Codecs never fail on malformed input. XSPF, JSON and WPL documents that do
// not parse yield an empty entry list, which is logged at debug level and
// counted in the avplay_codec_parse_failures_total metric.
//
// The Manager keeps named playlists and offers merge, filter and dedup
// operations keyed by name. It is safe for concurrent use; individual
// Playlist values are not, so callers that share one across goroutines go
// through Manager.With and Manager.View.
package playlist
