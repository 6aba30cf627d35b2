// Package mediatypes provides shared type definitions for the files a playlist
// can reference and the playlist files themselves.
//
// This package exists as a dependency-free foundation that can be imported by other
// packages without creating import cycles.
//
// # File Types
//
//	mediatypes.FileTypeAudio    // mp3, flac, ogg, ...
//	mediatypes.FileTypeVideo    // mp4, mkv, webm, ...
//	mediatypes.FileTypePlaylist // m3u, m3u8, pls, xspf, json, wpl
//	mediatypes.FileTypeOther    // Unrecognized files
//
// # Extension Detection
//
// Ext works on both paths and URLs (query strings are ignored):
//
//	fileType := mediatypes.GetFileType(mediatypes.Ext(entry.Location))
//
// ExtensionsFor returns the dot-less extension list used by
// Playlist.FilterByExtension, e.g. to keep only audio tracks.
package mediatypes
