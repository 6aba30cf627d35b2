package mediatypes

import (
	"path"
	"sort"
	"strings"
)

// FileType represents the type of a media file.
type FileType string

const (
	// FileTypeAudio represents an audio file.
	FileTypeAudio FileType = "audio"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypePlaylist represents a playlist file.
	FileTypePlaylist FileType = "playlist"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// AudioExtensions maps audio extensions to a human readable description.
var AudioExtensions = map[string]string{
	".mp1":  "MPEG Audio Layer 1",
	".mp2":  "MPEG Audio Layer 2",
	".mp3":  "MPEG Audio Layer 3",
	".ogg":  "Ogg Vorbis Audio Container",
	".wav":  "Waveform Audio File Format",
	".m4a":  "MPEG-4 Audio (often AAC)",
	".aac":  "Advanced Audio Coding",
	".flac": "Free Lossless Audio Codec",
	".wma":  "Windows Media Audio",
	".aif":  "Audio Interchange File Format",
	".wv":   "WavPack Lossless Audio",
}

// VideoExtensions maps video extensions to a human readable description.
var VideoExtensions = map[string]string{
	".flv":  "Flash Video",
	".rm":   "RealMedia",
	".3gp":  "3rd Generation Partnership Project",
	".mp4":  "MPEG-4 Part 14 Video Container",
	".mkv":  "Matroska Multimedia Container",
	".mov":  "Apple QuickTime Movie",
	".wmv":  "Windows Media Video",
	".mpeg": "Moving Picture Experts Group Video (MPEG-1/MPEG-2)",
	".avi":  "Audio Video Interleave",
	".webm": "WebM Video Format (VP8/VP9/AV1 Video, Vorbis/Opus Audio)",
}

// PlaylistExtensions maps file extensions to whether they are supported playlist formats.
var PlaylistExtensions = map[string]bool{
	".m3u":  true,
	".m3u8": true,
	".pls":  true,
	".xspf": true,
	".json": true,
	".wpl":  true,
}

// MimeTypes maps playlist extensions to their MIME types.
var MimeTypes = map[string]string{
	".m3u":  "audio/x-mpegurl",
	".m3u8": "application/vnd.apple.mpegurl",
	".pls":  "audio/x-scpls",
	".xspf": "application/xspf+xml",
	".json": "application/json",
	".wpl":  "application/vnd.ms-wpl",
}

// Ext returns the lowercase extension of a path or URL, including the leading
// dot. Query strings and fragments of URLs are ignored.
func Ext(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 && strings.Contains(location, "://") {
		location = location[:i]
	}
	location = strings.ReplaceAll(location, "\\", "/")
	return strings.ToLower(path.Ext(location))
}

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".mp3").
// Returns FileTypeOther if the extension is not recognized.
func GetFileType(ext string) FileType {
	if _, ok := AudioExtensions[ext]; ok {
		return FileTypeAudio
	}
	if _, ok := VideoExtensions[ext]; ok {
		return FileTypeVideo
	}
	if PlaylistExtensions[ext] {
		return FileTypePlaylist
	}
	return FileTypeOther
}

// Describe returns the description of an audio or video extension, or "".
func Describe(ext string) string {
	if d, ok := AudioExtensions[ext]; ok {
		return d
	}
	return VideoExtensions[ext]
}

// GetMimeType returns the MIME type for a given playlist extension.
// Returns "text/plain; charset=utf-8" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "text/plain; charset=utf-8"
}

// IsMediaFile returns true if the extension is a playable audio or video file.
func IsMediaFile(ext string) bool {
	t := GetFileType(ext)
	return t == FileTypeAudio || t == FileTypeVideo
}

// ExtensionsFor lists the extensions of a file type without leading dots,
// sorted, in the form accepted by extension filters ("mp3", "flac", ...).
func ExtensionsFor(t FileType) []string {
	var exts []string
	switch t {
	case FileTypeAudio:
		for ext := range AudioExtensions {
			exts = append(exts, strings.TrimPrefix(ext, "."))
		}
	case FileTypeVideo:
		for ext := range VideoExtensions {
			exts = append(exts, strings.TrimPrefix(ext, "."))
		}
	case FileTypePlaylist:
		for ext := range PlaylistExtensions {
			exts = append(exts, strings.TrimPrefix(ext, "."))
		}
	}
	sort.Strings(exts)
	return exts
}
