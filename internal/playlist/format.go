package playlist

import (
	"strings"

	"avplay/internal/mediatypes"
)

// Format identifies a built-in playlist format.
type Format int

const (
	FormatUnknown Format = iota
	FormatM3U
	FormatM3U8
	FormatXSPF
	FormatPLS
	FormatJSON
)

var formatNames = map[Format]string{
	FormatM3U:  "m3u",
	FormatM3U8: "m3u8",
	FormatXSPF: "xspf",
	FormatPLS:  "pls",
	FormatJSON: "json",
}

// Formats lists the built-in formats in declaration order.
func Formats() []Format {
	return []Format{FormatM3U, FormatM3U8, FormatXSPF, FormatPLS, FormatJSON}
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// Extension returns the file extension for the format including the dot,
// or "" for FormatUnknown.
func (f Format) Extension() string {
	if name, ok := formatNames[f]; ok {
		return "." + name
	}
	return ""
}

// ParseFormat accepts a format name or extension ("m3u", ".M3U8", "xspf").
func ParseFormat(s string) (Format, bool) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	for f, name := range formatNames {
		if name == s {
			return f, true
		}
	}
	return FormatUnknown, false
}

// DetectFormat infers the format from the extension of a path or URL.
func DetectFormat(source string) Format {
	ext := mediatypes.Ext(source)
	if ext == "" {
		return FormatUnknown
	}
	f, _ := ParseFormat(ext)
	return f
}
