package playlist

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"avplay/internal/logging"
	"avplay/internal/metrics"
)

var (
	// ErrNoCodec is returned when no codec is registered for a format or key.
	ErrNoCodec = errors.New("no codec registered")
	// ErrFormatUndetermined is returned when neither an explicit format nor
	// the source extension identifies a codec.
	ErrFormatUndetermined = errors.New("could not determine playlist format")
	// ErrUnknownField is returned by Sort and RemoveDuplicates for fields
	// entries do not have.
	ErrUnknownField = errors.New("unknown entry field")
)

func errUnknownField(field string) error {
	return fmt.Errorf("%w: %q", ErrUnknownField, field)
}

var logger = logging.For("playlist")

// Codec converts between playlist text and entries.
//
// Parse never fails: malformed documents produce an empty or partial list.
// Serialize receives the text the playlist was loaded from when it is being
// written back in the same format, or "" otherwise.
type Codec interface {
	Parse(text string) []Entry
	Serialize(entries []Entry, original string) (string, error)
}

// TitleReader is implemented by codecs whose documents carry a playlist title.
type TitleReader interface {
	ReadTitle(text string) string
}

// Registry maps formats and custom keys to codecs.
type Registry struct {
	mu      sync.RWMutex
	builtin map[Format]Codec
	custom  map[string]Codec
}

// NewRegistry returns a registry with codecs for all built-in formats.
func NewRegistry() *Registry {
	r := &Registry{}
	m3u := M3UCodec{}
	r.Register(FormatM3U, m3u)
	r.Register(FormatM3U8, m3u)
	r.Register(FormatPLS, PLSCodec{})
	r.Register(FormatXSPF, XSPFCodec{})
	r.Register(FormatJSON, JSONCodec{})
	return r
}

// DefaultRegistry is used by playlists that were not given a registry.
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	r.RegisterCustom("wpl", WPLCodec{})
	return r
}()

// Register installs or replaces the codec for a built-in format.
func (r *Registry) Register(f Format, c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.builtin == nil {
		r.builtin = make(map[Format]Codec)
	}
	r.builtin[f] = c
}

// RegisterCustom installs a codec under a free-form key. Keys are case
// insensitive and may be given with or without a leading dot, so a codec
// registered as "wpl" is found for files ending in .wpl.
func (r *Registry) RegisterCustom(key string, c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.custom == nil {
		r.custom = make(map[string]Codec)
	}
	r.custom[normalizeKey(key)] = c
}

// Codec returns the codec for a built-in format.
func (r *Registry) Codec(f Format) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.builtin[f]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w for format %s", ErrNoCodec, f)
}

// Custom returns the codec registered under key.
func (r *Registry) Custom(key string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.custom[normalizeKey(key)]
	return c, ok
}

// CustomKeys returns the registered custom keys, sorted.
func (r *Registry) CustomKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.custom))
	for k := range r.custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// resolve picks a codec: an explicit custom key wins, then an explicit
// format, then the format detected from the extension of hint, then a
// custom codec registered under that extension.
func (r *Registry) resolve(hint string, format Format, key string) (Codec, Format, string, error) {
	if key != "" {
		c, ok := r.Custom(key)
		if !ok {
			return nil, FormatUnknown, "", fmt.Errorf("%w for key %q", ErrNoCodec, key)
		}
		return c, FormatUnknown, normalizeKey(key), nil
	}
	if format == FormatUnknown {
		format = DetectFormat(hint)
	}
	if format != FormatUnknown {
		c, err := r.Codec(format)
		if err != nil {
			return nil, FormatUnknown, "", err
		}
		return c, format, "", nil
	}
	if ext := normalizeKey(filepath.Ext(stripQuery(hint))); ext != "" {
		if c, ok := r.Custom(ext); ok {
			return c, FormatUnknown, ext, nil
		}
	}
	return nil, FormatUnknown, "", fmt.Errorf("%w: %s", ErrFormatUndetermined, hint)
}

func normalizeKey(key string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(key)), ".")
}

// formatLabel is the metrics label for a format or custom key.
func formatLabel(f Format, key string) string {
	if key != "" {
		return key
	}
	return f.String()
}

// parseFailed records a document the codec could not make sense of.
func parseFailed(label string, err error) {
	logger.Debug("%s document did not parse: %v", label, err)
	metrics.CodecParseFailures.WithLabelValues(label).Inc()
}

var urlPattern = regexp.MustCompile(`(?i)^https?://`)

// IsURL reports whether location is an http(s) URL.
func IsURL(location string) bool {
	return urlPattern.MatchString(location)
}

// normalizeLocation cleans local paths and leaves URLs untouched.
func normalizeLocation(location string) string {
	if IsURL(location) {
		return location
	}
	return filepath.Clean(location)
}

func stripQuery(location string) string {
	if IsURL(location) {
		if i := strings.IndexAny(location, "?#"); i >= 0 {
			return location[:i]
		}
	}
	return location
}
