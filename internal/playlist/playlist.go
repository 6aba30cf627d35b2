package playlist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"avplay/internal/filesystem"
	"avplay/internal/mediatypes"
	"avplay/internal/metrics"
)

// DefaultTitle is the title of playlists created without one.
const DefaultTitle = "New Playlist"

// ErrIndexOutOfRange is returned by positional operations given an index
// outside the playlist.
var ErrIndexOutOfRange = errors.New("playlist index out of range")

// Playlist is an ordered list of entries together with the format and text
// it was last loaded from. A Playlist is not safe for concurrent use.
type Playlist struct {
	Title string

	entries  []Entry
	format   Format
	codecKey string
	original string
	registry *Registry
	client   *http.Client
}

// New returns an empty playlist. An empty title becomes DefaultTitle.
func New(title string) *Playlist {
	if title == "" {
		title = DefaultTitle
	}
	return &Playlist{Title: title}
}

// SetRegistry selects the codec registry used by Load and Save.
func (p *Playlist) SetRegistry(r *Registry) {
	p.registry = r
}

// SetHTTPClient sets the client used to fetch URL sources.
func (p *Playlist) SetHTTPClient(c *http.Client) {
	p.client = c
}

func (p *Playlist) codecs() *Registry {
	if p.registry != nil {
		return p.registry
	}
	return DefaultRegistry
}

// Format returns the built-in format of the last load, or FormatUnknown.
func (p *Playlist) Format() Format { return p.format }

// CodecKey returns the custom codec key of the last load, or "".
func (p *Playlist) CodecKey() string { return p.codecKey }

// FormatName returns the format or custom key of the last load.
func (p *Playlist) FormatName() string {
	if p.format == FormatUnknown && p.codecKey == "" {
		return ""
	}
	return formatLabel(p.format, p.codecKey)
}

// OriginalText returns the text of the last load.
func (p *Playlist) OriginalText() string { return p.original }

// LoadOptions controls how a source is read.
type LoadOptions struct {
	// Format forces a built-in codec instead of detecting it from the source.
	Format Format
	// Codec selects a custom codec by key and takes precedence over Format.
	Codec string
	// Encoding names the character encoding of the source. Empty means UTF-8.
	Encoding string
}

// Load replaces the entries with those parsed from source, a local path or
// an http(s) URL. On error the playlist is left unchanged.
func (p *Playlist) Load(ctx context.Context, source string, opts LoadOptions) error {
	codec, format, key, err := p.codecs().resolve(source, opts.Format, opts.Codec)
	if err != nil {
		return err
	}

	label := formatLabel(format, key)
	kind := "file"
	if IsURL(source) {
		kind = "url"
	}
	start := time.Now()

	text, err := fetchText(ctx, source, opts.Encoding, p.client)
	metrics.PlaylistLoadDuration.WithLabelValues(label, kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PlaylistLoadsTotal.WithLabelValues(label, kind, "error").Inc()
		return fmt.Errorf("load playlist %s: %w", source, err)
	}

	p.entries = codec.Parse(text)
	p.format = format
	p.codecKey = key
	p.original = text
	if tr, ok := codec.(TitleReader); ok {
		if title := tr.ReadTitle(text); title != "" {
			p.Title = title
		}
	}

	metrics.PlaylistLoadsTotal.WithLabelValues(label, kind, "success").Inc()
	metrics.PlaylistEntriesParsed.WithLabelValues(label).Add(float64(len(p.entries)))
	logger.Debug("loaded %d entries from %s (%s)", len(p.entries), source, label)
	return nil
}

// SaveOptions controls how a playlist is written.
type SaveOptions struct {
	// Format forces a built-in codec. When both Format and Codec are empty the
	// playlist's own format is used, then the extension of the target path.
	Format   Format
	Codec    string
	Encoding string
}

// Encode serializes the playlist. target is only used to infer the format
// and may be empty when opts or the playlist's own format decide it.
func (p *Playlist) Encode(target string, opts SaveOptions) (string, string, error) {
	format, key := opts.Format, opts.Codec
	if format == FormatUnknown && key == "" {
		format, key = p.format, p.codecKey
	}
	codec, format, key, err := p.codecs().resolve(target, format, key)
	if err != nil {
		return "", "", err
	}

	original := ""
	if format == p.format && key == p.codecKey {
		original = p.original
	}
	text, err := codec.Serialize(p.entries, original)
	if err != nil {
		return "", "", fmt.Errorf("serialize %s: %w", formatLabel(format, key), err)
	}
	return text, formatLabel(format, key), nil
}

// Save writes the playlist to path. The file is replaced atomically.
func (p *Playlist) Save(path string, opts SaveOptions) error {
	text, label, err := p.Encode(path, opts)
	if err != nil {
		return err
	}
	data, err := encodeText(text, opts.Encoding)
	if err == nil {
		err = filesystem.WriteFileAtomic(path, data, 0o644, filesystem.DefaultRetryConfig())
	}
	if err != nil {
		metrics.PlaylistSavesTotal.WithLabelValues(label, "error").Inc()
		return fmt.Errorf("save playlist %s: %w", path, err)
	}
	metrics.PlaylistSavesTotal.WithLabelValues(label, "success").Inc()
	logger.Debug("saved %d entries to %s (%s)", len(p.entries), path, label)
	return nil
}

// Len returns the number of entries.
func (p *Playlist) Len() int { return len(p.entries) }

// Entries returns a copy of the entries.
func (p *Playlist) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Clone()
	}
	return out
}

// Get returns the entry at index.
func (p *Playlist) Get(index int) (Entry, bool) {
	if index < 0 || index >= len(p.entries) {
		return Entry{}, false
	}
	return p.entries[index].Clone(), true
}

// Add appends entries. Nothing is added if any entry lacks a location.
func (p *Playlist) Add(entries ...Entry) error {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	for _, e := range entries {
		p.entries = append(p.entries, e.Clone())
	}
	return nil
}

// Insert places e before index; index == Len appends.
func (p *Playlist) Insert(index int, e Entry) error {
	if index < 0 || index > len(p.entries) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	p.entries = slices.Insert(p.entries, index, e.Clone())
	return nil
}

// Replace overwrites the entry at index.
func (p *Playlist) Replace(index int, e Entry) error {
	if index < 0 || index >= len(p.entries) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	p.entries[index] = e.Clone()
	return nil
}

// Remove deletes and returns the entry at index.
func (p *Playlist) Remove(index int) (Entry, bool) {
	if index < 0 || index >= len(p.entries) {
		return Entry{}, false
	}
	e := p.entries[index]
	p.entries = slices.Delete(p.entries, index, index+1)
	return e, true
}

// Move relocates the entry at from so that it ends up at index to.
func (p *Playlist) Move(from, to int) bool {
	n := len(p.entries)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	e := p.entries[from]
	p.entries = slices.Delete(p.entries, from, from+1)
	p.entries = slices.Insert(p.entries, to, e)
	return true
}

// Clear removes all entries. Format and original text are kept.
func (p *Playlist) Clear() {
	p.entries = nil
}

// Sort orders entries by a named field with a stable sort. Missing values
// sort first; reverse keeps equal entries in their original order.
func (p *Playlist) Sort(field string, reverse bool) error {
	cmp, err := fieldCompare(field)
	if err != nil {
		return err
	}
	p.SortFunc(cmp, reverse)
	return nil
}

// SortFunc orders entries with a caller supplied comparison.
func (p *Playlist) SortFunc(cmp func(a, b Entry) int, reverse bool) {
	if reverse {
		slices.SortStableFunc(p.entries, func(a, b Entry) int { return cmp(b, a) })
		return
	}
	slices.SortStableFunc(p.entries, cmp)
}

// Filter returns a new playlist with copies of the entries keep accepts. The
// title, format and original text are carried over; the receiver is not
// modified.
func (p *Playlist) Filter(keep func(Entry) bool) *Playlist {
	out := *p
	out.entries = nil
	for _, e := range p.entries {
		if keep(e) {
			out.entries = append(out.entries, e.Clone())
		}
	}
	return &out
}

// RemoveDuplicates keeps the first entry for each value of field ("" means
// location) and returns the number removed.
func (p *Playlist) RemoveDuplicates(field string) (int, error) {
	key, err := fieldKey(field)
	if err != nil {
		return 0, err
	}
	return p.RemoveDuplicatesFunc(key), nil
}

// RemoveDuplicatesFunc keeps the first entry for each key and returns the
// number removed.
func (p *Playlist) RemoveDuplicatesFunc(key func(Entry) string) int {
	seen := make(map[string]struct{}, len(p.entries))
	kept := p.entries[:0]
	for _, e := range p.entries {
		k := key(e)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, e)
	}
	removed := len(p.entries) - len(kept)
	clear(p.entries[len(kept):])
	p.entries = kept
	return removed
}

// FilterByExtension keeps (include) or drops (!include) entries whose
// location extension is in exts. Extensions are case insensitive and may be
// given with or without the dot. It returns the number removed.
func (p *Playlist) FilterByExtension(exts []string, include bool) int {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		set[normalizeKey(ext)] = struct{}{}
	}
	before := len(p.entries)
	p.entries = slices.DeleteFunc(p.entries, func(e Entry) bool {
		_, match := set[strings.TrimPrefix(mediatypes.Ext(e.Location), ".")]
		return match != include
	})
	return before - len(p.entries)
}

// Merge returns a new playlist with copies of the receiver's entries followed
// by other's, titled "<title> + <other title>".
func (p *Playlist) Merge(other *Playlist) *Playlist {
	out := New(p.Title + " + " + other.Title)
	out.registry = p.registry
	out.client = p.client
	out.entries = append(p.Entries(), other.Entries()...)
	return out
}

// Clone returns a deep copy including format and original text.
func (p *Playlist) Clone() *Playlist {
	c := *p
	c.entries = p.Entries()
	return &c
}

// TotalDuration sums known durations and counts entries without one.
func (p *Playlist) TotalDuration() (seconds int, unknown int) {
	for _, e := range p.entries {
		if e.Duration == nil {
			unknown++
			continue
		}
		seconds += *e.Duration
	}
	return seconds, unknown
}

// LocationStatus describes whether an entry's local file could be found.
type LocationStatus struct {
	Index    int    `json:"index"`
	Location string `json:"location"`
	Resolved string `json:"resolved,omitempty"`
	Exists   bool   `json:"exists"`
	Remote   bool   `json:"remote"`
}

// CheckLocations resolves local entries. Relative locations are tried
// against baseDir (usually the playlist's directory) and then as a bare file
// name inside mediaDir. URLs are reported as remote and not fetched.
func (p *Playlist) CheckLocations(baseDir, mediaDir string) []LocationStatus {
	out := make([]LocationStatus, len(p.entries))
	for i, e := range p.entries {
		st := LocationStatus{Index: i, Location: e.Location}
		if IsURL(e.Location) {
			st.Remote = true
			st.Exists = true
			out[i] = st
			continue
		}
		src := strings.ReplaceAll(e.Location, "\\", "/")
		var candidates []string
		if filepath.IsAbs(src) {
			candidates = append(candidates, src)
		} else if baseDir != "" {
			candidates = append(candidates, filepath.Join(baseDir, src))
		}
		if mediaDir != "" {
			candidates = append(candidates, filepath.Join(mediaDir, filepath.Base(src)))
		}
		for _, c := range candidates {
			if _, err := filesystem.StatWithRetry(c, filesystem.DefaultRetryConfig()); err == nil {
				st.Resolved = c
				st.Exists = true
				break
			} else if !errors.Is(err, os.ErrNotExist) {
				logger.Debug("stat %s: %v", c, err)
			}
		}
		out[i] = st
	}
	return out
}

// Snapshot is a serializable copy of a playlist's state.
type Snapshot struct {
	Title    string  `json:"title"`
	Format   string  `json:"format,omitempty"`
	Original string  `json:"original,omitempty"`
	Entries  []Entry `json:"entries"`
}

// Snapshot captures the playlist. Format holds the built-in format name or
// the custom codec key.
func (p *Playlist) Snapshot() Snapshot {
	return Snapshot{
		Title:    p.Title,
		Format:   p.FormatName(),
		Original: p.original,
		Entries:  p.Entries(),
	}
}

// FromSnapshot rebuilds a playlist. A format name that is not built in is
// taken as a custom codec key.
func FromSnapshot(s Snapshot) *Playlist {
	p := New(s.Title)
	if s.Format != "" {
		if f, ok := ParseFormat(s.Format); ok {
			p.format = f
		} else {
			p.codecKey = normalizeKey(s.Format)
		}
	}
	p.original = s.Original
	for _, e := range s.Entries {
		if e.Validate() == nil {
			p.entries = append(p.entries, e.Clone())
		}
	}
	return p
}
