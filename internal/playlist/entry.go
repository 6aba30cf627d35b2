package playlist

import (
	"errors"
	"maps"
	"strconv"
	"strings"
)

// ErrEmptyLocation is returned when an entry without a location is added.
var ErrEmptyLocation = errors.New("playlist entry has no location")

// Entry is a single track reference.
type Entry struct {
	Location string         `json:"location"`
	Title    string         `json:"title,omitempty"`
	Artist   string         `json:"artist,omitempty"`
	Album    string         `json:"album,omitempty"`
	Duration *int           `json:"duration,omitempty"` // seconds; nil when unknown
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Seconds returns a duration value for Entry.Duration.
func Seconds(n int) *int {
	return &n
}

// DurationSeconds returns the duration and whether it is known.
func (e Entry) DurationSeconds() (int, bool) {
	if e.Duration == nil {
		return 0, false
	}
	return *e.Duration, true
}

// Clone returns a deep copy so the caller cannot alias the owner's duration
// pointer or metadata map.
func (e Entry) Clone() Entry {
	c := e
	if e.Duration != nil {
		c.Duration = Seconds(*e.Duration)
	}
	if e.Metadata != nil {
		c.Metadata = maps.Clone(e.Metadata)
	}
	return c
}

// Validate reports whether the entry can be stored in a playlist.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Location) == "" {
		return ErrEmptyLocation
	}
	return nil
}

// Field names accepted by Sort and RemoveDuplicates.
const (
	FieldLocation = "location"
	FieldTitle    = "title"
	FieldArtist   = "artist"
	FieldAlbum    = "album"
	FieldDuration = "duration"
)

// fieldKey returns a string key for dedup. Unknown durations get a key no
// formatted number can collide with.
func fieldKey(field string) (func(Entry) string, error) {
	switch strings.ToLower(field) {
	case "", FieldLocation:
		return func(e Entry) string { return e.Location }, nil
	case FieldTitle:
		return func(e Entry) string { return e.Title }, nil
	case FieldArtist:
		return func(e Entry) string { return e.Artist }, nil
	case FieldAlbum:
		return func(e Entry) string { return e.Album }, nil
	case FieldDuration:
		return func(e Entry) string {
			if e.Duration == nil {
				return "\x00unknown"
			}
			return strconv.Itoa(*e.Duration)
		}, nil
	default:
		return nil, errUnknownField(field)
	}
}

// fieldCompare returns a three-way comparison for field. Missing values sort
// as the empty string, i.e. before everything else.
func fieldCompare(field string) (func(a, b Entry) int, error) {
	if strings.ToLower(field) == FieldDuration {
		return func(a, b Entry) int {
			switch {
			case a.Duration == nil && b.Duration == nil:
				return 0
			case a.Duration == nil:
				return -1
			case b.Duration == nil:
				return 1
			}
			return *a.Duration - *b.Duration
		}, nil
	}
	key, err := fieldKey(field)
	if err != nil {
		return nil, err
	}
	return func(a, b Entry) int {
		return strings.Compare(key(a), key(b))
	}, nil
}
