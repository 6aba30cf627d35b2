package playlist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

// JSONCodec reads and writes JSON playlists: either a bare array of track
// objects or an object with a "tracks" array.
type JSONCodec struct{}

// Parse lifts location, title, artist, album and duration into entry fields
// and keeps every other key in Metadata. A lifted key whose value has the
// wrong type is kept in Metadata instead.
func (JSONCodec) Parse(text string) []Entry {
	data, err := decodeJSON(text)
	if err != nil {
		parseFailed("json", err)
		return nil
	}

	var tracks []any
	switch v := data.(type) {
	case []any:
		tracks = v
	case map[string]any:
		tracks, _ = v["tracks"].([]any)
	}

	var entries []Entry
	for _, item := range tracks {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		loc, ok := obj["location"].(string)
		if !ok || strings.TrimSpace(loc) == "" {
			continue
		}
		e := Entry{Location: normalizeLocation(loc)}
		for key, value := range obj {
			if liftJSONField(&e, key, value) {
				continue
			}
			if e.Metadata == nil {
				e.Metadata = make(map[string]any)
			}
			e.Metadata[key] = convertJSONValue(value)
		}
		entries = append(entries, e)
	}
	return entries
}

// liftJSONField stores value in the matching entry field and reports whether
// it was consumed. Null values of lifted keys are dropped.
func liftJSONField(e *Entry, key string, value any) bool {
	var dst *string
	switch key {
	case "location":
		return true
	case "title":
		dst = &e.Title
	case "artist":
		dst = &e.Artist
	case "album":
		dst = &e.Album
	case "duration":
		if value == nil {
			return true
		}
		n, ok := value.(json.Number)
		if !ok {
			return false
		}
		f, err := n.Float64()
		if err != nil || f < 0 || math.IsInf(f, 0) {
			return false
		}
		e.Duration = Seconds(int(f))
		return true
	default:
		return false
	}
	if value == nil {
		return true
	}
	s, ok := value.(string)
	if !ok {
		return false
	}
	*dst = s
	return true
}

// convertJSONValue turns json.Number into int64 when integral and float64
// otherwise, recursing into arrays and objects.
func convertJSONValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = convertJSONValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = convertJSONValue(item)
		}
		return out
	default:
		return v
	}
}

func decodeJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return data, nil
}

// Serialize writes the array shape when the original was a bare array and
// the object shape otherwise. Other top-level keys of an original object are
// kept.
func (JSONCodec) Serialize(entries []Entry, original string) (string, error) {
	tracks := make([]orderedTrack, len(entries))
	for i, e := range entries {
		tracks[i] = orderedTrack(e)
	}

	var doc any = map[string]any{"tracks": tracks}
	if original != "" {
		switch v := decodeOrNil(original).(type) {
		case []any:
			doc = tracks
		case map[string]any:
			v["tracks"] = tracks
			doc = v
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encode json playlist: %w", err)
	}
	return buf.String(), nil
}

func decodeOrNil(text string) any {
	data, err := decodeJSON(text)
	if err != nil {
		return nil
	}
	return data
}

// orderedTrack marshals with the entry fields first and metadata keys after
// them in sorted order. Metadata keys override entry fields of the same name.
type orderedTrack Entry

type jsonField struct {
	key   string
	value any
}

func (t orderedTrack) MarshalJSON() ([]byte, error) {
	fields := []jsonField{{"location", t.Location}}
	if t.Title != "" {
		fields = append(fields, jsonField{"title", t.Title})
	}
	if t.Artist != "" {
		fields = append(fields, jsonField{"artist", t.Artist})
	}
	if t.Album != "" {
		fields = append(fields, jsonField{"album", t.Album})
	}
	if t.Duration != nil {
		fields = append(fields, jsonField{"duration", *t.Duration})
	}

	keys := make([]string, 0, len(t.Metadata))
	for k := range t.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
next:
	for _, k := range keys {
		for i := range fields {
			if fields[i].key == k {
				fields[i].value = t.Metadata[k]
				continue next
			}
		}
		fields = append(fields, jsonField{k, t.Metadata[k]})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(f.key)
		if err != nil {
			return nil, err
		}
		value, err := marshalNoEscape(f.value)
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", f.key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeMetadata parses a JSON object into entry metadata with the same
// number handling as the JSON codec: integers become int64, other numbers
// float64.
func DecodeMetadata(data []byte) (map[string]any, error) {
	v, err := decodeJSON(string(data))
	if err != nil {
		return nil, err
	}
	obj, ok := convertJSONValue(v).(map[string]any)
	if !ok {
		return nil, errors.New("metadata is not a JSON object")
	}
	return obj, nil
}

// EncodeMetadata is the inverse of DecodeMetadata. Empty metadata encodes
// as nil.
func EncodeMetadata(md map[string]any) ([]byte, error) {
	if len(md) == 0 {
		return nil, nil
	}
	return marshalNoEscape(md)
}
