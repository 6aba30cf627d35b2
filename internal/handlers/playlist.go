package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"avplay/internal/logging"
	"avplay/internal/mediatypes"
	"avplay/internal/playlist"
)

// PlaylistSummary is one row of the playlist listing.
type PlaylistSummary struct {
	Name             string `json:"name"`
	Title            string `json:"title"`
	Format           string `json:"format"`
	Entries          int    `json:"entries"`
	Duration         int    `json:"duration"`
	UnknownDurations int    `json:"unknownDurations"`
}

// EntryView is an entry annotated with its position and media type.
type EntryView struct {
	playlist.Entry
	Index       int                      `json:"index"`
	Type        mediatypes.FileType      `json:"type"`
	Description string                   `json:"description,omitempty"`
	Remote      bool                     `json:"remote"`
	Status      *playlist.LocationStatus `json:"status,omitempty"`
}

// PlaylistDetail is the full view of one playlist.
type PlaylistDetail struct {
	PlaylistSummary
	Items []EntryView `json:"items"`
}

func summarize(name string, p *playlist.Playlist) PlaylistSummary {
	seconds, unknown := p.TotalDuration()
	return PlaylistSummary{
		Name:             name,
		Title:            p.Title,
		Format:           p.FormatName(),
		Entries:          p.Len(),
		Duration:         seconds,
		UnknownDurations: unknown,
	}
}

func detail(name string, p *playlist.Playlist, statuses []playlist.LocationStatus) PlaylistDetail {
	entries := p.Entries()
	d := PlaylistDetail{PlaylistSummary: summarize(name, p), Items: make([]EntryView, len(entries))}
	for i, e := range entries {
		ext := mediatypes.Ext(e.Location)
		v := EntryView{
			Entry:       e,
			Index:       i,
			Type:        mediatypes.GetFileType(ext),
			Description: mediatypes.Describe(ext),
			Remote:      playlist.IsURL(e.Location),
		}
		if i < len(statuses) {
			v.Status = &statuses[i]
		}
		d.Items[i] = v
	}
	return d
}

// writeDetail writes the named playlist, or 404 when it is gone.
func (h *Handlers) writeDetail(w http.ResponseWriter, name string, statusCode int) {
	var d PlaylistDetail
	if !h.manager.View(name, func(p *playlist.Playlist) { d = detail(name, p, nil) }) {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}
	writeJSONStatusCode(w, statusCode, d)
}

// resolvePath makes a relative local path relative to the playlist
// directory. URLs and absolute paths are returned unchanged.
func (h *Handlers) resolvePath(source string) string {
	if playlist.IsURL(source) || filepath.IsAbs(source) || h.playlistDir == "" {
		return source
	}
	return filepath.Join(h.playlistDir, filepath.FromSlash(source))
}

func parseFormatOption(name string) (playlist.Format, error) {
	if name == "" {
		return playlist.FormatUnknown, nil
	}
	f, ok := playlist.ParseFormat(name)
	if !ok {
		return playlist.FormatUnknown, fmt.Errorf("%w: unknown format %q", playlist.ErrNoCodec, name)
	}
	return f, nil
}

// ListPlaylists returns all playlists held by the manager
func (h *Handlers) ListPlaylists(w http.ResponseWriter, _ *http.Request) {
	names := h.manager.Names()
	out := make([]PlaylistSummary, 0, len(names))
	for _, name := range names {
		h.manager.View(name, func(p *playlist.Playlist) {
			out = append(out, summarize(name, p))
		})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, out)
}

// GetPlaylist returns the contents of a specific playlist. With check=true
// every local entry is resolved against the playlist directory.
func (h *Handlers) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	check, _ := strconv.ParseBool(r.URL.Query().Get("check"))

	var d PlaylistDetail
	found := h.manager.View(name, func(p *playlist.Playlist) {
		var statuses []playlist.LocationStatus
		if check {
			statuses = p.CheckLocations(h.playlistDir, "")
		}
		d = detail(name, p, statuses)
	})
	if !found {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, d)
}

// CreatePlaylistRequest creates an empty playlist, optionally seeded with
// entries.
type CreatePlaylistRequest struct {
	Name    string           `json:"name"`
	Title   string           `json:"title"`
	Entries []playlist.Entry `json:"entries"`
}

// CreatePlaylist stores a new playlist. Existing names are rejected.
func (h *Handlers) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req CreatePlaylistRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSONError(w, "Name is required", http.StatusBadRequest)
		return
	}
	if _, exists := h.manager.Get(req.Name); exists {
		writeJSONError(w, "Playlist already exists", http.StatusConflict)
		return
	}

	for _, e := range req.Entries {
		if err := e.Validate(); err != nil {
			writeError(w, err)
			return
		}
	}

	h.manager.Create(req.Name, req.Title)
	if len(req.Entries) > 0 {
		if _, err := h.manager.With(req.Name, func(p *playlist.Playlist) error { return p.Add(req.Entries...) }); err != nil {
			writeError(w, err)
			return
		}
	}
	h.writeDetail(w, req.Name, http.StatusCreated)
}

// DeletePlaylist removes a playlist from the manager
func (h *Handlers) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Remove(mux.Vars(r)["name"]) {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadRequest names a document to parse into a playlist.
type LoadRequest struct {
	Source   string `json:"source"`
	Format   string `json:"format"`
	Codec    string `json:"codec"`
	Encoding string `json:"encoding"`
}

// LoadPlaylist loads a local file or URL into the named playlist. Relative
// paths are read from the playlist directory.
func (h *Handlers) LoadPlaylist(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req LoadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Source == "" {
		writeJSONError(w, "Source is required", http.StatusBadRequest)
		return
	}
	format, err := parseFormatOption(req.Format)
	if err != nil {
		writeError(w, err)
		return
	}

	opts := playlist.LoadOptions{Format: format, Codec: req.Codec, Encoding: req.Encoding}
	if _, err := h.manager.Load(r.Context(), name, h.resolvePath(req.Source), opts); err != nil {
		writeError(w, err)
		return
	}
	h.writeDetail(w, name, http.StatusOK)
}

// SaveRequest names where and how to write a playlist.
type SaveRequest struct {
	Path     string `json:"path"`
	Format   string `json:"format"`
	Codec    string `json:"codec"`
	Encoding string `json:"encoding"`
}

// SavePlaylist writes the named playlist to disk. Without a path it is
// written to the playlist directory under its name and format extension.
func (h *Handlers) SavePlaylist(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req SaveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	format, err := parseFormatOption(req.Format)
	if err != nil {
		writeError(w, err)
		return
	}

	path := req.Path
	if path == "" {
		ext := format.Extension()
		if req.Codec != "" {
			ext = "." + strings.TrimPrefix(strings.ToLower(req.Codec), ".")
		}
		if ext == "" {
			h.manager.View(name, func(p *playlist.Playlist) {
				if n := p.FormatName(); n != "unknown" {
					ext = "." + n
				}
			})
		}
		if ext == "" {
			writeJSONError(w, "Path or format is required", http.StatusBadRequest)
			return
		}
		path = name + ext
	}
	path = h.resolvePath(path)

	found, err := h.manager.Save(name, path, playlist.SaveOptions{Format: format, Codec: req.Codec, Encoding: req.Encoding})
	if !found {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "ok", "path": path})
}

// AddEntriesRequest appends entries, or inserts one at Index.
type AddEntriesRequest struct {
	Entries []playlist.Entry `json:"entries"`
	Index   *int             `json:"index,omitempty"`
}

// AddEntries adds entries to a playlist
func (h *Handlers) AddEntries(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req AddEntriesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Entries) == 0 {
		writeJSONError(w, "At least one entry is required", http.StatusBadRequest)
		return
	}
	if req.Index != nil && len(req.Entries) != 1 {
		writeJSONError(w, "Insert takes exactly one entry", http.StatusBadRequest)
		return
	}

	found, err := h.manager.With(name, func(p *playlist.Playlist) error {
		if req.Index != nil {
			return p.Insert(*req.Index, req.Entries[0])
		}
		return p.Add(req.Entries...)
	})
	if !found {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeDetail(w, name, http.StatusOK)
}

// RemoveEntry removes the entry at an index
func (h *Handlers) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeJSONError(w, "Invalid index", http.StatusBadRequest)
		return
	}

	var removed playlist.Entry
	found, err := h.manager.With(name, func(p *playlist.Playlist) error {
		e, ok := p.Remove(index)
		if !ok {
			return fmt.Errorf("%w: %d", playlist.ErrIndexOutOfRange, index)
		}
		removed = e
		return nil
	})
	if !found {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, removed)
}

// MoveRequest moves one entry.
type MoveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// MoveEntry moves an entry to a new position
func (h *Handlers) MoveEntry(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	found, err := h.manager.With(name, func(p *playlist.Playlist) error {
		if !p.Move(req.From, req.To) {
			return fmt.Errorf("%w: cannot move %d to %d", playlist.ErrIndexOutOfRange, req.From, req.To)
		}
		return nil
	})
	if !found {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeDetail(w, name, http.StatusOK)
}

// SortRequest sorts by an entry field.
type SortRequest struct {
	Field   string `json:"field"`
	Reverse bool   `json:"reverse"`
}

// SortPlaylist sorts a playlist in place
func (h *Handlers) SortPlaylist(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	req := SortRequest{Field: playlist.FieldTitle}
	if !decodeBody(w, r, &req) {
		return
	}

	found, err := h.manager.Sort(name, req.Field, req.Reverse)
	if !found {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeDetail(w, name, http.StatusOK)
}

// DedupeRequest names the field entries are compared by.
type DedupeRequest struct {
	Field string `json:"field"`
}

// DedupePlaylist removes entries whose field repeats an earlier entry's
func (h *Handlers) DedupePlaylist(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	req := DedupeRequest{Field: playlist.FieldLocation}
	if !decodeBody(w, r, &req) {
		return
	}
	if _, ok := h.manager.Get(name); !ok {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}

	removed, err := h.manager.RemoveDuplicates(name, req.Field)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]int{"removed": removed})
}

// FilterExtensionsRequest keeps (Include) or drops entries by extension.
// Type may name "audio" or "video" instead of listing extensions.
type FilterExtensionsRequest struct {
	Extensions []string `json:"extensions"`
	Type       string   `json:"type"`
	Include    bool     `json:"include"`
}

// FilterExtensions filters a playlist in place by file extension
func (h *Handlers) FilterExtensions(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req FilterExtensionsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	exts := req.Extensions
	switch req.Type {
	case "":
	case string(mediatypes.FileTypeAudio), string(mediatypes.FileTypeVideo):
		exts = append(exts, mediatypes.ExtensionsFor(mediatypes.FileType(req.Type))...)
	default:
		writeJSONError(w, fmt.Sprintf("Unknown type %q", req.Type), http.StatusBadRequest)
		return
	}
	if len(exts) == 0 {
		writeJSONError(w, "Extensions or type is required", http.StatusBadRequest)
		return
	}
	if _, ok := h.manager.Get(name); !ok {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}

	removed := h.manager.FilterByExtension(name, exts, req.Include)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]int{"removed": removed})
}

// ExportPlaylist serializes a playlist. The format comes from the format or
// codec query parameter and defaults to the playlist's own.
func (h *Handlers) ExportPlaylist(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	query := r.URL.Query()
	format, err := parseFormatOption(query.Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}
	opts := playlist.SaveOptions{Format: format, Codec: query.Get("codec")}

	var text, label string
	found := h.manager.View(name, func(p *playlist.Playlist) {
		text, label, err = p.Encode("", opts)
	})
	if !found {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}
	if err != nil {
		if errors.Is(err, playlist.ErrFormatUndetermined) {
			writeJSONError(w, "Playlist has no format; pass ?format=", http.StatusBadRequest)
			return
		}
		writeError(w, err)
		return
	}

	ext := "." + label
	filename := filepath.Base(name) + ext
	w.Header().Set("Content-Type", mediatypes.GetMimeType(ext))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write([]byte(text)); err != nil {
		logging.Warn("Failed to write export of %s: %v", name, err)
	}
}

// MergeRequest concatenates playlists into a new one.
type MergeRequest struct {
	Name    string   `json:"name"`
	Sources []string `json:"sources"`
	Title   string   `json:"title"`
}

// MergePlaylists merges several playlists into a new one
func (h *Handlers) MergePlaylists(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || len(req.Sources) == 0 {
		writeJSONError(w, "Name and sources are required", http.StatusBadRequest)
		return
	}
	if h.manager.Merge(req.Name, req.Sources, req.Title) == nil {
		writeJSONError(w, "Source playlist not found", http.StatusNotFound)
		return
	}
	h.writeDetail(w, req.Name, http.StatusCreated)
}

// FilterRequest copies the entries of Source whose Field contains Contains
// (case-insensitive) into Target.
type FilterRequest struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Title    string `json:"title"`
	Field    string `json:"field"`
	Contains string `json:"contains"`
}

func entryField(e playlist.Entry, field string) (string, bool) {
	switch field {
	case playlist.FieldLocation:
		return e.Location, true
	case playlist.FieldTitle:
		return e.Title, true
	case playlist.FieldArtist:
		return e.Artist, true
	case playlist.FieldAlbum:
		return e.Album, true
	}
	return "", false
}

// FilterPlaylist stores a filtered copy of a playlist under a new name
func (h *Handlers) FilterPlaylist(w http.ResponseWriter, r *http.Request) {
	req := FilterRequest{Field: playlist.FieldTitle}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Source == "" || req.Target == "" {
		writeJSONError(w, "Source and target are required", http.StatusBadRequest)
		return
	}
	if _, ok := entryField(playlist.Entry{}, req.Field); !ok {
		writeJSONError(w, fmt.Sprintf("Cannot filter on field %q", req.Field), http.StatusBadRequest)
		return
	}

	needle := strings.ToLower(req.Contains)
	keep := func(e playlist.Entry) bool {
		value, _ := entryField(e, req.Field)
		return strings.Contains(strings.ToLower(value), needle)
	}
	if h.manager.Filter(req.Source, req.Target, keep, req.Title) == nil {
		writeJSONError(w, "Source playlist not found", http.StatusNotFound)
		return
	}
	h.writeDetail(w, req.Target, http.StatusCreated)
}

// FormatInfo describes a codec the server can read and write.
type FormatInfo struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	MimeType  string `json:"mimeType"`
	Builtin   bool   `json:"builtin"`
}

// ListFormats returns the built-in formats followed by custom codecs
func (h *Handlers) ListFormats(w http.ResponseWriter, _ *http.Request) {
	var out []FormatInfo
	for _, f := range playlist.Formats() {
		out = append(out, FormatInfo{Name: f.String(), Extension: f.Extension(), MimeType: mediatypes.GetMimeType(f.Extension()), Builtin: true})
	}
	for _, key := range playlist.DefaultRegistry.CustomKeys() {
		out = append(out, FormatInfo{Name: key, Extension: "." + key, MimeType: mediatypes.GetMimeType("." + key)})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, out)
}
