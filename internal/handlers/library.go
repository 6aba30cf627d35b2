package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"avplay/internal/database"
	"avplay/internal/logging"
	"avplay/internal/playlist"
)

// ListLibrary returns the playlists saved in the database
func (h *Handlers) ListLibrary(w http.ResponseWriter, r *http.Request) {
	list, err := h.db.ListPlaylists(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []database.PlaylistSummary{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, list)
}

// SnapshotLibrary saves every playlist the manager holds. Playlists no longer
// held are dropped from the library.
func (h *Handlers) SnapshotLibrary(w http.ResponseWriter, r *http.Request) {
	snaps := h.manager.Snapshot()
	if err := h.db.SaveSnapshot(r.Context(), snaps); err != nil {
		writeError(w, err)
		return
	}
	logging.Info("Library snapshot saved (%d playlists)", len(snaps))

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"status": "ok", "playlists": len(snaps)})
}

// RestoreFromLibrary replaces the named playlist with its saved copy
func (h *Handlers) RestoreFromLibrary(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	stored, err := h.db.LoadPlaylist(r.Context(), name)
	if errors.Is(err, database.ErrPlaylistNotFound) {
		writeJSONError(w, "Playlist not found in library", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	h.manager.Restore(map[string]playlist.Snapshot{name: stored.Snapshot})
	h.writeDetail(w, name, http.StatusOK)
}

// TriggerScan starts a rescan of the playlist directory
func (h *Handlers) TriggerScan(w http.ResponseWriter, _ *http.Request) {
	if h.indexer == nil {
		writeJSONError(w, "Playlist scanning is disabled", http.StatusServiceUnavailable)
		return
	}
	if h.indexer.IsScanning() {
		writeJSONStatusCode(w, http.StatusConflict, map[string]string{"status": "already_scanning"})
		return
	}
	h.indexer.TriggerScan()
	writeJSONStatusCode(w, http.StatusAccepted, map[string]string{"status": "scan_started"})
}
