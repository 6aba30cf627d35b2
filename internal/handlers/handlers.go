package handlers

import (
	"sync"
	"time"

	"github.com/gorilla/mux"

	"avplay/internal/database"
	"avplay/internal/indexer"
	"avplay/internal/player"
	"avplay/internal/playlist"
	"avplay/internal/startup"
)

type Handlers struct {
	manager     *playlist.Manager
	controller  *player.Controller
	db          *database.Database
	indexer     *indexer.Indexer
	playlistDir string
	autoPlay    bool
	mode        player.Mode
	startTime   time.Time

	// loadedName is the manager name of the playlist bound to the controller.
	playerMu   sync.Mutex
	loadedName string
}

// New creates the handlers. idx may be nil when scanning is disabled.
func New(manager *playlist.Manager, controller *player.Controller, db *database.Database, idx *indexer.Indexer, config *startup.Config) *Handlers {
	return &Handlers{
		manager:     manager,
		controller:  controller,
		db:          db,
		indexer:     idx,
		playlistDir: config.PlaylistDir,
		autoPlay:    config.AutoPlay,
		mode:        config.PlaybackMode,
		startTime:   time.Now(),
	}
}

// RegisterRoutes adds every API route to r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/formats", h.ListFormats).Methods("GET")
	api.HandleFunc("/scan", h.TriggerScan).Methods("POST")

	// Playlists. Fixed paths are registered before {name} routes.
	api.HandleFunc("/playlists", h.ListPlaylists).Methods("GET")
	api.HandleFunc("/playlists", h.CreatePlaylist).Methods("POST")
	api.HandleFunc("/playlists/merge", h.MergePlaylists).Methods("POST")
	api.HandleFunc("/playlists/filter", h.FilterPlaylist).Methods("POST")
	api.HandleFunc("/playlists/{name:.+}/load", h.LoadPlaylist).Methods("POST")
	api.HandleFunc("/playlists/{name:.+}/save", h.SavePlaylist).Methods("POST")
	api.HandleFunc("/playlists/{name:.+}/entries", h.AddEntries).Methods("POST")
	api.HandleFunc("/playlists/{name:.+}/entries/{index:[0-9]+}", h.RemoveEntry).Methods("DELETE")
	api.HandleFunc("/playlists/{name:.+}/move", h.MoveEntry).Methods("POST")
	api.HandleFunc("/playlists/{name:.+}/sort", h.SortPlaylist).Methods("POST")
	api.HandleFunc("/playlists/{name:.+}/dedupe", h.DedupePlaylist).Methods("POST")
	api.HandleFunc("/playlists/{name:.+}/filter-extensions", h.FilterExtensions).Methods("POST")
	api.HandleFunc("/playlists/{name:.+}/export", h.ExportPlaylist).Methods("GET")
	api.HandleFunc("/playlists/{name:.+}", h.GetPlaylist).Methods("GET")
	api.HandleFunc("/playlists/{name:.+}", h.DeletePlaylist).Methods("DELETE")

	// Library store
	api.HandleFunc("/library", h.ListLibrary).Methods("GET")
	api.HandleFunc("/library/snapshot", h.SnapshotLibrary).Methods("POST")
	api.HandleFunc("/library/{name:.+}/restore", h.RestoreFromLibrary).Methods("POST")

	// Player
	api.HandleFunc("/player", h.GetPlayerStatus).Methods("GET")
	api.HandleFunc("/player/load", h.PlayerLoad).Methods("POST")
	api.HandleFunc("/player/next", h.PlayerNext).Methods("POST")
	api.HandleFunc("/player/previous", h.PlayerPrevious).Methods("POST")
	api.HandleFunc("/player/pause", h.PlayerPause).Methods("POST")
	api.HandleFunc("/player/resume", h.PlayerResume).Methods("POST")
	api.HandleFunc("/player/stop", h.PlayerStop).Methods("POST")
	api.HandleFunc("/player/play/{index:[0-9]+}", h.PlayerPlayIndex).Methods("POST")
	api.HandleFunc("/player/seek", h.PlayerSeek).Methods("POST")
	api.HandleFunc("/player/mode", h.PlayerSetMode).Methods("PUT")
	api.HandleFunc("/player/autoplay", h.PlayerSetAutoPlay).Methods("PUT")
	api.HandleFunc("/player/volume", h.PlayerSetVolume).Methods("PUT")
	api.HandleFunc("/player/devices", h.PlayerDevices).Methods("GET")
	api.HandleFunc("/player/device", h.PlayerSetDevice).Methods("PUT")
}
