package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"avplay/internal/player"
	"avplay/internal/playlist"
)

// PlayerStatus is the controller status plus the manager name of the
// playlist it plays.
type PlayerStatus struct {
	player.Status
	Name string `json:"name,omitempty"`
}

func (h *Handlers) playerStatus() PlayerStatus {
	h.playerMu.Lock()
	name := h.loadedName
	h.playerMu.Unlock()
	return PlayerStatus{Status: h.controller.Status(), Name: name}
}

// respondPlayer writes err, or the player status when err is nil.
func (h *Handlers) respondPlayer(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, h.playerStatus())
}

// GetPlayerStatus returns the playback state
func (h *Handlers) GetPlayerStatus(w http.ResponseWriter, _ *http.Request) {
	h.respondPlayer(w, nil)
}

// PlayerLoadRequest binds a managed playlist to the player. Omitted fields
// fall back to the configured defaults.
type PlayerLoadRequest struct {
	Name     string `json:"name"`
	AutoPlay *bool  `json:"autoPlay,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

// PlayerLoad starts playing a copy of a managed playlist. Later edits to the
// managed playlist do not affect the running playback until it is loaded
// again.
func (h *Handlers) PlayerLoad(w http.ResponseWriter, r *http.Request) {
	var req PlayerLoadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSONError(w, "Name is required", http.StatusBadRequest)
		return
	}

	autoPlay := h.autoPlay
	if req.AutoPlay != nil {
		autoPlay = *req.AutoPlay
	}
	mode := h.mode
	if req.Mode != "" {
		m, err := player.ParseMode(req.Mode)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		mode = m
	}

	var pl *playlist.Playlist
	if !h.manager.View(req.Name, func(p *playlist.Playlist) { pl = p.Clone() }) {
		writeJSONError(w, "Playlist not found", http.StatusNotFound)
		return
	}

	h.playerMu.Lock()
	err := h.controller.LoadPlaylist(pl, autoPlay, mode)
	// The playlist stays bound even when its first entry failed to start.
	if h.controller.Playlist() == pl {
		h.loadedName = req.Name
	}
	h.playerMu.Unlock()

	h.respondPlayer(w, err)
}

// PlayerNext advances to the next entry
func (h *Handlers) PlayerNext(w http.ResponseWriter, _ *http.Request) {
	h.respondPlayer(w, h.controller.Next())
}

// PlayerPrevious goes back one entry
func (h *Handlers) PlayerPrevious(w http.ResponseWriter, _ *http.Request) {
	h.respondPlayer(w, h.controller.Previous())
}

func (h *Handlers) PlayerPause(w http.ResponseWriter, _ *http.Request) {
	h.respondPlayer(w, h.controller.Pause())
}

func (h *Handlers) PlayerResume(w http.ResponseWriter, _ *http.Request) {
	h.respondPlayer(w, h.controller.Resume())
}

func (h *Handlers) PlayerStop(w http.ResponseWriter, _ *http.Request) {
	h.respondPlayer(w, h.controller.Stop())
}

// PlayerPlayIndex jumps to an entry
func (h *Handlers) PlayerPlayIndex(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeJSONError(w, "Invalid index", http.StatusBadRequest)
		return
	}
	h.respondPlayer(w, h.controller.PlayIndex(index))
}

// SeekRequest moves playback to an absolute position in seconds.
type SeekRequest struct {
	Seconds *int `json:"seconds"`
}

// PlayerSeek seeks within the current entry
func (h *Handlers) PlayerSeek(w http.ResponseWriter, r *http.Request) {
	var req SeekRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Seconds == nil || *req.Seconds < 0 {
		writeJSONError(w, "Seconds must be zero or more", http.StatusBadRequest)
		return
	}
	h.respondPlayer(w, h.controller.Seek(*req.Seconds))
}

// ModeRequest changes the progression mode and, optionally, whether shuffle
// starts a new round after the last entry.
type ModeRequest struct {
	Mode          string `json:"mode"`
	ShuffleRepeat *bool  `json:"shuffleRepeat,omitempty"`
}

// PlayerSetMode changes the progression mode
func (h *Handlers) PlayerSetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Mode == "" && req.ShuffleRepeat == nil {
		writeJSONError(w, "Mode or shuffleRepeat is required", http.StatusBadRequest)
		return
	}
	if req.Mode != "" {
		m, err := player.ParseMode(req.Mode)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.controller.SetMode(m); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.ShuffleRepeat != nil {
		h.controller.SetShuffleRepeat(*req.ShuffleRepeat)
	}
	h.respondPlayer(w, nil)
}

// AutoPlayRequest turns automatic advancing on or off.
type AutoPlayRequest struct {
	Enabled bool `json:"enabled"`
}

// PlayerSetAutoPlay starts or stops the monitor loop
func (h *Handlers) PlayerSetAutoPlay(w http.ResponseWriter, r *http.Request) {
	var req AutoPlayRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.respondPlayer(w, h.controller.SetAutoPlay(req.Enabled))
}

// VolumeRequest sets the volume (0 to 1) and/or mute flag.
type VolumeRequest struct {
	Volume *float64 `json:"volume,omitempty"`
	Muted  *bool    `json:"muted,omitempty"`
}

// PlayerSetVolume adjusts the output volume
func (h *Handlers) PlayerSetVolume(w http.ResponseWriter, r *http.Request) {
	var req VolumeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Volume == nil && req.Muted == nil {
		writeJSONError(w, "Volume or muted is required", http.StatusBadRequest)
		return
	}
	if req.Volume != nil {
		if *req.Volume < 0 || *req.Volume > 1 {
			writeJSONError(w, "Volume must be between 0 and 1", http.StatusBadRequest)
			return
		}
		if err := h.controller.SetVolume(*req.Volume); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Muted != nil {
		if err := h.controller.SetMuted(*req.Muted); err != nil {
			writeError(w, err)
			return
		}
	}
	h.respondPlayer(w, nil)
}

// DevicesResponse lists output devices and the selected one.
type DevicesResponse struct {
	Devices []player.Device `json:"devices"`
	Current int             `json:"current"`
}

// PlayerDevices lists audio output devices
func (h *Handlers) PlayerDevices(w http.ResponseWriter, _ *http.Request) {
	devices, current, err := h.controller.Devices()
	if err != nil {
		writeError(w, err)
		return
	}
	if devices == nil {
		devices = []player.Device{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, DevicesResponse{Devices: devices, Current: current})
}

// DeviceRequest selects an output device by index.
type DeviceRequest struct {
	Index *int `json:"index"`
}

// PlayerSetDevice selects the output device
func (h *Handlers) PlayerSetDevice(w http.ResponseWriter, r *http.Request) {
	var req DeviceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeJSONError(w, "Index is required", http.StatusBadRequest)
		return
	}
	if err := h.controller.SetDevice(*req.Index); err != nil {
		writeError(w, err)
		return
	}
	h.PlayerDevices(w, r)
}
