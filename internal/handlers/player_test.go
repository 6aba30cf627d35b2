package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avplay/internal/player"
	"avplay/internal/playlist"
)

func boolPtr(b bool) *bool { return &b }

func TestPlayerWithoutPlaylist(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/player", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[PlayerStatus](t, rec)
	assert.Equal(t, player.StateStopped, status.State)
	assert.Empty(t, status.Name)

	rec = env.do(t, http.MethodPost, "/api/player/play/0", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/player/next", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/player/load", PlayerLoadRequest{Name: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlayerLoadAndNavigate(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env.manager, "mix", "http://example.com/a.mp3", "http://example.com/b.mp3", "http://example.com/c.mp3")

	rec := env.do(t, http.MethodPost, "/api/player/load", PlayerLoadRequest{Name: "mix", AutoPlay: boolPtr(false)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status := decode[PlayerStatus](t, rec)
	assert.Equal(t, "mix", status.Name)
	assert.Equal(t, player.StatePlaying, status.State)
	assert.Equal(t, 0, status.Index)
	assert.Equal(t, 3, status.Entries)
	assert.False(t, status.MonitorRunning)
	require.NotNil(t, status.Current)
	assert.Equal(t, "http://example.com/a.mp3", status.Current.Location)

	rec = env.do(t, http.MethodPost, "/api/player/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[PlayerStatus](t, rec).Index)

	rec = env.do(t, http.MethodPost, "/api/player/play/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[PlayerStatus](t, rec).Index)

	rec = env.do(t, http.MethodPost, "/api/player/play/9", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/player/previous", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[PlayerStatus](t, rec).Index)

	rec = env.do(t, http.MethodPost, "/api/player/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, player.StatePaused, decode[PlayerStatus](t, rec).State)

	rec = env.do(t, http.MethodPost, "/api/player/resume", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, player.StatePlaying, decode[PlayerStatus](t, rec).State)

	rec = env.do(t, http.MethodPost, "/api/player/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, player.StateStopped, decode[PlayerStatus](t, rec).State)
}

func TestPlayerPlaysACopy(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env.manager, "mix", "http://example.com/a.mp3", "http://example.com/b.mp3")

	rec := env.do(t, http.MethodPost, "/api/player/load", PlayerLoadRequest{Name: "mix", AutoPlay: boolPtr(false)})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/playlists/mix/entries", AddEntriesRequest{Entries: []playlist.Entry{{Location: "http://example.com/c.mp3"}}})
	require.Equal(t, http.StatusOK, rec.Code)

	status := env.h.playerStatus()
	assert.Equal(t, 2, status.Entries, "edits to the managed playlist do not reach the running playback")
}

func TestPlayerSettings(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env.manager, "mix", "http://example.com/a.mp3", "http://example.com/b.mp3")

	rec := env.do(t, http.MethodPost, "/api/player/load", PlayerLoadRequest{Name: "mix", AutoPlay: boolPtr(false), Mode: "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/player/load", PlayerLoadRequest{Name: "mix", AutoPlay: boolPtr(false), Mode: "repeat_all"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, player.ModeRepeatAll, decode[PlayerStatus](t, rec).Mode)

	rec = env.do(t, http.MethodPut, "/api/player/mode", ModeRequest{Mode: "shuffle", ShuffleRepeat: boolPtr(true)})
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[PlayerStatus](t, rec)
	assert.Equal(t, player.ModeShuffle, status.Mode)
	assert.True(t, status.ShuffleRepeat)

	rec = env.do(t, http.MethodPut, "/api/player/mode", ModeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/player/autoplay", AutoPlayRequest{Enabled: true})
	require.Equal(t, http.StatusOK, rec.Code)
	status = decode[PlayerStatus](t, rec)
	assert.True(t, status.AutoPlay)
	assert.True(t, status.MonitorRunning)

	rec = env.do(t, http.MethodPut, "/api/player/autoplay", AutoPlayRequest{Enabled: false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[PlayerStatus](t, rec).MonitorRunning)

	half := 0.5
	rec = env.do(t, http.MethodPut, "/api/player/volume", VolumeRequest{Volume: &half, Muted: boolPtr(true)})
	require.Equal(t, http.StatusOK, rec.Code)
	volume, muted := env.sim.Volume()
	assert.InDelta(t, 0.5, volume, 0.001)
	assert.True(t, muted)

	tooLoud := 1.5
	rec = env.do(t, http.MethodPut, "/api/player/volume", VolumeRequest{Volume: &tooLoud})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	seconds := 30
	rec = env.do(t, http.MethodPost, "/api/player/seek", SeekRequest{Seconds: &seconds})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, decode[PlayerStatus](t, rec).Position, 30)

	rec = env.do(t, http.MethodPost, "/api/player/seek", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlayerDevices(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/player/devices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	devices := decode[DevicesResponse](t, rec)
	require.Len(t, devices.Devices, 1)
	assert.Equal(t, 0, devices.Current)

	rec = env.do(t, http.MethodPut, "/api/player/device", DeviceRequest{Index: new(int)})
	assert.Equal(t, http.StatusOK, rec.Code)

	three := 3
	rec = env.do(t, http.MethodPut, "/api/player/device", DeviceRequest{Index: &three})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlayerAfterRelease(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.ctrl.Release())

	rec := env.do(t, http.MethodPost, "/api/player/pause", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
