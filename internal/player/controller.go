package player

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"avplay/internal/logging"
	"avplay/internal/metrics"
	"avplay/internal/playlist"
)

var (
	ErrBackend            = errors.New("backend error")
	ErrNoPlaylist         = errors.New("no playlist bound")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrUnsupported        = errors.New("operation not supported by backend")
	ErrUnplayableLocation = errors.New("location is neither an existing file nor a valid URL")
	ErrReleased           = errors.New("controller released")
)

// Default timings for the monitor loop.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultSettleDelay  = 500 * time.Millisecond
	DefaultErrorBackoff = 500 * time.Millisecond
	DefaultStopTimeout  = time.Second
)

var logger = logging.For("controller")

// TrackEndFunc is called from the monitor goroutine with the index of the
// entry that just finished.
type TrackEndFunc func(index int)

// Option configures a Controller.
type Option func(*Controller)

// WithRand sets the source used for shuffle orders.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) { c.rng = r }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.settleDelay = d
		}
	}
}

func WithErrorBackoff(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.errorBackoff = d
		}
	}
}

func WithStopTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.stopTimeout = d
		}
	}
}

// Controller drives a Backend through a bound playlist.
//
// Every exported method takes the controller mutex, and backend commands
// issued by those methods run while it is held. The monitor goroutine polls
// the backend without the mutex and changes position only through
// advanceFrom, which drops decisions made against an older track.
type Controller struct {
	mu sync.Mutex

	backend       Backend
	playlist      *playlist.Playlist
	index         int
	order         []int
	mode          Mode
	state         State
	autoPlay      bool
	shuffleRepeat bool
	onTrackEnd    TrackEndFunc
	released      bool

	// gen increments on every command that changes what the backend is
	// doing. endedGen is the generation whose track end was reported.
	gen      uint64
	endedGen uint64

	mon *monitor
	rng *rand.Rand

	pollInterval time.Duration
	settleDelay  time.Duration
	errorBackoff time.Duration
	stopTimeout  time.Duration
}

// NewController returns a stopped controller with no playlist.
func NewController(b Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:      b,
		index:        -1,
		pollInterval: DefaultPollInterval,
		settleDelay:  DefaultSettleDelay,
		errorBackoff: DefaultErrorBackoff,
		stopTimeout:  DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	metrics.SetControllerState(c.state.String())
	return c
}

// LoadPlaylist stops the backend, binds pl and starts its first entry. With
// autoPlay the monitor loop is started so the controller advances on its own.
// An empty playlist leaves the controller stopped with no current index.
func (c *Controller) LoadPlaylist(pl *playlist.Playlist, autoPlay bool, mode Mode) error {
	if pl == nil {
		return ErrNoPlaylist
	}

	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return ErrReleased
	}

	var stale *monitor
	err := c.backendCall("stop", c.backend.Stop)
	if err == nil {
		c.playlist = pl
		c.autoPlay = autoPlay
		c.mode = mode
		c.index = -1
		c.order = nil
		c.gen++
		c.setStateLocked(StateStopped)
		if mode == ModeShuffle {
			c.order = ShuffleOrder(pl.Len(), c.rng)
		}

		if pl.Len() > 0 {
			c.index = 0
			err = c.playLocked()
		}
		if autoPlay && pl.Len() > 0 {
			c.startMonitorLocked()
		} else {
			stale = c.detachMonitorLocked()
		}
		logger.Info("Loaded playlist %q (%d entries, mode %s, auto-play %v)", pl.Title, pl.Len(), mode, autoPlay)
	}
	c.mu.Unlock()

	c.join(stale)
	return err
}

// Next advances according to the current mode. It is a no-op without a
// non-empty playlist.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	if c.emptyLocked() {
		return nil
	}
	return c.advanceLocked()
}

// Previous steps back one entry, or one position in the shuffle order,
// clamping at the start.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	if c.emptyLocked() {
		return nil
	}
	c.clampLocked()

	if c.mode == ModeShuffle {
		c.ensureOrderLocked()
		pos := positionOf(c.order, c.index)
		if pos > 0 {
			pos--
		} else {
			pos = 0
		}
		c.index = c.order[pos]
	} else {
		c.index = max(0, c.index-1)
	}
	return c.playLocked()
}

// PlayIndex jumps to entry i and plays it.
func (c *Controller) PlayIndex(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	if c.playlist == nil {
		return ErrNoPlaylist
	}
	if i < 0 || i >= c.playlist.Len() {
		return fmt.Errorf("%w: %d (playlist has %d entries)", ErrIndexOutOfRange, i, c.playlist.Len())
	}
	c.index = i
	err := c.playLocked()
	if c.autoPlay {
		c.startMonitorLocked()
	}
	return err
}

func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	if err := c.backendCall("pause", c.backend.Pause); err != nil {
		return err
	}
	c.gen++
	c.setStateLocked(StatePaused)
	return nil
}

// Resume continues playback and restarts the monitor when auto-play is on.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	if err := c.backendCall("play", c.backend.Play); err != nil {
		return err
	}
	c.gen++
	c.setStateLocked(StatePlaying)
	if c.autoPlay && !c.emptyLocked() {
		c.startMonitorLocked()
	}
	return nil
}

// Stop halts the backend and the monitor loop. The monitor is stopped even
// when the backend reports an error.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return ErrReleased
	}
	stale := c.detachMonitorLocked()
	err := c.backendCall("stop", c.backend.Stop)
	if err == nil {
		c.gen++
		c.setStateLocked(StateStopped)
	}
	c.mu.Unlock()

	c.join(stale)
	return err
}

// SetAutoPlay toggles automatic advancing. Enabling it with a non-empty
// playlist bound starts the monitor; disabling it stops the monitor.
func (c *Controller) SetAutoPlay(enabled bool) error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return ErrReleased
	}
	c.autoPlay = enabled
	var stale *monitor
	if enabled && !c.emptyLocked() {
		c.startMonitorLocked()
	} else {
		stale = c.detachMonitorLocked()
	}
	c.mu.Unlock()

	c.join(stale)
	return nil
}

// SetMode changes the progression mode. Switching to shuffle always draws a
// fresh order.
func (c *Controller) SetMode(m Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	c.mode = m
	if m == ModeShuffle {
		c.order = ShuffleOrder(c.lenLocked(), c.rng)
	}
	return nil
}

// SetShuffleRepeat makes shuffle mode wrap to the start of the order instead
// of finishing.
func (c *Controller) SetShuffleRepeat(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shuffleRepeat = enabled
}

// SetTrackEndCallback registers fn for track-end events. It runs on the
// monitor goroutine without the controller mutex held.
func (c *Controller) SetTrackEndCallback(fn TrackEndFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTrackEnd = fn
}

// Seek jumps within the current track.
func (c *Controller) Seek(seconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	s, ok := c.backend.(Seeker)
	if !ok {
		return fmt.Errorf("seek: %w", ErrUnsupported)
	}
	return c.backendCall("seek", func() error { return s.Seek(seconds) })
}

func (c *Controller) SetVolume(volume float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	v, ok := c.backend.(VolumeSetter)
	if !ok {
		return fmt.Errorf("set volume: %w", ErrUnsupported)
	}
	return c.backendCall("set volume", func() error { return v.SetVolume(volume) })
}

func (c *Controller) SetMuted(muted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	m, ok := c.backend.(Muter)
	if !ok {
		return fmt.Errorf("mute: %w", ErrUnsupported)
	}
	return c.backendCall("mute", func() error { return m.SetMuted(muted) })
}

// Devices lists output devices and the index of the active one.
func (c *Controller) Devices() ([]Device, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil, -1, ErrReleased
	}
	ds, ok := c.backend.(DeviceSelector)
	if !ok {
		return nil, -1, fmt.Errorf("devices: %w", ErrUnsupported)
	}
	devices, err := ds.Devices()
	if err != nil {
		return nil, -1, fmt.Errorf("%w: devices: %v", ErrBackend, err)
	}
	current, err := ds.CurrentDevice()
	if err != nil {
		return nil, -1, fmt.Errorf("%w: current device: %v", ErrBackend, err)
	}
	return devices, current, nil
}

// SetDevice switches output to the device at index.
func (c *Controller) SetDevice(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	ds, ok := c.backend.(DeviceSelector)
	if !ok {
		return fmt.Errorf("set device: %w", ErrUnsupported)
	}
	devices, err := ds.Devices()
	if err != nil {
		return fmt.Errorf("%w: devices: %v", ErrBackend, err)
	}
	if index < 0 || index >= len(devices) {
		return fmt.Errorf("%w: device %d (%d available)", ErrIndexOutOfRange, index, len(devices))
	}
	return c.backendCall("set device", func() error { return ds.SetDevice(index) })
}

// Revalidate brings the index and shuffle order back in line with the bound
// playlist after it was edited.
func (c *Controller) Revalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clampLocked()
	if c.mode == ModeShuffle {
		c.ensureOrderLocked()
	}
}

// Release stops the monitor and closes the backend when it implements
// io.Closer. The controller rejects further commands.
func (c *Controller) Release() error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return nil
	}
	c.released = true
	stale := c.detachMonitorLocked()
	c.mu.Unlock()

	c.join(stale)

	if closer, ok := c.backend.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("%w: close: %v", ErrBackend, err)
		}
	}
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

func (c *Controller) AutoPlay() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoPlay
}

// ShuffleOrder returns a copy of the current shuffle order.
func (c *Controller) ShuffleOrder() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.order...)
}

// Playlist returns the bound playlist, or nil.
func (c *Controller) Playlist() *playlist.Playlist {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playlist
}

func (c *Controller) MonitorRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mon != nil
}

// Status is a point-in-time view of the controller.
type Status struct {
	State          State           `json:"state"`
	Mode           Mode            `json:"mode"`
	AutoPlay       bool            `json:"auto_play"`
	ShuffleRepeat  bool            `json:"shuffle_repeat"`
	MonitorRunning bool            `json:"monitor_running"`
	Playlist       string          `json:"playlist,omitempty"`
	Entries        int             `json:"entries"`
	Index          int             `json:"index"`
	Current        *playlist.Entry `json:"current,omitempty"`
	Backend        PlaybackState   `json:"backend"`
	Position       int             `json:"position"`
	Length         int             `json:"length"`
}

// Status reports the controller state. Backend fields are best effort and
// left zero when the backend cannot answer.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		State:          c.state,
		Mode:           c.mode,
		AutoPlay:       c.autoPlay,
		ShuffleRepeat:  c.shuffleRepeat,
		MonitorRunning: c.mon != nil,
		Index:          c.index,
	}
	if c.playlist != nil {
		s.Playlist = c.playlist.Title
		s.Entries = c.playlist.Len()
		if e, ok := c.playlist.Get(c.index); ok {
			s.Current = &e
		}
	}
	if c.released {
		return s
	}
	if st, err := c.backend.PlaybackState(); err == nil {
		s.Backend = st
	}
	if pos, err := c.backend.Position(); err == nil {
		s.Position = pos
	}
	if length, err := c.backend.Length(); err == nil {
		s.Length = length
	}
	return s
}

func (c *Controller) lenLocked() int {
	if c.playlist == nil {
		return 0
	}
	return c.playlist.Len()
}

func (c *Controller) emptyLocked() bool {
	return c.lenLocked() == 0
}

// clampLocked pulls an index left dangling by playlist edits back into range.
func (c *Controller) clampLocked() {
	n := c.lenLocked()
	switch {
	case n == 0:
		c.index = -1
	case c.index >= n:
		c.index = n - 1
	case c.index < 0:
		c.index = 0
	}
}

func (c *Controller) ensureOrderLocked() {
	if n := c.lenLocked(); len(c.order) != n {
		c.order = ShuffleOrder(n, c.rng)
	}
}

// advanceLocked moves to the next entry for the current mode and plays it,
// or marks the playlist finished.
func (c *Controller) advanceLocked() error {
	n := c.lenLocked()
	if n == 0 {
		return nil
	}
	c.clampLocked()

	outcome := "played"
	switch c.mode {
	case ModeRepeatOne:
	case ModeShuffle:
		c.ensureOrderLocked()
		pos := positionOf(c.order, c.index)
		switch {
		case pos < 0 && len(c.order) == 0:
			c.index = 0
		case pos < 0:
			c.index = c.order[0]
		case pos+1 < len(c.order):
			c.index = c.order[pos+1]
		case c.shuffleRepeat:
			c.index = c.order[0]
			outcome = "wrapped"
		default:
			return c.finishLocked()
		}
	default:
		next := c.index + 1
		if next >= n {
			if c.mode != ModeRepeatAll {
				return c.finishLocked()
			}
			next = 0
			outcome = "wrapped"
		}
		c.index = next
	}

	if err := c.playLocked(); err != nil {
		metrics.ControllerAdvancesTotal.WithLabelValues(c.mode.String(), "error").Inc()
		return err
	}
	metrics.ControllerAdvancesTotal.WithLabelValues(c.mode.String(), outcome).Inc()
	return nil
}

func (c *Controller) finishLocked() error {
	c.setStateLocked(StateFinished)
	metrics.ControllerAdvancesTotal.WithLabelValues(c.mode.String(), "finished").Inc()
	logger.Debug("Reached the end of %q", c.playlist.Title)
	return nil
}

// playLocked loads the current entry into the backend and starts it.
//
// An entry that is neither a file nor a URL stops the backend. With auto-play
// on the state is set to playing so the monitor treats the stop as a finished
// track and moves past it.
func (c *Controller) playLocked() error {
	c.gen++
	e, ok := c.playlist.Get(c.index)
	if !ok {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, c.index)
	}

	src, err := ResolveSource(e.Location)
	if err != nil {
		logger.Warn("Skipping entry %d: %v", c.index, err)
		stopErr := c.backend.Stop()
		if stopErr != nil {
			logger.Debug("Stop after unplayable entry failed: %v", stopErr)
		}
		switch {
		case c.autoPlay:
			c.setStateLocked(StatePlaying)
		case stopErr == nil:
			c.setStateLocked(StateStopped)
		}
		return err
	}

	if err := c.backendCall("load", func() error { return c.backend.Load(src) }); err != nil {
		return err
	}
	if err := c.backendCall("play", c.backend.Play); err != nil {
		return err
	}
	c.setStateLocked(StatePlaying)
	logger.Debug("Playing entry %d: %s (%s)", c.index, src.Location, src.Kind)
	return nil
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	metrics.SetControllerState(s.String())
}

func (c *Controller) backendCall(op string, fn func() error) error {
	if err := fn(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBackend, op, err)
	}
	return nil
}

// advanceFrom advances only if no track has been started since the caller
// observed generation gen.
func (c *Controller) advanceFrom(gen uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released || c.gen != gen {
		metrics.ControllerAdvancesTotal.WithLabelValues(c.mode.String(), "stale").Inc()
		return nil
	}
	return c.advanceLocked()
}
