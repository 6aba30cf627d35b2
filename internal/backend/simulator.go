package backend

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"avplay/internal/logging"
	"avplay/internal/player"
)

// ErrNoMedia is returned by Play when nothing has been loaded.
var ErrNoMedia = errors.New("no media loaded")

var logger = logging.For("simulator")

// Clock returns the current time. Tests substitute a ManualClock.
type Clock func() time.Time

// Simulator is a player.Backend that pretends to play media. Each loaded
// source "plays" for its configured length on the simulator's clock and then
// stops, which is enough for the controller's monitor loop to advance.
type Simulator struct {
	mu sync.Mutex

	now           Clock
	defaultLength time.Duration
	lengths       map[string]time.Duration

	source  player.Source
	loaded  bool
	state   player.PlaybackState
	length  time.Duration
	offset  time.Duration // position when playback last started or paused
	started time.Time

	volume  float64
	muted   bool
	devices []player.Device
	device  int

	history []player.Source
	failure map[string]error
	closed  bool
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithClock replaces the wall clock.
func WithClock(now Clock) Option {
	return func(s *Simulator) { s.now = now }
}

// WithDevices sets the output devices reported to the controller.
func WithDevices(devices ...player.Device) Option {
	return func(s *Simulator) {
		if len(devices) > 0 {
			s.devices = devices
		}
	}
}

// New returns a simulator whose tracks last trackLength unless overridden
// with SetLength.
func New(trackLength time.Duration, opts ...Option) *Simulator {
	s := &Simulator{
		now:           time.Now,
		defaultLength: trackLength,
		lengths:       make(map[string]time.Duration),
		state:         player.PlaybackNothing,
		volume:        1,
		devices:       []player.Device{{Index: 0, Name: "Simulated output", Default: true}},
		failure:       make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLength overrides the length of one location.
func (s *Simulator) SetLength(location string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lengths[location] = d
}

// FailOn makes the named operation ("load", "play", "pause", "stop",
// "state") return err until cleared with a nil error.
func (s *Simulator) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failure, op)
		return
	}
	s.failure[op] = err
}

func (s *Simulator) Load(src player.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked("load"); err != nil {
		return err
	}

	s.source = src
	s.loaded = true
	s.offset = 0
	s.length = s.defaultLength
	if d, ok := s.lengths[src.Location]; ok {
		s.length = d
	}
	s.state = player.PlaybackStopped
	s.history = append(s.history, src)
	logger.Debug("Loaded %s %s (%v)", src.Kind, src.Location, s.length)
	return nil
}

func (s *Simulator) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked("play"); err != nil {
		return err
	}
	if !s.loaded {
		return ErrNoMedia
	}

	s.advanceLocked()
	switch s.state {
	case player.PlaybackPlaying:
		return nil
	case player.PlaybackStopped:
		// A finished track starts over, like most players do.
		if s.offset >= s.length {
			s.offset = 0
		}
	}
	s.started = s.now()
	s.state = player.PlaybackPlaying
	return nil
}

func (s *Simulator) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked("pause"); err != nil {
		return err
	}
	s.advanceLocked()
	if s.state == player.PlaybackPlaying {
		s.offset = s.elapsedLocked()
		s.state = player.PlaybackPaused
	}
	return nil
}

func (s *Simulator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked("stop"); err != nil {
		return err
	}
	if s.loaded {
		s.state = player.PlaybackStopped
		s.offset = 0
	}
	return nil
}

func (s *Simulator) PlaybackState() (player.PlaybackState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked("state"); err != nil {
		return player.PlaybackNothing, err
	}
	s.advanceLocked()
	return s.state, nil
}

func (s *Simulator) Position() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked("position"); err != nil {
		return 0, err
	}
	s.advanceLocked()
	return int(s.positionLocked() / time.Second), nil
}

func (s *Simulator) Length() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked("length"); err != nil {
		return 0, err
	}
	if !s.loaded {
		return 0, nil
	}
	return int(s.length / time.Second), nil
}

// Seek moves to seconds, clamped to the track.
func (s *Simulator) Seek(seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked("seek"); err != nil {
		return err
	}
	if !s.loaded {
		return ErrNoMedia
	}
	target := min(max(time.Duration(seconds)*time.Second, 0), s.length)
	s.offset = target
	if s.state == player.PlaybackPlaying {
		s.started = s.now()
	}
	return nil
}

func (s *Simulator) SetVolume(volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked("volume"); err != nil {
		return err
	}
	if volume < 0 {
		return fmt.Errorf("volume %v is negative", volume)
	}
	s.volume = volume
	return nil
}

func (s *Simulator) SetMuted(muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked("mute"); err != nil {
		return err
	}
	s.muted = muted
	return nil
}

func (s *Simulator) Devices() ([]player.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]player.Device(nil), s.devices...), nil
}

func (s *Simulator) CurrentDevice() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device, nil
}

func (s *Simulator) SetDevice(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.devices) {
		return fmt.Errorf("device %d does not exist", index)
	}
	s.device = index
	logger.Debug("Output switched to %q", s.devices[index].Name)
	return nil
}

// Close releases the simulator. Later calls fail.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.state = player.PlaybackNothing
	return nil
}

// Volume reports the current volume and mute flag.
func (s *Simulator) Volume() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume, s.muted
}

// History returns every source loaded so far, oldest first.
func (s *Simulator) History() []player.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]player.Source(nil), s.history...)
}

// Current returns the loaded source, if any.
func (s *Simulator) Current() (player.Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source, s.loaded
}

func (s *Simulator) checkLocked(op string) error {
	if s.closed {
		return errors.New("simulator closed")
	}
	return s.failure[op]
}

func (s *Simulator) elapsedLocked() time.Duration {
	return s.offset + s.now().Sub(s.started)
}

func (s *Simulator) positionLocked() time.Duration {
	if s.state == player.PlaybackPlaying {
		return min(s.elapsedLocked(), s.length)
	}
	return s.offset
}

// advanceLocked stops a playing track once the clock passes its end.
func (s *Simulator) advanceLocked() {
	if s.state != player.PlaybackPlaying {
		return
	}
	if s.elapsedLocked() >= s.length {
		s.offset = s.length
		s.state = player.PlaybackStopped
	}
}
