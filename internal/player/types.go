package player

import (
	"fmt"
	"slices"
	"strings"
)

// Mode selects how the controller moves between entries.
type Mode int

const (
	ModeSequential Mode = iota
	ModeRepeatAll
	ModeRepeatOne
	ModeShuffle
)

var modeNames = [...]string{"sequential", "repeat_all", "repeat_one", "shuffle"}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts the names produced by String. Dashes and case are
// ignored, so "Repeat-All" parses as ModeRepeatAll.
func ParseMode(s string) (Mode, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range modeNames {
		if name == norm {
			return Mode(i), nil
		}
	}
	return ModeSequential, fmt.Errorf("unknown playback mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// State is the controller's view of playlist progress.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
	StateFinished
)

var stateNames = [...]string{"stopped", "playing", "paused", "finished"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	i := slices.Index(stateNames[:], strings.ToLower(string(text)))
	if i < 0 {
		return fmt.Errorf("unknown controller state %q", text)
	}
	*s = State(i)
	return nil
}

// PlaybackState is what a backend reports about its current media.
type PlaybackState int

const (
	PlaybackNothing PlaybackState = iota
	PlaybackStopped
	PlaybackPlaying
	PlaybackPaused
	PlaybackBuffering
	PlaybackLoading
)

var playbackNames = [...]string{"nothing", "stopped", "playing", "paused", "buffering", "loading"}

func (s PlaybackState) String() string {
	if s >= 0 && int(s) < len(playbackNames) {
		return playbackNames[s]
	}
	return fmt.Sprintf("playback(%d)", int(s))
}

func (s PlaybackState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PlaybackState) UnmarshalText(text []byte) error {
	i := slices.Index(playbackNames[:], strings.ToLower(string(text)))
	if i < 0 {
		return fmt.Errorf("unknown playback state %q", text)
	}
	*s = PlaybackState(i)
	return nil
}
