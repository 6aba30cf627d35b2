package player

// SourceKind says whether a Source names a local file or a URL.
type SourceKind int

const (
	SourcePath SourceKind = iota
	SourceURL
)

func (k SourceKind) String() string {
	if k == SourceURL {
		return "url"
	}
	return "path"
}

// Source is a resolved entry location handed to a backend.
type Source struct {
	Kind     SourceKind
	Location string
}

// Backend is the media engine the controller drives. Position and Length are
// in whole seconds.
type Backend interface {
	Load(src Source) error
	Play() error
	Pause() error
	Stop() error
	PlaybackState() (PlaybackState, error)
	Position() (int, error)
	Length() (int, error)
}

// Seeker is implemented by backends that can jump within a track.
type Seeker interface {
	Seek(seconds int) error
}

// VolumeSetter is implemented by backends with volume control. The value is
// a linear gain where 1 is unchanged.
type VolumeSetter interface {
	SetVolume(volume float64) error
}

// Muter is implemented by backends that can mute without losing the volume.
type Muter interface {
	SetMuted(muted bool) error
}

// Device is an output device reported by a DeviceSelector.
type Device struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

// DeviceSelector is implemented by backends with selectable output devices.
type DeviceSelector interface {
	Devices() ([]Device, error)
	CurrentDevice() (int, error)
	SetDevice(index int) error
}
