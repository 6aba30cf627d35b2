// Package player moves through a playlist on top of a media backend.
//
// A Controller binds a playlist.Playlist and a Backend, and implements the
// progression modes (sequential, repeat all, repeat one, shuffle) on top of
// the backend's load and play commands. With auto-play enabled, a monitor
// goroutine polls the backend, detects the end of each track and advances.
//
// Backends only need the small Backend interface. Seeking, volume, mute and
// output device selection are optional interfaces checked at call time, and
// return ErrUnsupported when absent.
package player
