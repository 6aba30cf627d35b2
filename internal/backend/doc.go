// Package backend provides media backends for the player controller.
//
// Simulator implements player.Backend and its optional interfaces without a
// native media engine. Tracks advance on a Clock, so the daemon can run
// against the wall clock while tests drive a ManualClock.
package backend
