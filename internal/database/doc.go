// Package database provides the SQLite library store for named playlists.
//
// It persists, per playlist name:
//   - The title, bound format and original document text
//   - Every entry in order, with extra metadata stored as JSON
//
// The whole playlist manager can be snapshotted into the store and restored
// from it at startup. The database uses WAL mode and initializes its schema
// automatically.
package database
