package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"avplay/internal/logging"
	"avplay/internal/metrics"
	"avplay/internal/playlist"
)

// ErrPlaylistNotFound is returned when no playlist has the requested name.
var ErrPlaylistNotFound = errors.New("playlist not found")

// SavePlaylist stores snap under name, replacing any previous version. The
// playlist keeps its ID across saves.
func (d *Database) SavePlaylist(ctx context.Context, name string, snap playlist.Snapshot) (id uuid.UUID, err error) {
	start := time.Now()
	defer func() { recordQuery("save_playlist", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.beginTx(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	id, err = savePlaylistTx(ctx, tx, name, snap)
	return id, endTx(tx, err)
}

func savePlaylistTx(ctx context.Context, tx *sql.Tx, name string, snap playlist.Snapshot) (uuid.UUID, error) {
	var idText string
	err := tx.QueryRowContext(ctx, "SELECT id FROM playlists WHERE name = ?", name).Scan(&idText)

	var id uuid.UUID
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO playlists (id, name, title, format, original, entry_count)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id.String(), name, snap.Title, snap.Format, snap.Original, len(snap.Entries))
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert playlist %q: %w", name, err)
		}
	case err != nil:
		return uuid.Nil, fmt.Errorf("look up playlist %q: %w", name, err)
	default:
		id, err = uuid.Parse(idText)
		if err != nil {
			return uuid.Nil, fmt.Errorf("playlist %q has a malformed id: %w", name, err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE playlists
			SET title = ?, format = ?, original = ?, entry_count = ?, updated_at = strftime('%s', 'now')
			WHERE id = ?
		`, snap.Title, snap.Format, snap.Original, len(snap.Entries), idText)
		if err != nil {
			return uuid.Nil, fmt.Errorf("update playlist %q: %w", name, err)
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM entries WHERE playlist_id = ?", idText); err != nil {
			return uuid.Nil, fmt.Errorf("clear entries of %q: %w", name, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (playlist_id, position, location, title, artist, album, duration, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return uuid.Nil, err
	}
	defer stmt.Close()

	for pos, e := range snap.Entries {
		var duration sql.NullInt64
		if e.Duration != nil {
			duration = sql.NullInt64{Int64: int64(*e.Duration), Valid: true}
		}
		var md sql.NullString
		raw, err := playlist.EncodeMetadata(e.Metadata)
		if err != nil {
			return uuid.Nil, fmt.Errorf("encode metadata of %q entry %d: %w", name, pos, err)
		}
		if raw != nil {
			md = sql.NullString{String: string(raw), Valid: true}
		}
		_, err = stmt.ExecContext(ctx, id.String(), pos, e.Location, e.Title, e.Artist, e.Album, duration, md)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert entry %d of %q: %w", pos, name, err)
		}
	}
	return id, nil
}

// LoadPlaylist returns the playlist stored under name.
func (d *Database) LoadPlaylist(ctx context.Context, name string) (sp *StoredPlaylist, err error) {
	start := time.Now()
	defer func() { recordQuery("load_playlist", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		idText           string
		created, updated int64
	)
	sp = &StoredPlaylist{Name: name}
	err = d.db.QueryRowContext(ctx, `
		SELECT id, title, format, original, created_at, updated_at
		FROM playlists WHERE name = ?
	`, name).Scan(&idText, &sp.Snapshot.Title, &sp.Snapshot.Format, &sp.Snapshot.Original, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPlaylistNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	if sp.ID, err = uuid.Parse(idText); err != nil {
		return nil, fmt.Errorf("playlist %q has a malformed id: %w", name, err)
	}
	sp.CreatedAt = time.Unix(created, 0)
	sp.UpdatedAt = time.Unix(updated, 0)

	sp.Snapshot.Entries, err = d.entries(ctx, idText)
	if err != nil {
		return nil, err
	}
	return sp, nil
}

func (d *Database) entries(ctx context.Context, playlistID string) ([]playlist.Entry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT location, title, artist, album, duration, metadata
		FROM entries WHERE playlist_id = ? ORDER BY position
	`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []playlist.Entry{}
	for rows.Next() {
		var (
			e        playlist.Entry
			duration sql.NullInt64
			md       sql.NullString
		)
		if err := rows.Scan(&e.Location, &e.Title, &e.Artist, &e.Album, &duration, &md); err != nil {
			return nil, err
		}
		if duration.Valid {
			e.Duration = playlist.Seconds(int(duration.Int64))
		}
		if md.Valid && md.String != "" {
			meta, err := playlist.DecodeMetadata([]byte(md.String))
			if err != nil {
				logging.Warn("Dropping unreadable metadata for %s: %v", e.Location, err)
			} else {
				e.Metadata = meta
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListPlaylists returns every stored playlist, sorted by name.
func (d *Database) ListPlaylists(ctx context.Context) (list []PlaylistSummary, err error) {
	start := time.Now()
	defer func() { recordQuery("list_playlists", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, title, format, entry_count, updated_at
		FROM playlists ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	defer rows.Close()

	list = []PlaylistSummary{}
	for rows.Next() {
		var (
			s       PlaylistSummary
			idText  string
			updated int64
		)
		if err = rows.Scan(&idText, &s.Name, &s.Title, &s.Format, &s.EntryCount, &updated); err != nil {
			return nil, err
		}
		if s.ID, err = uuid.Parse(idText); err != nil {
			return nil, fmt.Errorf("playlist %q has a malformed id: %w", s.Name, err)
		}
		s.UpdatedAt = time.Unix(updated, 0)
		list = append(list, s)
	}
	err = rows.Err()
	return list, err
}

// DeletePlaylist removes the named playlist and its entries. It reports
// whether a playlist was removed.
func (d *Database) DeletePlaylist(ctx context.Context, name string) (deleted bool, err error) {
	start := time.Now()
	defer func() { recordQuery("delete_playlist", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.beginTx(ctx)
	if err != nil {
		return false, err
	}
	deleted, err = deletePlaylistTx(ctx, tx, name)
	return deleted, endTx(tx, err)
}

func deletePlaylistTx(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var idText string
	err := tx.QueryRowContext(ctx, "SELECT id FROM playlists WHERE name = ?", name).Scan(&idText)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE playlist_id = ?", idText); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", idText); err != nil {
		return false, err
	}
	return true, nil
}

// SaveSnapshot replaces the stored library with snaps in one transaction.
// Stored playlists missing from snaps are deleted.
func (d *Database) SaveSnapshot(ctx context.Context, snaps map[string]playlist.Snapshot) (err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.SnapshotsTotal.WithLabelValues(status).Inc()
	}()

	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.beginTx(ctx)
	if err != nil {
		return err
	}
	err = d.saveSnapshotTx(ctx, tx, snaps)
	if err = endTx(tx, err); err != nil {
		return err
	}

	logging.Debug("Snapshot stored %d playlists", len(snaps))
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, lastSnapshotKey, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (d *Database) saveSnapshotTx(ctx context.Context, tx *sql.Tx, snaps map[string]playlist.Snapshot) error {
	rows, err := tx.QueryContext(ctx, "SELECT name FROM playlists")
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		if _, ok := snaps[name]; !ok {
			stale = append(stale, name)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, name := range stale {
		if _, err := deletePlaylistTx(ctx, tx, name); err != nil {
			return fmt.Errorf("delete stale playlist %q: %w", name, err)
		}
	}
	for name, snap := range snaps {
		start := time.Now()
		_, err := savePlaylistTx(ctx, tx, name, snap)
		recordQuery("save_playlist", start, err)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadSnapshot returns every stored playlist keyed by name.
func (d *Database) LoadSnapshot(ctx context.Context) (map[string]playlist.Snapshot, error) {
	list, err := d.ListPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]playlist.Snapshot, len(list))
	for _, s := range list {
		sp, err := d.LoadPlaylist(ctx, s.Name)
		if err != nil {
			return nil, err
		}
		out[s.Name] = sp.Snapshot
	}
	return out, nil
}
