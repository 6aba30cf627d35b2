package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avplay/internal/playlist"
)

func setupTestDB(t testing.TB) *Database {
	t.Helper()

	db, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleSnapshot() playlist.Snapshot {
	return playlist.Snapshot{
		Title:    "Road Trip",
		Format:   "json",
		Original: `{"name":"trip","tracks":[]}`,
		Entries: []playlist.Entry{
			{Location: "a.mp3", Title: "A", Artist: "Artist", Album: "Album", Duration: playlist.Seconds(180)},
			{Location: "http://example.com/b.ogg", Metadata: map[string]any{"bitrate": int64(320), "tags": []any{"x", "y"}}},
			{Location: "c.flac"},
		},
	}
}

// TestRecordQuery checks that recording metrics never panics, even for odd
// operation names.
func TestRecordQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		operation string
		err       error
	}{
		{"successful query", "test_operation", nil},
		{"failed query", "test_operation", errors.New("test error")},
		{"empty operation name", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.NotPanics(t, func() { recordQuery(tt.operation, time.Now(), tt.err) })
		})
	}
}

func TestNewCreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	version, err := db.GetMetadata(context.Background(), "schema_version")
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)

	// Reopening an existing store keeps the version row.
	path := db.Path()
	require.NoError(t, db.Close())
	again, err := New(context.Background(), path)
	require.NoError(t, err)
	defer again.Close()
	version, err = again.GetMetadata(context.Background(), "schema_version")
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)
}

func TestNewFailsForMissingDirectory(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "test.db"))
	assert.Error(t, err)
}

func TestSaveAndLoadPlaylist(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	snap := sampleSnapshot()

	id, err := db.SavePlaylist(ctx, "trip", snap)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	got, err := db.LoadPlaylist(ctx, "trip")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "trip", got.Name)
	assert.Equal(t, snap, got.Snapshot)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSavePlaylistKeepsID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first, err := db.SavePlaylist(ctx, "p", sampleSnapshot())
	require.NoError(t, err)

	shorter := playlist.Snapshot{Title: "Shorter", Entries: []playlist.Entry{{Location: "only.mp3"}}}
	second, err := db.SavePlaylist(ctx, "p", shorter)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err := db.LoadPlaylist(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, shorter, got.Snapshot)
}

func TestLoadMissingPlaylist(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.LoadPlaylist(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}

func TestListAndDeletePlaylists(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.SavePlaylist(ctx, "zeta", playlist.Snapshot{Title: "Z", Entries: []playlist.Entry{}})
	require.NoError(t, err)
	_, err = db.SavePlaylist(ctx, "alpha", sampleSnapshot())
	require.NoError(t, err)

	list, err := db.ListPlaylists(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, 3, list[0].EntryCount)
	assert.Equal(t, "json", list[0].Format)
	assert.Equal(t, "zeta", list[1].Name)

	deleted, err := db.DeletePlaylist(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = db.DeletePlaylist(ctx, "alpha")
	require.NoError(t, err)
	assert.False(t, deleted)

	list, err = db.ListPlaylists(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	m := playlist.NewManager()
	p := m.Create("mix", "Mix")
	require.NoError(t, p.Add(sampleSnapshot().Entries...))
	m.Create("empty", "")
	_, err := db.SavePlaylist(ctx, "stale", sampleSnapshot())
	require.NoError(t, err)

	require.NoError(t, db.SaveSnapshot(ctx, m.Snapshot()))

	last, err := db.GetLastSnapshot(ctx)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), last, time.Minute)

	snaps, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 2, "playlists gone from the manager are removed")

	restored := playlist.NewManager()
	restored.Restore(snaps)
	assert.Equal(t, []string{"empty", "mix"}, restored.Names())
	got, ok := restored.Get("mix")
	require.True(t, ok)
	assert.Equal(t, p.Entries(), got.Entries())
}

func TestLastSnapshotDefaults(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	last, err := db.GetLastSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.SetLastSnapshot(ctx, when))
	last, err = db.GetLastSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, when.Equal(last))

	require.NoError(t, db.SetLastSnapshot(ctx, time.Time{}))
	last, err = db.GetLastSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}
