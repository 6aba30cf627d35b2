package database

import (
	"time"

	"github.com/google/uuid"

	"avplay/internal/playlist"
)

// StoredPlaylist is a playlist row together with its entries.
type StoredPlaylist struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Snapshot  playlist.Snapshot `json:"snapshot"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// PlaylistSummary is a playlist row without entries.
type PlaylistSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Title      string    `json:"title"`
	Format     string    `json:"format,omitempty"`
	EntryCount int       `json:"entryCount"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
