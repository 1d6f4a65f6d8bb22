package store

import (
	"context"
	"errors"
	"time"

	"github.com/voyagen/tvcatalog/internal/models"
)

// ErrNotFound is returned when a playlist does not exist.
var ErrNotFound = errors.New("not found")

// Store defines persistence for playlists and their channels.
// Categories are derived from the stored channels, never stored on their own.
type Store interface {
	// CreatePlaylist stores p and its channels atomically.
	CreatePlaylist(ctx context.Context, p *models.Playlist, channels []models.Channel) error
	// GetPlaylist returns a single playlist by id.
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	// ListPlaylists returns all playlists in creation order.
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)
	// DeletePlaylist deletes a playlist and its channels and returns what was deleted.
	DeletePlaylist(ctx context.Context, id string) (*models.Playlist, error)
	// ReplaceChannels swaps the channel set of a playlist and updates its
	// count and last_updated timestamp atomically.
	ReplaceChannels(ctx context.Context, playlistID string, channels []models.Channel, refreshedAt time.Time) error

	// ListChannels returns channels matching the filter in catalog order.
	ListChannels(ctx context.Context, filter ChannelFilter) ([]models.Channel, error)
	// ListCategories returns distinct categories in order of first appearance.
	// The All sentinel is not included.
	ListCategories(ctx context.Context) ([]string, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}

// ChannelFilter holds optional filters for listing channels.
type ChannelFilter struct {
	PlaylistID string // empty = every playlist
	Category   string // empty or models.AllCategory = every category
	Search     string // case-insensitive substring match on channel name
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*Memory)(nil)
	_ Store = (*CachedStore)(nil)
)
