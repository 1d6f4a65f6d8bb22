// Package catalog is the client side of the channel catalog: a query and
// ingestion interface with a networked and a local implementation, a pure
// state container, and a session controller that ties filters, ingestion
// and playback together.
package catalog

import (
	"context"
	"io"

	"github.com/voyagen/tvcatalog/internal/models"
)

// Catalog is the query and mutation surface of the ingestion service.
// Client and Local return identical results for the same inputs.
type Catalog interface {
	// ListChannels filters by exact category (All or empty = no filter) and
	// case-insensitive name substring, preserving catalog order.
	ListChannels(ctx context.Context, category, search string) ([]models.Channel, error)
	// ListCategories returns category names with All first.
	ListCategories(ctx context.Context) ([]string, error)
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)

	UploadPlaylist(ctx context.Context, filename, name string, r io.Reader) (*models.Playlist, error)
	AddPlaylistURL(ctx context.Context, name, url string) (*models.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	RefreshPlaylist(ctx context.Context, id string) (*models.Playlist, error)
}
