package catalog

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvcatalog/internal/models"
	"github.com/voyagen/tvcatalog/internal/service"
	"github.com/voyagen/tvcatalog/internal/store"
)

// Local is the store-less variant: the ingestion service runs in process
// over an in-memory store. Filtering and ordering are the service's own, so
// results match Client against a server with the same data.
type Local struct {
	store    store.Store
	ingester *service.Ingester
}

// NewLocal creates a Local catalog with an empty in-memory store.
func NewLocal(log *logrus.Entry, opts service.Options) *Local {
	s := store.NewMemory()
	return &Local{store: s, ingester: service.NewIngester(s, log, opts)}
}

func (l *Local) ListChannels(ctx context.Context, category, search string) ([]models.Channel, error) {
	chs, err := l.store.ListChannels(ctx, store.ChannelFilter{Category: category, Search: search})
	if err != nil {
		return nil, serviceError("list channels", err)
	}
	return chs, nil
}

func (l *Local) ListCategories(ctx context.Context) ([]string, error) {
	cats, err := service.Categories(ctx, l.store)
	if err != nil {
		return nil, serviceError("list categories", err)
	}
	return cats, nil
}

func (l *Local) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	pls, err := l.store.ListPlaylists(ctx)
	if err != nil {
		return nil, serviceError("list playlists", err)
	}
	return pls, nil
}

func (l *Local) UploadPlaylist(ctx context.Context, filename, name string, r io.Reader) (*models.Playlist, error) {
	if err := ValidatePlaylistFile(filename); err != nil {
		return nil, err
	}
	p, err := l.ingester.IngestFile(ctx, filename, name, r)
	if err != nil {
		return nil, serviceError("upload playlist", err)
	}
	return p, nil
}

func (l *Local) AddPlaylistURL(ctx context.Context, name, url string) (*models.Playlist, error) {
	if err := ValidatePlaylistURL(url); err != nil {
		return nil, err
	}
	p, err := l.ingester.IngestURL(ctx, name, url)
	if err != nil {
		return nil, serviceError("add playlist url", err)
	}
	return p, nil
}

func (l *Local) DeletePlaylist(ctx context.Context, id string) error {
	if err := l.ingester.Delete(ctx, id); err != nil {
		return serviceError("delete playlist", err)
	}
	return nil
}

func (l *Local) RefreshPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	p, err := l.ingester.Refresh(ctx, id)
	if err != nil {
		return nil, serviceError("refresh playlist", err)
	}
	return p, nil
}

// serviceError gives in-process failures the same shape as remote ones.
func serviceError(op string, err error) error {
	return &TransportError{Op: op, Detail: err.Error(), Err: err}
}

var (
	_ Catalog = (*Client)(nil)
	_ Catalog = (*Local)(nil)
)
