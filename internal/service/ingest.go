package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvcatalog/internal/cache"
	"github.com/voyagen/tvcatalog/internal/fetcher"
	"github.com/voyagen/tvcatalog/internal/metrics"
	"github.com/voyagen/tvcatalog/internal/models"
	"github.com/voyagen/tvcatalog/internal/store"
)

// refreshLockSlack is added to the fetch timeout to get the refresh lock TTL.
const refreshLockSlack = 30 * time.Second

// Options configures an Ingester. Zero values fall back to sensible defaults.
type Options struct {
	UserAgent      string
	Timeout        time.Duration
	UploadDir      string // optional; uploads are kept here when set
	MaxUploadBytes int64
	Locker         Locker   // nil = in-process locks
	Queue          JobQueue // nil = async refresh disabled
}

// Ingester implements the playlist use cases: ingest from file or URL,
// refresh URL playlists, delete playlists.
type Ingester struct {
	store     store.Store
	log       *logrus.Entry
	userAgent string
	timeout   time.Duration
	uploadDir string
	maxUpload int64
	locker    Locker
	queue     JobQueue
	now       func() time.Time
}

// NewIngester creates an Ingester over s.
func NewIngester(s store.Store, log *logrus.Entry, opts Options) *Ingester {
	ing := &Ingester{
		store:     s,
		log:       log,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		uploadDir: opts.UploadDir,
		maxUpload: opts.MaxUploadBytes,
		locker:    opts.Locker,
		queue:     opts.Queue,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if ing.timeout <= 0 {
		ing.timeout = 30 * time.Second
	}
	if ing.maxUpload <= 0 {
		ing.maxUpload = 20 << 20
	}
	if ing.locker == nil {
		ing.locker = newLocalLocker()
	}
	return ing
}

// IngestFile parses an uploaded playlist and stores it with its channels.
// name defaults to the filename without its extension.
func (ing *Ingester) IngestFile(ctx context.Context, filename, name string, r io.Reader) (*models.Playlist, error) {
	filename = path.Base(filepath.ToSlash(filename))
	if !fetcher.IsPlaylistFilename(filename) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, filename)
	}
	body, err := io.ReadAll(io.LimitReader(r, ing.maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(body)) > ing.maxUpload {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, ing.maxUpload)
	}

	res, err := fetcher.Parse(body)
	if err != nil {
		metrics.ObserveIngestion(metrics.ModeFile, 0, 0, err)
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	if name = strings.TrimSpace(name); name == "" {
		name = strings.TrimSuffix(filename, path.Ext(filename))
	}
	p := ing.newPlaylist(name, models.SourceTypeFile, "")

	if ing.uploadDir != "" {
		p.FilePath = filepath.Join(ing.uploadDir, p.ID+path.Ext(filename))
		if err := os.WriteFile(p.FilePath, body, 0o644); err != nil {
			return nil, fmt.Errorf("store upload: %w", err)
		}
	}

	if err := ing.create(ctx, p, res, metrics.ModeFile); err != nil {
		if p.FilePath != "" {
			_ = os.Remove(p.FilePath)
		}
		return nil, err
	}
	return p, nil
}

// IngestURL fetches the playlist at rawURL and stores it with its channels.
// name defaults to the URL host.
func (ing *Ingester) IngestURL(ctx context.Context, name, rawURL string) (*models.Playlist, error) {
	u, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}
	res, err := fetcher.FetchM3U(ctx, u.String(), ing.userAgent, ing.timeout)
	if err != nil {
		metrics.ObserveIngestion(metrics.ModeURL, 0, 0, err)
		return nil, fmt.Errorf("fetch: %w", err)
	}

	if name = strings.TrimSpace(name); name == "" {
		name = u.Host
	}
	p := ing.newPlaylist(name, models.SourceTypeURL, u.String())
	if err := ing.create(ctx, p, res, metrics.ModeURL); err != nil {
		return nil, err
	}
	return p, nil
}

// Refresh re-fetches a URL playlist and replaces its channels. Concurrent
// refreshes of the same playlist fail with ErrRefreshInProgress.
func (ing *Ingester) Refresh(ctx context.Context, id string) (*models.Playlist, error) {
	p, err := ing.store.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Refreshable() {
		return nil, ErrNotRefreshable
	}

	unlock, err := ing.locker.TryLock(ctx, "refresh:"+id, ing.timeout+refreshLockSlack)
	if errors.Is(err, cache.ErrLocked) {
		return nil, ErrRefreshInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("lock: %w", err)
	}
	defer unlock()

	res, err := fetcher.FetchM3U(ctx, p.URL, ing.userAgent, ing.timeout)
	if err != nil {
		metrics.ObserveIngestion(metrics.ModeRefresh, 0, 0, err)
		return nil, fmt.Errorf("fetch: %w", err)
	}

	at := ing.now()
	channels := ing.stamp(p.ID, res.Channels, at)
	if err := ing.store.ReplaceChannels(ctx, p.ID, channels, at); err != nil {
		metrics.ObserveIngestion(metrics.ModeRefresh, 0, 0, err)
		return nil, fmt.Errorf("ReplaceChannels: %w", err)
	}
	metrics.ObserveIngestion(metrics.ModeRefresh, len(channels), res.Skipped, nil)
	ing.log.WithFields(logrus.Fields{
		"playlist_id": p.ID,
		"channels":    len(channels),
		"skipped":     res.Skipped,
	}).Info("playlist refreshed")

	p.ChannelCount = len(channels)
	p.LastUpdated = at
	return p, nil
}

// EnqueueRefresh schedules a background refresh of a URL playlist.
func (ing *Ingester) EnqueueRefresh(ctx context.Context, id string) error {
	if ing.queue == nil {
		return ErrQueueUnavailable
	}
	p, err := ing.store.GetPlaylist(ctx, id)
	if err != nil {
		return err
	}
	if !p.Refreshable() {
		return ErrNotRefreshable
	}
	if err := ing.queue.Enqueue(ctx, cache.RefreshJob{PlaylistID: id, RequestedAt: ing.now()}); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

// Delete removes a playlist, its channels and its stored upload.
func (ing *Ingester) Delete(ctx context.Context, id string) error {
	p, err := ing.store.DeletePlaylist(ctx, id)
	if err != nil {
		return err
	}
	if p.FilePath != "" {
		if err := os.Remove(p.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			ing.log.WithError(err).WithField("playlist_id", id).Warn("remove stored upload")
		}
	}
	ing.log.WithField("playlist_id", id).Info("playlist deleted")
	return nil
}

func (ing *Ingester) create(ctx context.Context, p *models.Playlist, res *fetcher.Result, mode string) error {
	channels := ing.stamp(p.ID, res.Channels, p.CreatedAt)
	p.ChannelCount = len(channels)
	if err := ing.store.CreatePlaylist(ctx, p, channels); err != nil {
		metrics.ObserveIngestion(mode, 0, 0, err)
		return fmt.Errorf("CreatePlaylist: %w", err)
	}
	metrics.ObserveIngestion(mode, len(channels), res.Skipped, nil)
	ing.log.WithFields(logrus.Fields{
		"playlist_id": p.ID,
		"mode":        mode,
		"channels":    len(channels),
		"skipped":     res.Skipped,
	}).Info("playlist ingested")
	return nil
}

func (ing *Ingester) newPlaylist(name string, sourceType int16, rawURL string) *models.Playlist {
	now := ing.now()
	return &models.Playlist{
		ID:          uuid.NewString(),
		Name:        name,
		SourceType:  sourceType,
		URL:         rawURL,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// stamp assigns fresh ids, the owning playlist and a creation time.
func (ing *Ingester) stamp(playlistID string, channels []models.Channel, at time.Time) []models.Channel {
	out := make([]models.Channel, len(channels))
	for n, ch := range channels {
		ch.ID = uuid.NewString()
		ch.PlaylistID = playlistID
		ch.CreatedAt = at
		out[n] = ch
	}
	return out
}

func validateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}

// Categories returns the category listing with the All sentinel first.
func Categories(ctx context.Context, s store.Store) ([]string, error) {
	names, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return models.WithAllCategory(names), nil
}
