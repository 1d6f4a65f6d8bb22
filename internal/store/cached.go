package store

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvcatalog/internal/cache"
	"github.com/voyagen/tvcatalog/internal/metrics"
	"github.com/voyagen/tvcatalog/internal/models"
)

// Cache TTLs for different listings.
const (
	ttlPlaylists  = 2 * time.Minute
	ttlPlaylist   = 5 * time.Minute
	ttlChannels   = 1 * time.Minute
	ttlCategories = 5 * time.Minute
)

const (
	keyPlaylists  = "playlists"
	keyCategories = "categories"
)

// CachedStore wraps a Store with a Redis caching layer.
// Listings are served from cache when possible; every write invalidates
// all listings, since channels, categories and playlist counts change together.
type CachedStore struct {
	inner Store
	cache *cache.Redis
	log   *logrus.Entry
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis, log *logrus.Entry) *CachedStore {
	return &CachedStore{inner: inner, cache: c, log: log}
}

func (c *CachedStore) Ping(ctx context.Context) error {
	if err := c.cache.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return c.inner.Ping(ctx)
}

func (c *CachedStore) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return cached(ctx, c, keyPlaylists, ttlPlaylists, func() ([]models.Playlist, error) {
		return c.inner.ListPlaylists(ctx)
	})
}

func (c *CachedStore) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	return cached(ctx, c, "playlist:"+id, ttlPlaylist, func() (*models.Playlist, error) {
		return c.inner.GetPlaylist(ctx, id)
	})
}

func (c *CachedStore) ListChannels(ctx context.Context, filter ChannelFilter) ([]models.Channel, error) {
	return cached(ctx, c, "channels:"+filterHash(filter), ttlChannels, func() ([]models.Channel, error) {
		return c.inner.ListChannels(ctx, filter)
	})
}

func (c *CachedStore) ListCategories(ctx context.Context) ([]string, error) {
	return cached(ctx, c, keyCategories, ttlCategories, func() ([]string, error) {
		return c.inner.ListCategories(ctx)
	})
}

// --- write operations with cache invalidation ---

func (c *CachedStore) CreatePlaylist(ctx context.Context, p *models.Playlist, channels []models.Channel) error {
	if err := c.inner.CreatePlaylist(ctx, p, channels); err != nil {
		return err
	}
	c.invalidateCatalog(ctx)
	return nil
}

func (c *CachedStore) DeletePlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	p, err := c.inner.DeletePlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "playlist:"+id)
	c.invalidateCatalog(ctx)
	return p, nil
}

func (c *CachedStore) ReplaceChannels(ctx context.Context, playlistID string, channels []models.Channel, refreshedAt time.Time) error {
	if err := c.inner.ReplaceChannels(ctx, playlistID, channels, refreshedAt); err != nil {
		return err
	}
	c.invalidate(ctx, "playlist:"+playlistID)
	c.invalidateCatalog(ctx)
	return nil
}

// --- helpers ---

// cached returns the value under key, loading and storing it on a miss.
// Redis failures fall through to the inner store.
func cached[T any](ctx context.Context, c *CachedStore, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	v, err := cache.Get[T](ctx, c.cache, key)
	if err == nil {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return v, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()
	if !errors.Is(err, cache.ErrMiss) {
		c.log.WithError(err).WithField("key", key).Warn("cache get failed")
	}

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := cache.Set(ctx, c.cache, key, v, ttl); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache set failed")
	}
	return v, nil
}

// invalidateCatalog drops every listing derived from channels or playlists.
func (c *CachedStore) invalidateCatalog(ctx context.Context) {
	c.invalidate(ctx, keyPlaylists, keyCategories)
	if err := cache.DelPattern(ctx, c.cache, "channels:*"); err != nil {
		c.log.WithError(err).Warn("cache invalidate channels failed")
	}
}

func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Del(ctx, c.cache, keys...); err != nil {
		c.log.WithError(err).WithField("keys", keys).Warn("cache del failed")
	}
}

// filterHash produces a short deterministic hash for a ChannelFilter so it
// can be used as part of a cache key.
func filterHash(f ChannelFilter) string {
	category := f.Category
	if models.IsAllCategory(category) {
		category = models.AllCategory
	}
	raw := fmt.Sprintf("%s|%s|%s", f.PlaylistID, category, f.Search)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:8])
}
