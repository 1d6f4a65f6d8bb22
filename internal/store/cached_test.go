package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyagen/tvcatalog/internal/cache"
	"github.com/voyagen/tvcatalog/internal/logging"
	"github.com/voyagen/tvcatalog/internal/metrics"
	"github.com/voyagen/tvcatalog/internal/models"
)

// countingStore records how often listings reach the inner store.
type countingStore struct {
	*Memory
	channelCalls  int
	categoryCalls int
}

func (c *countingStore) ListChannels(ctx context.Context, f ChannelFilter) ([]models.Channel, error) {
	c.channelCalls++
	return c.Memory.ListChannels(ctx, f)
}

func (c *countingStore) ListCategories(ctx context.Context) ([]string, error) {
	c.categoryCalls++
	return c.Memory.ListCategories(ctx)
}

func setupCached(t *testing.T) (*CachedStore, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = r.Close() })
	inner := &countingStore{Memory: seedMemory(t)}
	return NewCachedStore(inner, r, logging.Discard()), inner, mr
}

func TestCachedStore_ServesFromCache(t *testing.T) {
	c, inner, _ := setupCached(t)
	ctx := context.Background()
	hits := testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit"))

	first, err := c.ListChannels(ctx, ChannelFilter{Category: "News"})
	require.NoError(t, err)
	second, err := c.ListChannels(ctx, ChannelFilter{Category: "News"})
	require.NoError(t, err)

	assert.Equal(t, channelIDs(first), channelIDs(second))
	assert.Equal(t, 1, inner.channelCalls)
	assert.Equal(t, hits+1, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit")))

	// Empty category and the All sentinel share a key.
	_, err = c.ListChannels(ctx, ChannelFilter{})
	require.NoError(t, err)
	_, err = c.ListChannels(ctx, ChannelFilter{Category: models.AllCategory})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.channelCalls)
}

func TestCachedStore_WritesInvalidate(t *testing.T) {
	c, inner, mr := setupCached(t)
	ctx := context.Background()

	_, err := c.ListCategories(ctx)
	require.NoError(t, err)
	_, err = c.ListChannels(ctx, ChannelFilter{})
	require.NoError(t, err)
	_, err = c.ListPlaylists(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.KeyPrefix+keyCategories))
	assert.True(t, mr.Exists(cache.KeyPrefix+keyPlaylists))

	_, err = c.DeletePlaylist(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.KeyPrefix+keyCategories))
	assert.False(t, mr.Exists(cache.KeyPrefix+keyPlaylists))

	cats, err := c.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"News", "Sports"}, cats)
	assert.Equal(t, 2, inner.categoryCalls)

	got, err := c.ListChannels(ctx, ChannelFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e"}, channelIDs(got))
	assert.Equal(t, 2, inner.channelCalls)
}

func TestCachedStore_RedisDownFallsThrough(t *testing.T) {
	c, inner, mr := setupCached(t)
	mr.Close()

	got, err := c.ListChannels(context.Background(), ChannelFilter{PlaylistID: "p2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e"}, channelIDs(got))
	assert.Equal(t, 1, inner.channelCalls)

	assert.Error(t, c.Ping(context.Background()))
}
