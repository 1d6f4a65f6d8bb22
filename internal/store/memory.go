package store

import (
	"context"
	"sync"
	"time"

	"github.com/voyagen/tvcatalog/internal/models"
)

// Memory is an in-process Store. It backs the store-less catalog variant
// and STORE_DRIVER=memory; data is lost when the process exits.
type Memory struct {
	mu        sync.RWMutex
	playlists []models.Playlist
	channels  []models.Channel
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) CreatePlaylist(_ context.Context, p *models.Playlist, channels []models.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playlists = append(m.playlists, *p)
	m.channels = append(m.channels, channels...)
	return nil
}

func (m *Memory) GetPlaylist(_ context.Context, id string) (*models.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	p := m.playlists[i]
	return &p, nil
}

func (m *Memory) ListPlaylists(context.Context) ([]models.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Playlist, len(m.playlists))
	copy(out, m.playlists)
	return out, nil
}

func (m *Memory) DeletePlaylist(_ context.Context, id string) (*models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	p := m.playlists[i]
	m.playlists = append(m.playlists[:i:i], m.playlists[i+1:]...)
	m.channels = withoutPlaylist(m.channels, id)
	return &p, nil
}

// ReplaceChannels drops the playlist's channels and appends the new set, so
// refreshed channels move to the end of the catalog order like they do in
// Postgres.
func (m *Memory) ReplaceChannels(_ context.Context, playlistID string, channels []models.Channel, refreshedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(playlistID)
	if i < 0 {
		return ErrNotFound
	}
	m.playlists[i].ChannelCount = len(channels)
	m.playlists[i].LastUpdated = refreshedAt
	m.channels = append(withoutPlaylist(m.channels, playlistID), channels...)
	return nil
}

func (m *Memory) ListChannels(_ context.Context, filter ChannelFilter) ([]models.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.channels
	if filter.PlaylistID != "" {
		src = make([]models.Channel, 0)
		for _, ch := range m.channels {
			if ch.PlaylistID == filter.PlaylistID {
				src = append(src, ch)
			}
		}
	}
	return models.FilterChannels(src, filter.Category, filter.Search), nil
}

func (m *Memory) ListCategories(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.CategoryNames(m.channels), nil
}

func (m *Memory) indexOf(id string) int {
	for i, p := range m.playlists {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func withoutPlaylist(channels []models.Channel, playlistID string) []models.Channel {
	out := make([]models.Channel, 0, len(channels))
	for _, ch := range channels {
		if ch.PlaylistID != playlistID {
			out = append(out, ch)
		}
	}
	return out
}
