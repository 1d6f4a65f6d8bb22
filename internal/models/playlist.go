package models

import "time"

// Playlist is a named collection of channels from one ingestion source
// (an uploaded file or a remote URL).
type Playlist struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SourceType   int16     `json:"source_type"`
	URL          string    `json:"url,omitempty"`
	FilePath     string    `json:"-"`
	ChannelCount int       `json:"channel_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Refreshable reports whether the playlist can be re-fetched from its source.
func (p *Playlist) Refreshable() bool {
	return p.SourceType == SourceTypeURL && p.URL != ""
}
