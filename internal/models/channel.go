package models

import (
	"encoding/json"
	"time"
)

// Channel represents a single stream entry parsed from an M3U playlist.
type Channel struct {
	ID         string    `json:"id"`
	PlaylistID string    `json:"playlist_id,omitempty"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Logo       string    `json:"logo,omitempty"`
	Category   string    `json:"category"`
	Liveness   Liveness  `json:"is_live,omitempty"`
	GroupTitle string    `json:"group_title,omitempty"`
	TvgID      string    `json:"tvg_id,omitempty"`
	TvgName    string    `json:"tvg_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Liveness says whether a channel is a live stream. Playlists rarely state
// it, so Unknown is the common case and is displayed as live.
type Liveness int8

const (
	LivenessUnknown Liveness = iota
	LivenessLive
	LivenessOffline
)

// DisplaysLive reports whether the channel should be shown as live.
func (l Liveness) DisplaysLive() bool {
	return l != LivenessOffline
}

func (l Liveness) String() string {
	switch l {
	case LivenessLive:
		return "live"
	case LivenessOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes Live as true and Offline as false. Unknown is the zero
// value, so `omitempty` drops the field entirely.
func (l Liveness) MarshalJSON() ([]byte, error) {
	switch l {
	case LivenessLive:
		return []byte("true"), nil
	case LivenessOffline:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true, false or null.
func (l *Liveness) UnmarshalJSON(data []byte) error {
	var v *bool
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch {
	case v == nil:
		*l = LivenessUnknown
	case *v:
		*l = LivenessLive
	default:
		*l = LivenessOffline
	}
	return nil
}
