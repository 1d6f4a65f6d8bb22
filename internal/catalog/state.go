package catalog

import (
	"fmt"

	"github.com/voyagen/tvcatalog/internal/models"
	"github.com/voyagen/tvcatalog/internal/player"
)

// IngestStatus tracks one ingestion attempt.
type IngestStatus int

const (
	IngestIdle IngestStatus = iota
	IngestSubmitting
	IngestSucceeded
	IngestFailed
)

func (s IngestStatus) String() string {
	switch s {
	case IngestSubmitting:
		return "submitting"
	case IngestSucceeded:
		return "succeeded"
	case IngestFailed:
		return "failed"
	default:
		return "idle"
	}
}

type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// Notice is a dismissable message for the user.
type Notice struct {
	ID      uint64
	Kind    NoticeKind
	Message string
}

// Playback describes the current playback session as the user sees it.
type Playback struct {
	Session   uint64
	Status    player.Status
	IsPlaying bool
	Err       string
}

// State is the whole client-side view. It is only changed by Reduce.
type State struct {
	Playlists  []models.Playlist
	Categories []string
	Channels   []models.Channel

	Category string
	Search   string
	// ChannelsToken identifies the latest channel request; responses for
	// older tokens are discarded.
	ChannelsToken uint64
	Loading       bool

	Current  *models.Channel
	Playback Playback
	Volume   float64
	Muted    bool

	Ingest          IngestStatus
	IngestError     string
	IngestPanelOpen bool
	ChannelListOpen bool

	Notices    []Notice
	lastNotice uint64
}

// NewState returns the initial state: no data, All selected, full volume.
func NewState() State {
	return State{
		Playlists:       []models.Playlist{},
		Categories:      []string{models.AllCategory},
		Channels:        []models.Channel{},
		Category:        models.AllCategory,
		Volume:          1,
		ChannelListOpen: true,
	}
}

// Event is an input to Reduce.
type Event interface{ isEvent() }

type (
	CategoryChanged struct{ Category string }
	SearchChanged   struct{ Search string }

	ChannelsRequested struct{ Token uint64 }
	ChannelsLoaded    struct {
		Token    uint64
		Channels []models.Channel
	}
	// CatalogRefreshed carries all three listings fetched after a mutation.
	// Channels are only applied when Token is still the latest.
	CatalogRefreshed struct {
		Token      uint64
		Playlists  []models.Playlist
		Categories []string
		Channels   []models.Channel
	}
	// RequestFailed reports a failed read. Token is the channel request it
	// belongs to. A failed channel fetch superseded by a newer one is
	// dropped silently; failures of a full catalog refresh (Refresh set)
	// are always reported.
	RequestFailed struct {
		Token   uint64
		Refresh bool
		Message string
	}

	ChannelSelected struct {
		Channel models.Channel
		Session uint64
	}
	PlaybackChanged struct {
		Session uint64
		Kind    player.EventKind
		Err     string
	}
	PlaybackStopped struct{}

	IngestSubmitted  struct{}
	IngestRejected   struct{ Message string }
	PlaylistIngested struct{ Playlist models.Playlist }
	IngestErrored    struct{ Message string }

	PlaylistDeleted   struct{ Name string }
	PlaylistRefreshed struct{ Playlist models.Playlist }

	IngestPanelToggled struct{ Open bool }
	ChannelListToggled struct{ Open bool }
	VolumeChanged      struct{ Volume float64 }
	MuteChanged        struct{ Muted bool }
	NoticeDismissed    struct{ ID uint64 }
	NoticePosted       struct {
		Kind    NoticeKind
		Message string
	}
)

func (CategoryChanged) isEvent()    {}
func (SearchChanged) isEvent()      {}
func (ChannelsRequested) isEvent()  {}
func (ChannelsLoaded) isEvent()     {}
func (CatalogRefreshed) isEvent()   {}
func (RequestFailed) isEvent()      {}
func (ChannelSelected) isEvent()    {}
func (PlaybackChanged) isEvent()    {}
func (PlaybackStopped) isEvent()    {}
func (IngestSubmitted) isEvent()    {}
func (IngestRejected) isEvent()     {}
func (PlaylistIngested) isEvent()   {}
func (IngestErrored) isEvent()      {}
func (PlaylistDeleted) isEvent()    {}
func (PlaylistRefreshed) isEvent()  {}
func (IngestPanelToggled) isEvent() {}
func (ChannelListToggled) isEvent() {}
func (VolumeChanged) isEvent()      {}
func (MuteChanged) isEvent()        {}
func (NoticeDismissed) isEvent()    {}
func (NoticePosted) isEvent()       {}

// Reduce returns the state after ev. It never mutates s: slices that change
// are replaced, never appended to in place.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case CategoryChanged:
		s.Category = e.Category
		if s.Category == "" {
			s.Category = models.AllCategory
		}

	case SearchChanged:
		s.Search = e.Search

	case ChannelsRequested:
		if e.Token > s.ChannelsToken {
			s.ChannelsToken = e.Token
		}
		s.Loading = true

	case ChannelsLoaded:
		if e.Token != s.ChannelsToken {
			return s
		}
		s.Channels = nonNilChannels(e.Channels)
		s.Loading = false

	case CatalogRefreshed:
		s.Playlists = e.Playlists
		if s.Playlists == nil {
			s.Playlists = []models.Playlist{}
		}
		s.Categories = models.WithAllCategory(e.Categories)
		if e.Token == s.ChannelsToken {
			s.Channels = nonNilChannels(e.Channels)
			s.Loading = false
		}

	case RequestFailed:
		current := e.Token == s.ChannelsToken
		if current {
			s.Loading = false
		}
		if current || e.Refresh {
			s = withNotice(s, NoticeError, e.Message)
		}

	case ChannelSelected:
		ch := e.Channel
		s.Current = &ch
		s.Playback = Playback{Session: e.Session, Status: player.StatusLoading}

	case PlaybackChanged:
		if e.Session != s.Playback.Session || s.Current == nil {
			return s
		}
		// An error ends the session for display purposes; later events from
		// the same session do not revive it.
		if s.Playback.Status == player.StatusErrored {
			return s
		}
		s.Playback.Status = e.Kind.Status()
		switch e.Kind {
		case player.EventPlaying, player.EventBuffering:
			s.Playback.IsPlaying = true
		case player.EventError:
			s.Playback.IsPlaying = false
			s.Playback.Err = e.Err
		default:
			s.Playback.IsPlaying = false
		}

	case PlaybackStopped:
		s.Current = nil
		s.Playback = Playback{Session: s.Playback.Session, Status: player.StatusNoChannel}

	case IngestSubmitted:
		s.Ingest = IngestSubmitting
		s.IngestError = ""

	case IngestRejected:
		s.Ingest = IngestFailed
		s.IngestError = e.Message
		s = withNotice(s, NoticeError, e.Message)

	case PlaylistIngested:
		s.Ingest = IngestSucceeded
		s.IngestError = ""
		s.IngestPanelOpen = false
		s = withNotice(s, NoticeSuccess, fmt.Sprintf("Playlist %q loaded with %d channels", e.Playlist.Name, e.Playlist.ChannelCount))

	case IngestErrored:
		s.Ingest = IngestFailed
		s.IngestError = e.Message
		s = withNotice(s, NoticeError, e.Message)

	case PlaylistDeleted:
		s = withNotice(s, NoticeSuccess, fmt.Sprintf("Playlist %q deleted", e.Name))

	case PlaylistRefreshed:
		s = withNotice(s, NoticeSuccess, fmt.Sprintf("Playlist %q refreshed with %d channels", e.Playlist.Name, e.Playlist.ChannelCount))

	case IngestPanelToggled:
		s.IngestPanelOpen = e.Open
		if e.Open && s.Ingest != IngestSubmitting {
			s.Ingest = IngestIdle
			s.IngestError = ""
		}

	case ChannelListToggled:
		s.ChannelListOpen = e.Open

	case VolumeChanged:
		s.Volume = clampVolume(e.Volume)

	case MuteChanged:
		s.Muted = e.Muted

	case NoticeDismissed:
		kept := make([]Notice, 0, len(s.Notices))
		for _, n := range s.Notices {
			if n.ID != e.ID {
				kept = append(kept, n)
			}
		}
		s.Notices = kept

	case NoticePosted:
		s = withNotice(s, e.Kind, e.Message)
	}
	return s
}

// Selected reports whether ch is the channel currently selected for playback.
func (s State) Selected(ch models.Channel) bool {
	return s.Current != nil && s.Current.ID == ch.ID && s.Current.URL == ch.URL
}

func withNotice(s State, kind NoticeKind, msg string) State {
	s.lastNotice++
	notices := make([]Notice, 0, len(s.Notices)+1)
	notices = append(notices, s.Notices...)
	s.Notices = append(notices, Notice{ID: s.lastNotice, Kind: kind, Message: msg})
	return s
}

func nonNilChannels(chs []models.Channel) []models.Channel {
	if chs == nil {
		return []models.Channel{}
	}
	return chs
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
