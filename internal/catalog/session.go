package catalog

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvcatalog/internal/models"
	"github.com/voyagen/tvcatalog/internal/player"
)

// ErrNoPlayer is returned by playback controls on a session created
// without playback backends.
var ErrNoPlayer = errors.New("playback is not configured")

// ErrNothingSelected is returned by Replay when no channel is selected.
var ErrNothingSelected = errors.New("no channel selected")

// Listener receives the state after every change. Listeners may be called
// from several goroutines and must not call back into the Session.
type Listener func(State)

// SessionOptions configures a Session. Zero values pick defaults.
type SessionOptions struct {
	// Adaptive and Progressive play HLS and non-HLS streams. Playback
	// controls return ErrNoPlayer when either is nil.
	Adaptive    player.Backend
	Progressive player.Backend
	QuietPeriod time.Duration
	Now         func() time.Time
}

// Session is the controller behind a catalog screen. It owns the State,
// debounces filter input, runs ingestion and drives playback.
type Session struct {
	cat      Catalog
	driver   *player.Driver
	log      *logrus.Entry
	debounce *Debouncer
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	tokens atomic.Uint64
	playMu sync.Mutex // serializes driver loads so session ids can be predicted

	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
}

// NewSession creates a Session over cat.
func NewSession(cat Catalog, log *logrus.Entry, opts SessionOptions) *Session {
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cat:       cat,
		log:       log,
		debounce:  NewDebouncer(opts.QuietPeriod),
		now:       opts.Now,
		ctx:       ctx,
		cancel:    cancel,
		state:     NewState(),
		listeners: make(map[int]Listener),
	}
	if opts.Adaptive != nil && opts.Progressive != nil {
		s.driver = player.NewDriver(opts.Adaptive, opts.Progressive, s.onPlayerEvent, log)
	}
	return s
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn and returns a function that removes it.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) dispatch(ev Event) {
	s.mu.Lock()
	s.state = Reduce(s.state, ev)
	s.publishLocked()
}

// publishLocked releases mu and calls the listeners with the new state.
func (s *Session) publishLocked() {
	st := s.state
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()
	for _, l := range ls {
		l(st)
	}
}

// Refresh fetches playlists, categories and channels for the current
// filters and applies them together. Nothing is applied if any fetch fails.
func (s *Session) Refresh(ctx context.Context) error {
	token := s.tokens.Add(1)
	s.dispatch(ChannelsRequested{Token: token})
	st := s.State()

	playlists, err := s.cat.ListPlaylists(ctx)
	if err != nil {
		return s.readFailed(RequestFailed{Token: token, Refresh: true}, err)
	}
	categories, err := s.cat.ListCategories(ctx)
	if err != nil {
		return s.readFailed(RequestFailed{Token: token, Refresh: true}, err)
	}
	channels, err := s.cat.ListChannels(ctx, st.Category, st.Search)
	if err != nil {
		return s.readFailed(RequestFailed{Token: token, Refresh: true}, err)
	}
	s.dispatch(CatalogRefreshed{Token: token, Playlists: playlists, Categories: categories, Channels: channels})
	return nil
}

// SetCategory changes the category filter. The channel fetch is issued
// once filter input has been quiet for the quiet period.
func (s *Session) SetCategory(category string) {
	s.dispatch(CategoryChanged{Category: category})
	s.debounce.Trigger(s.fetchChannels)
}

// SetSearch changes the search term, debounced like SetCategory.
func (s *Session) SetSearch(term string) {
	s.dispatch(SearchChanged{Search: term})
	s.debounce.Trigger(s.fetchChannels)
}

// FlushFilters issues a pending debounced fetch immediately.
func (s *Session) FlushFilters() {
	s.debounce.Flush()
}

func (s *Session) fetchChannels() {
	_ = s.loadChannels(s.ctx)
}

func (s *Session) loadChannels(ctx context.Context) error {
	token := s.tokens.Add(1)
	s.dispatch(ChannelsRequested{Token: token})
	st := s.State()

	channels, err := s.cat.ListChannels(ctx, st.Category, st.Search)
	if err != nil {
		return s.readFailed(RequestFailed{Token: token}, err)
	}
	s.dispatch(ChannelsLoaded{Token: token, Channels: channels})
	return nil
}

func (s *Session) readFailed(ev RequestFailed, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	s.log.WithError(err).WithField("refresh", ev.Refresh).Warn("catalog read failed")
	ev.Message = UserMessage(err)
	s.dispatch(ev)
	return err
}

// UploadFile ingests an uploaded playlist file. Invalid file names are
// rejected without contacting the service.
func (s *Session) UploadFile(ctx context.Context, filename, name string, r io.Reader) (*models.Playlist, error) {
	if err := s.beginIngest(ValidatePlaylistFile(filename)); err != nil {
		return nil, err
	}
	p, err := s.cat.UploadPlaylist(ctx, filename, name, r)
	return s.finishIngest(ctx, p, err)
}

// AddURL ingests a remote playlist under a dated display name.
func (s *Session) AddURL(ctx context.Context, rawURL string) (*models.Playlist, error) {
	if err := s.beginIngest(ValidatePlaylistURL(rawURL)); err != nil {
		return nil, err
	}
	p, err := s.cat.AddPlaylistURL(ctx, URLPlaylistName(s.now()), rawURL)
	return s.finishIngest(ctx, p, err)
}

// beginIngest moves the ingestion to Submitting, or records the validation
// failure. At most one ingestion runs per session.
func (s *Session) beginIngest(invalid error) error {
	s.mu.Lock()
	if s.state.Ingest == IngestSubmitting {
		s.mu.Unlock()
		return ErrIngestInFlight
	}
	if invalid != nil {
		s.state = Reduce(s.state, IngestRejected{Message: UserMessage(invalid)})
		s.publishLocked()
		return invalid
	}
	s.state = Reduce(s.state, IngestSubmitted{})
	s.publishLocked()
	return nil
}

func (s *Session) finishIngest(ctx context.Context, p *models.Playlist, err error) (*models.Playlist, error) {
	if err != nil {
		s.log.WithError(err).Warn("ingestion failed")
		s.dispatch(IngestErrored{Message: UserMessage(err)})
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"playlist_id": p.ID, "channels": p.ChannelCount}).Info("playlist ingested")
	s.dispatch(PlaylistIngested{Playlist: *p})
	// A failed refresh has already posted its own notice; the ingestion
	// itself succeeded.
	_ = s.Refresh(ctx)
	return p, nil
}

// DeletePlaylist removes a playlist. Playback of one of its channels is
// stopped.
func (s *Session) DeletePlaylist(ctx context.Context, id string) error {
	name := id
	st := s.State()
	for _, p := range st.Playlists {
		if p.ID == id {
			name = p.Name
			break
		}
	}
	if err := s.cat.DeletePlaylist(ctx, id); err != nil {
		s.dispatch(NoticePosted{Kind: NoticeError, Message: UserMessage(err)})
		return err
	}
	if st.Current != nil && st.Current.PlaylistID == id {
		s.Stop()
	}
	s.dispatch(PlaylistDeleted{Name: name})
	_ = s.Refresh(ctx)
	return nil
}

// RefreshPlaylist re-fetches a URL playlist from its source.
func (s *Session) RefreshPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	p, err := s.cat.RefreshPlaylist(ctx, id)
	if err != nil {
		s.dispatch(NoticePosted{Kind: NoticeError, Message: UserMessage(err)})
		return nil, err
	}
	s.dispatch(PlaylistRefreshed{Playlist: *p})
	_ = s.Refresh(ctx)
	return p, nil
}

// Select starts playback of ch, replacing any current session.
func (s *Session) Select(ctx context.Context, ch models.Channel) error {
	if s.driver == nil {
		return ErrNoPlayer
	}
	s.playMu.Lock()
	defer s.playMu.Unlock()

	// Backends may report events from inside Load, so the state must know
	// the new session id first.
	s.dispatch(ChannelSelected{Channel: ch, Session: s.driver.Session() + 1})
	id, err := s.driver.Load(ctx, ch.URL)
	if errors.Is(err, player.ErrClosed) {
		s.dispatch(PlaybackStopped{})
		return err
	}
	if err != nil {
		s.log.WithError(err).WithField("channel", ch.Name).Warn("playback failed")
		s.dispatch(PlaybackChanged{Session: id, Kind: player.EventError, Err: err.Error()})
		return err
	}
	return nil
}

// Replay reloads the selected channel in a fresh session.
func (s *Session) Replay(ctx context.Context) error {
	st := s.State()
	if st.Current == nil {
		return ErrNothingSelected
	}
	return s.Select(ctx, *st.Current)
}

func (s *Session) Pause() error {
	if s.driver == nil {
		return ErrNoPlayer
	}
	return s.driver.Pause()
}

func (s *Session) Resume() error {
	if s.driver == nil {
		return ErrNoPlayer
	}
	return s.driver.Resume()
}

// Stop ends playback and clears the selection.
func (s *Session) Stop() {
	if s.driver != nil {
		s.playMu.Lock()
		s.driver.Stop()
		s.playMu.Unlock()
	}
	s.dispatch(PlaybackStopped{})
}

// SetVolume sets the volume (clamped to 0..1) for this and later sessions.
func (s *Session) SetVolume(v float64) error {
	s.dispatch(VolumeChanged{Volume: v})
	if s.driver == nil {
		return nil
	}
	return s.driver.SetVolume(v)
}

func (s *Session) ToggleMute() error {
	s.mu.Lock()
	muted := !s.state.Muted
	s.state = Reduce(s.state, MuteChanged{Muted: muted})
	s.publishLocked()
	if s.driver == nil {
		return nil
	}
	return s.driver.SetMuted(muted)
}

func (s *Session) SetIngestPanelOpen(open bool) { s.dispatch(IngestPanelToggled{Open: open}) }
func (s *Session) SetChannelListOpen(open bool) { s.dispatch(ChannelListToggled{Open: open}) }
func (s *Session) DismissNotice(id uint64)      { s.dispatch(NoticeDismissed{ID: id}) }

// Close stops playback and pending fetches.
func (s *Session) Close() {
	s.debounce.Stop()
	s.cancel()
	if s.driver != nil {
		s.playMu.Lock()
		s.driver.Close()
		s.playMu.Unlock()
	}
}

func (s *Session) onPlayerEvent(ev player.Event) {
	msg := ""
	if ev.Err != nil {
		msg = ev.Err.Error()
	}
	s.dispatch(PlaybackChanged{Session: ev.Session, Kind: ev.Kind, Err: msg})
}
