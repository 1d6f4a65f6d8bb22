package player

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by Load after Close.
var ErrClosed = errors.New("player closed")

// ErrNoSession is returned by controls that need a live handle.
var ErrNoSession = errors.New("no active playback session")

// Driver owns at most one live Handle. Loading a new URL releases the
// previous handle before the next one is opened, and events from released
// handles are dropped.
type Driver struct {
	adaptive    Backend
	progressive Backend
	onEvent     func(Event)
	log         *logrus.Entry

	loadMu sync.Mutex // serializes Load, Stop and Close

	mu      sync.Mutex
	session uint64
	handle  Handle
	volume  float64
	muted   bool
	closed  bool
}

// NewDriver creates a driver. adaptive serves HLS manifests, progressive
// everything else. onEvent is called outside the driver's locks.
func NewDriver(adaptive, progressive Backend, onEvent func(Event), log *logrus.Entry) *Driver {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	return &Driver{
		adaptive:    adaptive,
		progressive: progressive,
		onEvent:     onEvent,
		log:         log,
		volume:      1,
	}
}

// Load tears down the current session and opens url in a new one. It
// returns the new session id; on failure the error is a *PlaybackError.
func (d *Driver) Load(ctx context.Context, url string) (uint64, error) {
	d.loadMu.Lock()
	defer d.loadMu.Unlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, ErrClosed
	}
	d.session++
	id := d.session
	old := d.handle
	d.handle = nil
	opts := OpenOptions{Volume: d.volume, Muted: d.muted}
	d.mu.Unlock()

	d.release(old)

	backend := d.progressive
	if IsAdaptive(url) {
		backend = d.adaptive
	}
	h, err := backend.Open(ctx, url, opts, d.notifier(id))
	if err != nil {
		return id, &PlaybackError{URL: url, Err: err}
	}

	d.mu.Lock()
	d.handle = h
	d.mu.Unlock()

	d.log.WithFields(logrus.Fields{"session": id, "adaptive": IsAdaptive(url)}).Debug("playback session opened")
	return id, nil
}

// Stop releases the current session, if any. Later events from it are dropped.
func (d *Driver) Stop() {
	d.loadMu.Lock()
	defer d.loadMu.Unlock()

	d.mu.Lock()
	d.session++
	old := d.handle
	d.handle = nil
	d.mu.Unlock()

	d.release(old)
}

// Close stops playback for good.
func (d *Driver) Close() {
	d.loadMu.Lock()
	defer d.loadMu.Unlock()

	d.mu.Lock()
	d.closed = true
	d.session++
	old := d.handle
	d.handle = nil
	d.mu.Unlock()

	d.release(old)
}

// Session returns the id of the most recent session.
func (d *Driver) Session() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// SetVolume clamps v to 0..1, applies it to the live handle and keeps it for
// later sessions.
func (d *Driver) SetVolume(v float64) error {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	d.mu.Lock()
	d.volume = v
	h := d.handle
	d.mu.Unlock()
	if h == nil {
		return nil
	}
	return h.SetVolume(v)
}

// SetMuted applies mute to the live handle and keeps it for later sessions.
func (d *Driver) SetMuted(muted bool) error {
	d.mu.Lock()
	d.muted = muted
	h := d.handle
	d.mu.Unlock()
	if h == nil {
		return nil
	}
	return h.SetMuted(muted)
}

// Volume returns the persisted volume and mute settings.
func (d *Driver) Volume() (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume, d.muted
}

func (d *Driver) Pause() error {
	h := d.current()
	if h == nil {
		return ErrNoSession
	}
	return h.Pause()
}

func (d *Driver) Resume() error {
	h := d.current()
	if h == nil {
		return ErrNoSession
	}
	return h.Resume()
}

func (d *Driver) current() Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handle
}

func (d *Driver) release(h Handle) {
	if h == nil {
		return
	}
	if err := h.Close(); err != nil {
		d.log.WithError(err).Warn("release playback handle")
	}
}

// notifier stamps backend events with their session and drops them once the
// session is no longer current.
func (d *Driver) notifier(id uint64) Notify {
	return func(kind EventKind, err error) {
		d.mu.Lock()
		current := d.session == id && !d.closed
		d.mu.Unlock()
		if !current {
			return
		}
		d.onEvent(Event{Session: id, Kind: kind, Err: err})
	}
}
