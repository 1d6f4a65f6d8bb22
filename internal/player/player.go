// Package player drives one playback session at a time for the selected
// channel. Decoding is delegated to a Backend; the driver only decides which
// backend to use, owns the lifetime of its handle and reports its events.
package player

import (
	"context"
	"fmt"
	"strings"
)

// Status is the observable state of the playback session.
type Status int

const (
	StatusNoChannel Status = iota
	StatusLoading
	StatusPlaying
	StatusPaused
	StatusBuffering
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusNoChannel:
		return "no-channel"
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusBuffering:
		return "buffering"
	case StatusErrored:
		return "errored"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// EventKind is what a backend reports about an open handle.
type EventKind int

const (
	EventPlaying EventKind = iota + 1
	EventPaused
	EventBuffering
	EventError
	EventEnded
)

// Status maps an event to the session status it leads to.
func (k EventKind) Status() Status {
	switch k {
	case EventPlaying:
		return StatusPlaying
	case EventPaused, EventEnded:
		return StatusPaused
	case EventBuffering:
		return StatusBuffering
	case EventError:
		return StatusErrored
	default:
		return StatusNoChannel
	}
}

// Event is a backend event stamped with the session it belongs to.
type Event struct {
	Session uint64
	Kind    EventKind
	Err     error
}

// Notify is how a backend reports events for one handle.
type Notify func(kind EventKind, err error)

// OpenOptions are applied to a handle when it is created.
type OpenOptions struct {
	Volume float64 // 0..1
	Muted  bool
}

// Handle is one live playback resource.
type Handle interface {
	SetVolume(v float64) error
	SetMuted(muted bool) error
	Pause() error
	Resume() error
	// Close releases every resource of the handle. After Close returns the
	// handle must not call its Notify again.
	Close() error
}

// Backend opens playback handles for stream URLs.
type Backend interface {
	Open(ctx context.Context, url string, opts OpenOptions, notify Notify) (Handle, error)
}

// IsAdaptive reports whether url points at an HLS manifest.
func IsAdaptive(url string) bool {
	return strings.Contains(strings.ToLower(url), ".m3u8")
}

// PlaybackError is returned when a stream fails to open or play.
type PlaybackError struct {
	URL string
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback %s: %v", e.URL, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }
