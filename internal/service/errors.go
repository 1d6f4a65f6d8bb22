package service

import "errors"

var (
	// ErrUnsupportedFile is returned for uploads without a .m3u/.m3u8 suffix.
	ErrUnsupportedFile = errors.New("only .m3u and .m3u8 files are supported")
	// ErrFileTooLarge is returned when an upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("playlist file is too large")
	// ErrInvalidURL is returned when a playlist URL is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("playlist URL must be an absolute http or https URL")
	// ErrNotRefreshable is returned when refreshing a playlist that was uploaded as a file.
	ErrNotRefreshable = errors.New("only URL-based playlists can be refreshed")
	// ErrRefreshInProgress is returned when another refresh of the same playlist holds the lock.
	ErrRefreshInProgress = errors.New("playlist refresh already in progress")
	// ErrQueueUnavailable is returned when an async refresh is requested without a job queue.
	ErrQueueUnavailable = errors.New("background refresh queue is not configured")
)
