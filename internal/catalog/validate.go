package catalog

import (
	"strings"
	"time"
)

// ValidatePlaylistFile accepts file names ending in .m3u or .m3u8. The
// match is case-sensitive; the service validates again.
func ValidatePlaylistFile(filename string) error {
	if strings.HasSuffix(filename, ".m3u") || strings.HasSuffix(filename, ".m3u8") {
		return nil
	}
	return &ValidationError{Field: "file", Value: filename, Message: "Please select a .m3u or .m3u8 file"}
}

// ValidatePlaylistURL accepts any input containing ".m3u". Scheme and
// reachability are checked by the service.
func ValidatePlaylistURL(url string) error {
	if strings.Contains(url, ".m3u") {
		return nil
	}
	return &ValidationError{Field: "url", Value: url, Message: "Please enter a valid M3U URL"}
}

// URLPlaylistName is the display name given to playlists added by URL.
func URLPlaylistName(now time.Time) string {
	return "URL Playlist " + now.Format("2006-01-02")
}
