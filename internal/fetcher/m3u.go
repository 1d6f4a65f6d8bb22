package fetcher

import (
	"bufio"
	"errors"
	"io"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/voyagen/tvcatalog/internal/models"
)

var (
	// ErrInvalidPlaylist is returned when the document is not extended M3U.
	ErrInvalidPlaylist = errors.New("invalid M3U playlist: must start with #EXTM3U")
	// ErrNoChannels is returned when no entry survived parsing.
	ErrNoChannels = errors.New("no valid channels found in playlist")

	errNoName = errors.New("no name in EXTINF")
)

var reAttr = regexp.MustCompile(`([A-Za-z0-9_-]+)="([^"]*)"`)

var streamSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"rtmp":  true,
	"rtmps": true,
	"rtsp":  true,
}

var vodExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".flv":  true,
	".mov":  true,
	".webm": true,
}

type extinf struct {
	duration float64
	attrs    map[string]string
	name     string
}

// ParseM3U reads an extended M3U playlist from r.
// Each channel is an #EXTINF line followed by its stream URL. Entries without
// a usable name or with an unsupported URL are skipped and counted.
func ParseM3U(r io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(r)
	// Some providers ship very long EXTINF lines.
	const maxSize = 1024 * 1024
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxSize)

	res := &Result{Channels: []models.Channel{}}
	headerSeen := false
	var pending *extinf
	var pendingGroup string
	entryOpen := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		if !headerSeen {
			if !strings.HasPrefix(upper, "#EXTM3U") {
				return nil, ErrInvalidPlaylist
			}
			headerSeen = true
			continue
		}

		switch {
		case strings.HasPrefix(upper, "#EXTINF:"):
			// An EXTINF without a URL line before the next one is dropped.
			if entryOpen {
				res.Skipped++
			}
			entryOpen = true
			pendingGroup = ""
			e, err := parseEXTINF(line)
			if err != nil {
				pending = nil
				continue
			}
			pending = e
		case strings.HasPrefix(upper, "#EXTGRP:"):
			pendingGroup = strings.TrimSpace(line[len("#EXTGRP:"):])
		case strings.HasPrefix(line, "#"):
			// Other directives (EXTVLCOPT, KODIPROP, ...) are ignored.
		default:
			if !entryOpen {
				continue
			}
			entryOpen = false
			if pending == nil || !IsStreamURL(line) {
				res.Skipped++
				pending = nil
				continue
			}
			res.Channels = append(res.Channels, pending.channel(line, pendingGroup))
			pending = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !headerSeen {
		return nil, ErrInvalidPlaylist
	}
	if entryOpen {
		res.Skipped++
	}
	if len(res.Channels) == 0 {
		return nil, ErrNoChannels
	}
	return res, nil
}

func (e *extinf) channel(streamURL, extgrp string) models.Channel {
	group := e.attrs["group-title"]
	category := group
	if category == "" {
		category = extgrp
	}
	if category == "" {
		category = models.DefaultCategory
	}
	tvgName := e.attrs["tvg-name"]
	if tvgName == "" {
		tvgName = e.name
	}
	liveness := models.LivenessUnknown
	if e.duration > 0 || isVOD(streamURL) {
		liveness = models.LivenessOffline
	}
	return models.Channel{
		Name:       e.name,
		URL:        streamURL,
		Logo:       e.attrs["tvg-logo"],
		Category:   category,
		Liveness:   liveness,
		GroupTitle: group,
		TvgID:      e.attrs["tvg-id"],
		TvgName:    tvgName,
	}
}

// parseEXTINF splits `#EXTINF:<duration> key="value" ...,<display name>`.
// The name starts after the first comma that is not inside a quoted value.
func parseEXTINF(line string) (*extinf, error) {
	body := line[len("#EXTINF:"):]
	head, name := body, ""
	inQuotes := false
	for i, r := range body {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if r == ',' && !inQuotes {
			head, name = body[:i], body[i+1:]
			break
		}
	}

	e := &extinf{attrs: make(map[string]string)}
	for _, m := range reAttr.FindAllStringSubmatch(head, -1) {
		e.attrs[strings.ToLower(m[1])] = strings.TrimSpace(m[2])
	}
	if fields := strings.Fields(head); len(fields) > 0 {
		if d, err := strconv.ParseFloat(fields[0], 64); err == nil {
			e.duration = d
		}
	}

	e.name = strings.TrimSpace(name)
	if e.name == "" {
		e.name = e.attrs["tvg-name"]
	}
	if e.name == "" {
		e.name = e.attrs["tvg-id"]
	}
	if e.name == "" {
		return nil, errNoName
	}
	return e, nil
}

// IsStreamURL reports whether raw is an absolute URL with a streaming scheme.
func IsStreamURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return streamSchemes[strings.ToLower(u.Scheme)] && u.Host != ""
}

func isVOD(raw string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	return vodExtensions[strings.ToLower(path.Ext(p))]
}

// IsPlaylistFilename reports whether name carries an M3U suffix.
// The match is case-sensitive.
func IsPlaylistFilename(name string) bool {
	return strings.HasSuffix(name, ".m3u") || strings.HasSuffix(name, ".m3u8")
}
