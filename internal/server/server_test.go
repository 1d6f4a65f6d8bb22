package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyagen/tvcatalog/internal/cache"
	"github.com/voyagen/tvcatalog/internal/config"
	"github.com/voyagen/tvcatalog/internal/logging"
	"github.com/voyagen/tvcatalog/internal/models"
	"github.com/voyagen/tvcatalog/internal/service"
	"github.com/voyagen/tvcatalog/internal/store"
)

const samplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="bbc" tvg-logo="http://logo/bbc.png" group-title="News",BBC World
http://streams.example/bbc.m3u8
#EXTINF:-1 tvg-id="nasa" group-title="Science",NASA TV
http://streams.example/nasa.m3u8
#EXTINF:-1 tvg-id="cnn" group-title="News",CNN International
http://streams.example/cnn.m3u8
#EXTINF:120 group-title="Movies",Big Buck Bunny
http://streams.example/bunny.mp4
`

func setupServer(t *testing.T, opts service.Options) *Server {
	t.Helper()
	s := store.NewMemory()
	cfg := &config.Config{ServerPort: "0", MaxUploadBytes: 1 << 20}
	ing := service.NewIngester(s, logging.Discard(), opts)
	return New(s, ing, cfg, logging.Discard())
}

func uploadRequest(t *testing.T, filename, name, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	if name != "" {
		require.NoError(t, mw.WriteField("name", name))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/playlists/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestUploadAndQuery(t *testing.T) {
	s := setupServer(t, service.Options{})

	w := do(s, uploadRequest(t, "channels.m3u8", "My list", samplePlaylist))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, float64(4), created["channel_count"])
	assert.Equal(t, "My list", created["name"])
	assert.NotContains(t, created, "file_path")

	t.Run("Playlists", func(t *testing.T) {
		w := do(s, httptest.NewRequest(http.MethodGet, "/api/playlists/", nil))
		require.Equal(t, http.StatusOK, w.Code)
		pls := decode[[]models.Playlist](t, w)
		require.Len(t, pls, 1)
		assert.Equal(t, 4, pls[0].ChannelCount)
	})

	t.Run("Categories", func(t *testing.T) {
		w := do(s, httptest.NewRequest(http.MethodGet, "/api/playlists/categories", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"All", "News", "Science", "Movies"}, decode[[]string](t, w))
	})

	t.Run("ChannelsFiltered", func(t *testing.T) {
		tests := []struct {
			query string
			want  []string
		}{
			{"", []string{"BBC World", "NASA TV", "CNN International", "Big Buck Bunny"}},
			{"?category=All", []string{"BBC World", "NASA TV", "CNN International", "Big Buck Bunny"}},
			{"?category=News", []string{"BBC World", "CNN International"}},
			{"?search=in", []string{"CNN International"}},
			{"?category=News&search=WORLD", []string{"BBC World"}},
			{"?category=Nope", []string{}},
		}
		for _, tt := range tests {
			w := do(s, httptest.NewRequest(http.MethodGet, "/api/playlists/channels"+tt.query, nil))
			require.Equal(t, http.StatusOK, w.Code)
			chs := decode[[]models.Channel](t, w)
			names := make([]string, 0, len(chs))
			for _, ch := range chs {
				names = append(names, ch.Name)
			}
			assert.Equal(t, tt.want, names, tt.query)
		}
	})

	t.Run("Liveness", func(t *testing.T) {
		w := do(s, httptest.NewRequest(http.MethodGet, "/api/playlists/channels?category=Movies", nil))
		assert.Contains(t, w.Body.String(), `"is_live":false`)
		w = do(s, httptest.NewRequest(http.MethodGet, "/api/playlists/channels?category=Science", nil))
		assert.NotContains(t, w.Body.String(), `"is_live"`)
	})
}

func TestUpload_Errors(t *testing.T) {
	s := setupServer(t, service.Options{})

	tests := []struct {
		name     string
		filename string
		body     string
		status   int
	}{
		{"wrong suffix", "channels.txt", samplePlaylist, http.StatusBadRequest},
		{"not m3u", "channels.m3u", "hello", http.StatusUnprocessableEntity},
		{"no channels", "channels.m3u", "#EXTM3U\n#EXTINF:-1,Nameless\nftp://x/y\n", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, uploadRequest(t, tt.filename, "", tt.body))
			assert.Equal(t, tt.status, w.Code)
			apiErr := decode[APIError](t, w)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.NotEmpty(t, apiErr.Detail)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/playlists/upload", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")
	assert.Equal(t, http.StatusBadRequest, do(s, req).Code)
}

func TestAddURLAndRefresh(t *testing.T) {
	var body atomic.Value
	body.Store(samplePlaylist)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body.Load())
	}))
	defer upstream.Close()

	s := setupServer(t, service.Options{})

	w := do(s, httptest.NewRequest(http.MethodPost, "/api/playlists/url",
		strings.NewReader(`{"name":"Remote","url":"`+upstream.URL+`/list.m3u"}`)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[models.Playlist](t, w)
	assert.Equal(t, 4, p.ChannelCount)

	body.Store("#EXTM3U\n#EXTINF:-1 group-title=\"News\",Only One\nhttp://streams.example/one.m3u8\n")
	w = do(s, httptest.NewRequest(http.MethodPut, "/api/playlists/"+p.ID+"/refresh", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[models.Playlist](t, w).ChannelCount)

	w = do(s, httptest.NewRequest(http.MethodGet, "/api/playlists/categories", nil))
	assert.Equal(t, []string{"All", "News"}, decode[[]string](t, w))

	w = do(s, httptest.NewRequest(http.MethodPut, "/api/playlists/"+p.ID+"/refresh?async=true", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	t.Run("BadRequests", func(t *testing.T) {
		w := do(s, httptest.NewRequest(http.MethodPost, "/api/playlists/url", strings.NewReader(`{`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = do(s, httptest.NewRequest(http.MethodPost, "/api/playlists/url", strings.NewReader(`{"name":"x"}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = do(s, httptest.NewRequest(http.MethodPost, "/api/playlists/url", strings.NewReader(`{"url":"ftp://x/list.m3u"}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRefresh_FilePlaylistRejected(t *testing.T) {
	s := setupServer(t, service.Options{})
	w := do(s, uploadRequest(t, "local.m3u", "", samplePlaylist))
	require.Equal(t, http.StatusCreated, w.Code)
	p := decode[models.Playlist](t, w)

	w = do(s, httptest.NewRequest(http.MethodPut, "/api/playlists/"+p.ID+"/refresh", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, httptest.NewRequest(http.MethodPut, "/api/playlists/unknown/refresh", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefresh_AsyncQueued(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, samplePlaylist)
	}))
	defer upstream.Close()

	mr := miniredis.RunT(t)
	rds := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rds.Close() })

	s := setupServer(t, service.Options{Locker: rds, Queue: rds})
	w := do(s, httptest.NewRequest(http.MethodPost, "/api/playlists/url",
		strings.NewReader(`{"url":"`+upstream.URL+`/list.m3u"}`)))
	require.Equal(t, http.StatusCreated, w.Code)
	p := decode[models.Playlist](t, w)

	w = do(s, httptest.NewRequest(http.MethodPut, "/api/playlists/"+p.ID+"/refresh?async=true", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	items, err := mr.List(cache.RefreshQueue)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0], p.ID)
}

func TestDeletePlaylist(t *testing.T) {
	s := setupServer(t, service.Options{})

	w := do(s, uploadRequest(t, "a.m3u", "A", samplePlaylist))
	require.Equal(t, http.StatusCreated, w.Code)
	a := decode[models.Playlist](t, w)
	w = do(s, uploadRequest(t, "b.m3u", "B",
		"#EXTM3U\n#EXTINF:-1 group-title=\"Kids\",Cartoons\nhttp://streams.example/kids.m3u8\n"))
	require.Equal(t, http.StatusCreated, w.Code)
	b := decode[models.Playlist](t, w)

	w = do(s, httptest.NewRequest(http.MethodGet, "/api/playlists/"+b.ID+"/channels", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Channel](t, w), 1)

	w = do(s, httptest.NewRequest(http.MethodDelete, "/api/playlists/"+b.ID, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(s, httptest.NewRequest(http.MethodGet, "/api/playlists/categories", nil))
	assert.Equal(t, []string{"All", "News", "Science", "Movies"}, decode[[]string](t, w))

	w = do(s, httptest.NewRequest(http.MethodGet, "/api/playlists/"+b.ID+"/channels", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, httptest.NewRequest(http.MethodGet, "/api/playlists/"+a.ID+"/channels?search=nasa", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Channel](t, w), 1)

	w = do(s, httptest.NewRequest(http.MethodDelete, "/api/playlists/"+b.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthDocsAndCORS(t *testing.T) {
	s := setupServer(t, service.Options{})

	w := do(s, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(s, httptest.NewRequest(http.MethodGet, "/api/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(s, httptest.NewRequest(http.MethodOptions, "/api/playlists/upload", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(s, httptest.NewRequest(http.MethodGet, "/api/docs/openapi.yaml", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/playlists/upload")

	w = do(s, httptest.NewRequest(http.MethodGet, "/api/docs", nil))
	assert.Contains(t, w.Body.String(), "swagger-ui")

	w = do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tvcatalog_http_requests_total")
}
