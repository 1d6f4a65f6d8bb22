package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/voyagen/tvcatalog/internal/service"
	"github.com/voyagen/tvcatalog/internal/store"
)

// multipartOverhead is the allowance for form boundaries and the name field
// on top of the configured upload limit.
const multipartOverhead = 1 << 20

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "tvcatalog",
		"docs":    "/api/docs",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeErr(w, s.log, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- playlist handlers ---

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.store.ListPlaylists(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, s.log, http.StatusRequestEntityTooLarge, service.ErrFileTooLarge)
			return
		}
		writeErr(w, s.log, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, s.log, http.StatusBadRequest, fmt.Errorf("file is required"))
		return
	}
	defer file.Close()

	p, err := s.ingester.IngestFile(r.Context(), header.Filename, r.FormValue("name"), file)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type addURLRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) handleAddURL(w http.ResponseWriter, r *http.Request) {
	var req addURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, s.log, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.URL == "" {
		writeErr(w, s.log, http.StatusBadRequest, fmt.Errorf("url is required"))
		return
	}

	p, err := s.ingester.IngestURL(r.Context(), req.Name, req.URL)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.ingester.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		if err := s.ingester.EnqueueRefresh(r.Context(), id); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "playlist_id": id})
		return
	}

	p, err := s.ingester.Refresh(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- catalog handlers ---

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	s.listChannels(w, r, "")
}

func (s *Server) handlePlaylistChannels(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetPlaylist(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	s.listChannels(w, r, id)
}

func (s *Server) listChannels(w http.ResponseWriter, r *http.Request, playlistID string) {
	q := r.URL.Query()
	channels, err := s.store.ListChannels(r.Context(), store.ChannelFilter{
		PlaylistID: playlistID,
		Category:   q.Get("category"),
		Search:     q.Get("search"),
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := service.Categories(r.Context(), s.store)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}
