package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvcatalog/internal/fetcher"
	"github.com/voyagen/tvcatalog/internal/service"
	"github.com/voyagen/tvcatalog/internal/store"
)

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnsupportedFile),
		errors.Is(err, service.ErrInvalidURL),
		errors.Is(err, service.ErrNotRefreshable):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, fetcher.ErrInvalidPlaylist),
		errors.Is(err, fetcher.ErrNoChannels):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrRefreshInProgress):
		return http.StatusConflict
	case errors.Is(err, fetcher.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrQueueUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	writeErr(w, s.log, statusFor(err), err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeErr(w http.ResponseWriter, log *logrus.Entry, status int, err error) {
	if status >= 500 {
		log.WithError(err).WithField("status", status).Error("request failed")
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}
