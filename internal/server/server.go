package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvcatalog/internal/config"
	"github.com/voyagen/tvcatalog/internal/metrics"
	"github.com/voyagen/tvcatalog/internal/service"
	"github.com/voyagen/tvcatalog/internal/store"
)

// Server holds dependencies for the HTTP API.
type Server struct {
	store    store.Store
	ingester *service.Ingester
	cfg      *config.Config
	log      *logrus.Entry
	router   chi.Router
}

// New creates a Server and registers routes.
func New(s store.Store, ing *service.Ingester, cfg *config.Config, log *logrus.Entry) *Server {
	srv := &Server{store: s, ingester: ing, cfg: cfg, log: log, router: chi.NewRouter()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(s.withLogging)
	r.Use(middleware.Recoverer)
	r.Use(withCORS)
	r.Use(metrics.Middleware)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.handleRoot)
		r.Get("/health", s.handleHealth)

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", s.handleListPlaylists)
			r.Get("/channels", s.handleListChannels)
			r.Get("/categories", s.handleListCategories)
			r.Post("/upload", s.handleUpload)
			r.Post("/url", s.handleAddURL)
			r.Delete("/{id}", s.handleDeletePlaylist)
			r.Get("/{id}/channels", s.handlePlaylistChannels)
			r.Put("/{id}/refresh", s.handleRefresh)
		})

		r.Get("/docs", handleSwaggerUI)
		r.Get("/docs/openapi.yaml", handleOpenAPISpec)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Error("server shutdown")
		}
	}()

	s.log.WithField("addr", addr).Info("listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}
