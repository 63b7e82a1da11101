// Package server provides the HTTP API for the requisition tracker.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/prtrack/internal/config"
	"github.com/hyperjump/prtrack/internal/ingest"
	"github.com/hyperjump/prtrack/internal/keyword"
	"github.com/hyperjump/prtrack/internal/report"
	"github.com/hyperjump/prtrack/internal/search"
	"github.com/hyperjump/prtrack/internal/storage"
)

// WatchService exposes the inbox watcher to the API.
type WatchService interface {
	Directories() []string
}

// Deps are the services the server routes requests to. Index and Watch may be nil.
type Deps struct {
	Ingestor *ingest.Ingestor
	Engine   *search.Engine
	Storage  storage.Storage
	Index    keyword.ItemIndex
	Reports  *report.Builder
	Watch    WatchService
}

// Server is the HTTP server for the tracker API.
type Server struct {
	ingestor *ingest.Ingestor
	engine   *search.Engine
	storage  storage.Storage
	index    keyword.ItemIndex
	reports  *report.Builder
	watch    WatchService
	config   *config.Config
	logger   *zap.Logger
	now      func() time.Time
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		ingestor: deps.Ingestor,
		engine:   deps.Engine,
		storage:  deps.Storage,
		index:    deps.Index,
		reports:  deps.Reports,
		watch:    deps.Watch,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identify)

		r.Get("/status", s.handleStatus)
		r.Get("/watch/directories", s.handleWatchDirectories)
		r.Get("/items/search", s.handleSearchItems)
		r.Get("/report", s.handleReport)

		r.Route("/requisitions", func(r chi.Router) {
			r.Get("/", s.handleListRequisitions)
			r.Get("/{id}", s.handleGetRequisition)
			r.Get("/pending/{id}", s.handleGetPending)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/upload", s.handleUpload)
				r.Post("/manual/{id}", s.handleApplyManual)
				r.Delete("/pending/{id}", s.handleDiscardPending)
				r.Post("/delete", s.handleDeleteRequisitions)
				r.Delete("/{id}", s.handleDeleteRequisition)
				r.Patch("/{id}/items/{itemID}", s.handleUpdateItem)
				r.Post("/{id}/receive-all", s.handleReceiveAll)
				r.Post("/{id}/reopen", s.handleReopen)
			})
		})

		r.With(s.requireAdmin).Post("/reindex", s.handleReindex)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
