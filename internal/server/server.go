// Package server provides the HTTP API for docsage.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/docsage/internal/config"
	"github.com/hyperjump/docsage/internal/index"
	"github.com/hyperjump/docsage/internal/ingest"
	"github.com/hyperjump/docsage/internal/retrieval"
	"github.com/hyperjump/docsage/internal/themes"
	"github.com/hyperjump/docsage/internal/watcher"
)

// Server is the HTTP server for the docsage API.
type Server struct {
	ingestor   *ingest.Ingestor
	retriever  *retrieval.Coordinator
	aggregator *themes.Aggregator
	index      *index.ChunkIndex
	watch      *watcher.Watcher
	config     *config.Config
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies. watch may be nil
// when directory watching is disabled.
func NewServer(
	ingestor *ingest.Ingestor,
	retriever *retrieval.Coordinator,
	aggregator *themes.Aggregator,
	idx *index.ChunkIndex,
	watch *watcher.Watcher,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		ingestor:   ingestor,
		retriever:  retriever,
		aggregator: aggregator,
		index:      idx,
		watch:      watch,
		config:     cfg,
		logger:     logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/documents", s.handleUpload)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/themes", s.handleThemes)
	r.Get("/api/v1/export", s.handleExport)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
