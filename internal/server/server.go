// Package server provides the HTTP API for kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/index"
	"github.com/hyperjump/kotae/internal/querylog"
	"github.com/hyperjump/kotae/internal/retrieval"
)

// Server is the HTTP server for the kotae API.
type Server struct {
	retriever *retrieval.Retriever
	builder   *index.Builder
	generator answer.Generator
	qlog      *querylog.Log
	cfg       *config.Config
	logger    *zap.Logger
	server    *http.Server

	rebuilding atomic.Bool
}

// NewServer creates a server with the given dependencies. generator and
// qlog may be nil: without a generator /api/v1/ask returns retrieval results
// only, and without a query log nothing is recorded.
func NewServer(
	retriever *retrieval.Retriever,
	builder *index.Builder,
	generator answer.Generator,
	qlog *querylog.Log,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		retriever: retriever,
		builder:   builder,
		generator: generator,
		qlog:      qlog,
		cfg:       cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/reindex", s.handleReindex)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
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
