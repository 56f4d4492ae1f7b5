// Package server provides the FluentNotes HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/raphaelgruber/fluentnotes-go/internal/metrics"
	"github.com/raphaelgruber/fluentnotes-go/internal/service"
)

// Server wraps the HTTP server with its dependencies.
type Server struct {
	router    *mux.Router
	http      *http.Server
	logger    *slog.Logger
	jobs      *service.JobManager
	query     *service.QueryService
	export    *service.ExportService
	collector *metrics.Collector
}

// Config bundles the server's dependencies.
type Config struct {
	Port      string
	Jobs      *service.JobManager
	Query     *service.QueryService
	Export    *service.ExportService
	Collector *metrics.Collector
	Logger    *slog.Logger
}

// New creates the HTTP server and registers all routes.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Collector == nil {
		cfg.Collector = metrics.NewCollector()
	}

	s := &Server{
		router:    mux.NewRouter(),
		logger:    cfg.Logger,
		jobs:      cfg.Jobs,
		query:     cfg.Query,
		export:    cfg.Export,
		collector: cfg.Collector,
	}

	s.routes()

	s.http = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      LoggingMiddleware(cfg.Logger)(s.router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/v1").Subrouter()

	// /search before /{id} so it isn't captured as a job ID
	api.HandleFunc("/meetings/search", s.handleSearch).Methods("GET")
	api.HandleFunc("/meetings", s.handleUpload).Methods("POST")
	api.HandleFunc("/meetings", s.handleList).Methods("GET")
	api.HandleFunc("/meetings/{id}", s.handleStatus).Methods("GET")
	api.HandleFunc("/meetings/{id}/summary", s.handleSummary).Methods("GET")
	api.HandleFunc("/meetings/{id}/transcript", s.handleTranscript).Methods("GET")
	api.HandleFunc("/meetings/{id}/export", s.handleExport).Methods("GET")
	api.HandleFunc("/meetings/{id}/events", s.handleEvents).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	s.router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run starts the server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down http server")
	return s.http.Shutdown(shutdownCtx)
}
