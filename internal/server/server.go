// Package server exposes the journal over a small JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/observe"
	"github.com/ppiankov/symptomlog/internal/pipeline"
	"github.com/ppiankov/symptomlog/internal/worker"
)

// Analyzer analyzes and records transcripts
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (*model.Analysis, error)
	Record(ctx context.Context, sub pipeline.Submission) (*model.Entry, error)
}

// EntryReader reads stored entries
type EntryReader interface {
	Get(ctx context.Context, id string) (*model.Entry, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Entry, error)
	SymptomStats(ctx context.Context, userID string) ([]model.SymptomStat, error)
}

// Options wires a Server
type Options struct {
	Config   model.ServerConfig
	Pipeline Analyzer
	Entries  EntryReader
	Limiter  *worker.Limiter // nil disables per-user limiting
	Metrics  *observe.Metrics

	// MetricsHandler is mounted on /metrics when set
	MetricsHandler http.Handler

	// Health reports readiness for /healthz; nil means always healthy
	Health func(ctx context.Context) error

	Logger zerolog.Logger
}

// Server is the HTTP API
type Server struct {
	cfg      model.ServerConfig
	pipeline Analyzer
	entries  EntryReader
	limiter  *worker.Limiter
	metrics  *observe.Metrics
	health   func(ctx context.Context) error
	logger   zerolog.Logger
	handler  http.Handler
}

// New creates a server and its routes
func New(opts Options) *Server {
	s := &Server{
		cfg:      opts.Config,
		pipeline: opts.Pipeline,
		entries:  opts.Entries,
		limiter:  opts.Limiter,
		metrics:  opts.Metrics,
		health:   opts.Health,
		logger:   opts.Logger,
	}
	if s.cfg.MaxTranscriptBytes <= 0 {
		s.cfg.MaxTranscriptBytes = 64 * 1024
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/extract", s.handleExtract)
	mux.HandleFunc("POST /api/entries", s.handleCreateEntry)
	mux.HandleFunc("GET /api/entries", s.handleListEntries)
	mux.HandleFunc("GET /api/entries/{id}", s.handleGetEntry)
	mux.HandleFunc("GET /api/users/{user_id}/stats", s.handleStats)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	s.handler = observe.Middleware(s.metrics, s.logger)(mux)
	return s
}

// Handler returns the root handler with logging and metrics applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
