// Package report serves the read-only project snapshot and the filter
// operation over HTTP, for report tooling that renders summaries
// outside this process.
package report

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/qarve/qarve/pkg/project"
)

// Server exposes one loaded project. The graph is immutable, so
// concurrent reads need no locking; each filter request builds its own
// selection state.
type Server struct {
	graph  *project.Graph
	addr   string
	logger *log.Logger
}

// Config holds the server configuration.
type Config struct {
	Graph  *project.Graph
	Addr   string
	Logger *log.Logger
}

// NewServer creates a server for one loaded project.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		graph:  cfg.Graph,
		addr:   cfg.Addr,
		logger: logger,
	}
}

// Routes builds the API router.
func (s *Server) Routes() chi.Router {
	h := newHandlers(s.graph, s.logger)

	r := chi.NewMux()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", h.Summary)                     // Snapshot with counts and trees
		r.Get("/layers", h.Layers)                       // Layer inventory
		r.Get("/styles/{layer}/{style}", h.StylePayload) // Verbatim style element
		r.Get("/layouts/{name}", h.LayoutPayload)        // Verbatim layout element
		r.Post("/filter", h.Filter)                      // Selection manifest in, archive out
	})
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting report server", "addr", s.addr)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down report server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
