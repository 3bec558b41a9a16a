// Package server exposes the generated files and promgen's own metrics
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/promgen/internal/discovery"
	"github.com/leapstack-labs/promgen/internal/rules"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Server is the read-only export API.
type Server struct {
	exporter *discovery.Exporter
	renderer *rules.Renderer
	listen   string
	logger   *slog.Logger
}

// Config holds configuration for the server.
type Config struct {
	Exporter *discovery.Exporter
	Renderer *rules.Renderer
	// Listen is the host:port to bind, e.g. ":9191".
	Listen string
	Logger *slog.Logger
}

// New creates a Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		exporter: cfg.Exporter,
		renderer: cfg.Renderer,
		listen:   cfg.Listen,
		logger:   logger,
	}
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/-/healthy", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK\n"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/targets", s.handleTargets)
		r.Get("/config", s.handleConfig)
		r.Get("/rules", s.handleRules)
	})
	return r
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting export server", "addr", s.listen)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.listen,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down export server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	out, err := s.exporter.ExportTargets(r.Context())
	s.respond(w, r, "application/json", out, err)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	out, err := s.exporter.ExportExporterConfig(r.Context(), queryFilter(r, "service"), queryFilter(r, "project"))
	s.respond(w, r, "application/json", out, err)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	out, err := s.renderer.Render(r.Context())
	s.respond(w, r, "text/plain; charset=utf-8", out, err)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, contentType, body string, err error) {
	if err != nil {
		s.logger.Error("export failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write([]byte(body))
}

// queryFilter returns a pointer to the query value, or nil when absent.
func queryFilter(r *http.Request, name string) *string {
	if !r.URL.Query().Has(name) {
		return nil
	}
	v := r.URL.Query().Get(name)
	return &v
}
