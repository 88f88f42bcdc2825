package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/taskd/internal/config"
	"github.com/saltyorg/taskd/internal/metrics"
	"github.com/saltyorg/taskd/internal/web/handlers"
	"github.com/saltyorg/taskd/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	port     int
	bind     string
	timeouts *config.TimeoutConfig
	router   *chi.Mux
	sessions middleware.SessionOpener
	metrics  *metrics.Metrics
	handlers *handlers.Handlers
}

// Options configures a Server
type Options struct {
	Port     int
	Bind     string
	Timeouts *config.TimeoutConfig
	Version  handlers.VersionInfo
}

// NewServer creates a new web server serving the task API. A nil m disables
// request metrics and the /metrics endpoint.
func NewServer(sessions middleware.SessionOpener, m *metrics.Metrics, opts Options) *Server {
	s := &Server{
		port:     opts.Port,
		bind:     opts.Bind,
		timeouts: opts.Timeouts.Resolved(),
		router:   chi.NewRouter(),
		sessions: sessions,
		metrics:  m,
		handlers: handlers.New(opts.Version),
	}

	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	r := s.router
	h := s.handlers

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics(s.metrics))
	r.Use(chimiddleware.Recoverer)

	r.Get("/", h.Status)
	r.Get("/version", h.Version)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	// Routes that may touch the store get a request-scoped session
	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(s.timeouts.Request))
		r.Use(middleware.Sessions(s.sessions, s.metrics))

		r.Get("/db-check", h.API(h.DBCheck))

		r.Route("/task", func(r chi.Router) {
			r.Get("/", h.API(h.ListTasks))
			r.Post("/", h.API(h.CreateTask))
			r.Get("/{id}", h.API(h.GetTask))
			r.Put("/{id}", h.API(h.UpdateTask))
			r.Delete("/{id}", h.API(h.DeleteTask))
		})
	})
}

// Start starts the web server and blocks until ctx is cancelled or the
// listener fails
func (s *Server) Start(ctx context.Context) error {
	var addr string
	if s.bind != "" {
		addr = fmt.Sprintf("%s:%d", s.bind, s.port)
	} else {
		addr = fmt.Sprintf(":%d", s.port)
	}

	server := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: s.timeouts.HTTPRead,
		IdleTimeout: s.timeouts.HTTPIdle,
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeouts.Shutdown)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
