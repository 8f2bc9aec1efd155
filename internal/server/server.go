// Package server exposes job submission, status polling and diagnostics
// over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
	"github.com/pteargryphon/creative-brief-generator/internal/job"
	"github.com/pteargryphon/creative-brief-generator/internal/resilience"
)

// recentErrorLimit caps the entries returned by /debug.
const recentErrorLimit = 10

// Executor is the part of job.Executor the handlers need.
type Executor interface {
	Submit(id, url string) error
	Cancel(id string) error
	Stats() job.Stats
}

// Options configures a Server.
type Options struct {
	Store       *job.Store
	Executor    Executor
	Errors      *errlog.Aggregator
	Breakers    *resilience.Breakers
	Credentials []errlog.Credential
	CORSOrigins []string
}

// Server holds the handler dependencies.
type Server struct {
	store    *job.Store
	exec     Executor
	errors   *errlog.Aggregator
	breakers *resilience.Breakers
	creds    []errlog.Credential
	origins  []string
	validate *validator.Validate
}

// New creates a Server.
func New(opts Options) *Server {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		store:    opts.Store,
		exec:     opts.Executor,
		errors:   opts.Errors,
		breakers: opts.Breakers,
		creds:    opts.Credentials,
		origins:  origins,
		validate: validator.New(),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/debug", s.debug)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.generate)
		r.Get("/status/{jobID}", s.status)
		r.Delete("/jobs/{jobID}", s.cancel)
	})

	return r
}

// NewHTTPServer wraps the handler with the timeouts used in production.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
