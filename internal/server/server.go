// Package server exposes the engine over HTTP: hosts POST events, the
// resolved payloads go into the sink chain.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/agentic-research/lina/internal/engine"
	"github.com/agentic-research/lina/internal/ingest"
	"github.com/agentic-research/lina/internal/sink"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxEventBytes bounds one event body.
const maxEventBytes = 16 << 20

// Recorder keeps a copy of every accepted event.
type Recorder interface {
	Record(ev ingest.Event) error
}

// Deliveries lists payloads the primary target accepted.
type Deliveries interface {
	Recent(ctx context.Context, limit int) ([]sink.Archived, error)
}

// Options holds the optional collaborators of a Server.
type Options struct {
	// APIKey, when set, guards the /v1 routes with bearer auth.
	APIKey     string
	Recorder   Recorder
	Deliveries Deliveries
}

// Server is the HTTP ingest server.
type Server struct {
	router   chi.Router
	resolver engine.Resolver
	out      sink.Sink
	log      *slog.Logger
	opts     Options
}

// New creates and configures the HTTP server.
func New(resolver engine.Resolver, out sink.Sink, log *slog.Logger, opts Options) *Server {
	s := &Server{
		resolver: resolver,
		out:      out,
		log:      log,
		opts:     opts,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.opts.APIKey != "" {
			r.Use(AuthMiddleware(s.opts.APIKey))
		}
		r.Post("/v1/events", s.handleEvent)
		if s.opts.Deliveries != nil {
			r.Get("/v1/deliveries", s.handleDeliveries)
		}
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
