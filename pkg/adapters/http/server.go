package http

import (
	"log/slog"
	"net/http"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/access"
	"github.com/aretw0/intake/pkg/schema"
	"github.com/aretw0/intake/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server serves the intake API.
type Server struct {
	sessions  *session.Manager
	directory *access.Directory
	streams   *StreamManager
	logger    *slog.Logger
	schemas   map[string]schema.Schema
	extra     map[string]http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithStreams enables GET /intakes/{id}/events. The same StreamManager's
// Hooks must be registered on the engine.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.streams = sm }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSchemas publishes field schemas alongside the step list.
func WithSchemas(schemas map[string]schema.Schema) Option {
	return func(s *Server) { s.schemas = schemas }
}

// WithHandler mounts an extra handler, e.g. promhttp on /metrics.
func WithHandler(pattern string, h http.Handler) Option {
	return func(s *Server) { s.extra[pattern] = h }
}

// NewHandler creates the HTTP handler.
func NewHandler(sessions *session.Manager, directory *access.Directory, opts ...Option) http.Handler {
	s := &Server{
		sessions:  sessions,
		directory: directory,
		logger:    logging.NewNop(),
		extra:     make(map[string]http.Handler),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/steps", s.GetSteps)
	for pattern, h := range s.extra {
		r.Handle(pattern, h)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/menu", s.GetMenu)

		r.Route("/intakes", func(r chi.Router) {
			r.Use(s.require(access.PermEditComercial))
			r.Post("/", s.StartIntake)
			r.Post("/resume", s.ResumeIntake)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetIntake)
				r.Delete("/", s.EndIntake)
				r.Put("/steps/{step}", s.PutStep)
				r.Post("/next", s.Next)
				r.Post("/prev", s.Prev)
				r.Post("/draft", s.SaveDraft)
				r.Post("/submit", s.Submit)
				r.Get("/events", s.SubscribeEvents)
			})
		})
	})

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+HeaderUserEmail)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
