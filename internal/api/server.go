package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/summitapp/viewerd/internal/config"
	"github.com/summitapp/viewerd/internal/viewer"
)

// Server is the HTTP gateway hosting viewer sessions.
type Server struct {
	router chi.Router
	store  *viewer.Store
	deps   viewer.Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server. deps is the
// collaborator bundle handed to every session it creates.
func NewServer(store *viewer.Store, deps viewer.Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store: store,
		deps:  deps,
		log:   log,
		cfg:   cfg,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.ViewerAPIKey, s.log))

		r.Post("/api/sessions", s.handleCreateSession)
		r.Get("/api/sessions/{sessionID}", s.handleGetSession)
		r.Delete("/api/sessions/{sessionID}", s.handleCloseSession)

		r.Post("/api/sessions/{sessionID}/next", s.handleNext)
		r.Post("/api/sessions/{sessionID}/prev", s.handlePrev)
		r.Post("/api/sessions/{sessionID}/page", s.handleCommitPage)
		r.Post("/api/sessions/{sessionID}/viewport", s.handleViewport)

		r.Get("/api/sessions/{sessionID}/frame", s.handleFrame)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
