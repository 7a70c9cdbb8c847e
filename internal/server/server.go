// package server contains middleware & handlers for the student roster HTTP API
package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/services"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/desertthunder/roster/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// StudentService is the subset of [services.StudentService] the API needs.
type StudentService interface {
	AddStudent(ctx context.Context, s *models.Student) error
	UpdateStudent(ctx context.Context, s *models.Student) error
	DeleteStudent(ctx context.Context, id string) error
	GetStudentByID(ctx context.Context, id string) (*models.Student, error)
	SearchStudents(ctx context.Context, criteria map[string]any) []models.Student
	Stats(ctx context.Context) (*services.Stats, error)
	Jobs(ctx context.Context, limit int) ([]*models.Job, error)
	ImportReader(ctx context.Context, source string, r io.Reader, progress chan<- tasks.ProgressUpdate) (*services.ImportResult, error)
}

// Server is the HTTP server for the roster API.
type Server struct {
	service StudentService
	router  *chi.Mux
	mu      sync.Mutex
	server  *http.Server
	closed  bool
	logger  *log.Logger
}

// NewServer creates a Server with middleware and routes installed.
func NewServer(service StudentService, cfg shared.ServerConfig, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Server{
		service: service,
		router:  chi.NewRouter(),
		logger:  logger,
	}
	s.setupMiddleware(cfg)
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware(cfg shared.ServerConfig) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if cfg.RateLimit > 0 {
		s.router.Use(RateLimit(cfg.RateLimit, cfg.Burst))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/students", func(r chi.Router) {
		r.Get("/", s.handleListStudents)
		r.Post("/", s.handleCreateStudent)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		r.Get("/{id}", s.handleGetStudent)
		r.Put("/{id}", s.handleUpdateStudent)
		r.Delete("/{id}", s.handleDeleteStudent)
	})

	s.router.Get("/stats", s.handleStats)
	s.router.Get("/jobs", s.handleJobs)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found", "not_found")
	})
}

// Start listens on addr until [Server.Shutdown] is called.
//
// Start after Shutdown returns [http.ErrServerClosed] without listening.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.server = srv
	s.mu.Unlock()

	s.logger.Info("Starting server", "addr", addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
