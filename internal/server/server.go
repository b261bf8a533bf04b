package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meltforce/cadence/internal/models"
	"github.com/meltforce/cadence/internal/storage"
)

// Store is the storage surface the handlers use. *storage.DB satisfies
// it; tests substitute an in-memory fake.
type Store interface {
	InsertPlan(ctx context.Context, plan *models.WorkoutPlan) (bool, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*models.WorkoutPlan, error)
	ListPlans(ctx context.Context) ([]*models.WorkoutPlan, error)
	DeletePlan(ctx context.Context, id uuid.UUID) (bool, error)
	InsertRunRecord(ctx context.Context, rec models.RunRecord) (bool, error)
	QueryRunRecords(ctx context.Context, start, end time.Time) ([]models.RunRecord, error)
}

// Compile-time check: *storage.DB satisfies Store.
var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db     Store
	runs   *RunManager
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(db Store, runs *RunManager, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:     db,
		runs:   runs,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Read-only endpoints (no auth — tsnet handles access)
	s.router.Get("/api/v1/plans", s.handleListPlans)
	s.router.Get("/api/v1/plans/{id}", s.handleGetPlan)
	s.router.Get("/api/v1/runs", s.handleListRuns)
	s.router.Get("/api/v1/runs/{id}", s.handleGetRun)
	s.router.Get("/api/v1/history", s.handleRunHistory)

	// Mutating endpoints (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/api/v1/plans", s.handleCreatePlan)
		r.Delete("/api/v1/plans/{id}", s.handleDeletePlan)
		r.Post("/api/v1/runs", s.handleStartRun)
		r.Post("/api/v1/runs/{id}/pause", s.runCommand(commandPause))
		r.Post("/api/v1/runs/{id}/resume", s.runCommand(commandResume))
		r.Post("/api/v1/runs/{id}/skip", s.runCommand(commandSkip))
		r.Post("/api/v1/runs/{id}/stop", s.runCommand(commandStop))
		r.Post("/api/v1/runs/{id}/background", s.runCommand(commandBackground))
		r.Post("/api/v1/runs/{id}/foreground", s.runCommand(commandForeground))
	})
}
