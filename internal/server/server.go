package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/overload/internal/advisor"
	"github.com/claude/overload/internal/backup"
	"github.com/claude/overload/internal/ingest"
	"github.com/claude/overload/internal/metrics"
	"github.com/claude/overload/internal/models"
	"github.com/claude/overload/internal/progression"
	"github.com/claude/overload/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Store is the storage the handlers read and write directly.
type Store interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)

	CreateExercise(ctx context.Context, e *models.Exercise) error
	GetExercise(ctx context.Context, userID int, id uuid.UUID) (*models.Exercise, error)
	ListExercises(ctx context.Context, userID int) ([]models.Exercise, error)
	UpdateExercise(ctx context.Context, e *models.Exercise) error
	DeleteExercise(ctx context.Context, userID int, id uuid.UUID) error

	CreateRoutine(ctx context.Context, r *models.Routine) error
	GetRoutine(ctx context.Context, userID int, id uuid.UUID) (*models.Routine, error)
	ListRoutines(ctx context.Context, userID int) ([]models.Routine, error)
	DeleteRoutine(ctx context.Context, userID int, id uuid.UUID) error

	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.Session, error)
	ListSessions(ctx context.Context, userID, limit int) ([]models.Session, error)
	EndSession(ctx context.Context, userID int, id uuid.UUID, at time.Time) (*models.Session, error)

	InsertSet(ctx context.Context, s *models.SetEntry) error
	AppendSet(ctx context.Context, s *models.SetEntry) error
	UpdateSet(ctx context.Context, s *models.SetEntry) error
	DeleteSet(ctx context.Context, userID int, id uuid.UUID) error
	ListSessionSets(ctx context.Context, userID int, sessionID uuid.UUID) ([]models.SetEntry, error)

	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
}

// Ingester turns an uploaded export into stored sessions.
type Ingester interface {
	Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error)
}

// Deps are the collaborators a Server is built from. Metrics and
// MetricsHandler may be nil.
type Deps struct {
	Store          Store
	Advisor        *advisor.Service
	Backup         *backup.Service
	Alpha          Ingester
	Defaults       progression.Config
	Metrics        *metrics.Manager
	MetricsHandler http.Handler
	APIKey         string
	Log            *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       Store
	advisor  *advisor.Service
	backup   *backup.Service
	alpha    Ingester
	defaults progression.Config
	metrics  *metrics.Manager
	log      *slog.Logger
	apiKey   string
	whois    WhoIser
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(d Deps) *Server {
	s := &Server{
		db:       d.Store,
		advisor:  d.Advisor,
		backup:   d.Backup,
		alpha:    d.Alpha,
		defaults: d.Defaults,
		metrics:  d.Metrics,
		log:      d.Log,
		apiKey:   d.APIKey,
		router:   chi.NewRouter(),
	}
	s.routes(d.MetricsHandler)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches identity resolution from the dev user to the tailnet
// peer making each request.
func (s *Server) SetTailscale(w WhoIser) {
	s.whois = w
}

// Mount attaches an extra handler (e.g. the MCP endpoint) behind identity
// resolution.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.With(s.identify).Mount(pattern, h)
}

func (s *Server) routes(metricsHandler http.Handler) {
	if s.metrics != nil {
		s.router.Use(RequestMetrics(s.metrics))
	}
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		s.router.Handle("/metrics", metricsHandler)
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identify)

		r.Get("/me", s.handleMe)
		r.Get("/one-rep-max", s.handleOneRepMax)

		r.Get("/exercises", s.handleListExercises)
		r.Get("/exercises/{id}", s.handleGetExercise)
		r.Get("/exercises/{id}/suggestion", s.handleSuggestion)
		r.Get("/exercises/{id}/history", s.handleHistory)
		r.Get("/routines", s.handleListRoutines)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/sessions/{id}/sets", s.handleListSessionSets)
		r.Get("/export", s.handleExport)
		r.Get("/import-logs", s.handleImportLogs)

		// Mutations (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))

			r.Post("/exercises", s.handleCreateExercise)
			r.Put("/exercises/{id}", s.handleUpdateExercise)
			r.Delete("/exercises/{id}", s.handleDeleteExercise)
			r.Post("/routines", s.handleCreateRoutine)
			r.Delete("/routines/{id}", s.handleDeleteRoutine)
			r.Post("/sessions", s.handleCreateSession)
			r.Post("/sessions/{id}/end", s.handleEndSession)
			r.Post("/sessions/{id}/sets", s.handleAddSet)
			r.Put("/sets/{id}", s.handleUpdateSet)
			r.Delete("/sets/{id}", s.handleDeleteSet)
			r.Post("/ingest/alpha", s.handleAlphaIngest)
			r.Post("/import", s.handleImport)
		})
	})
}
