package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/live"
	"github.com/meltforce/repcircle/internal/models"
	"github.com/meltforce/repcircle/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HistoryStore serves completed workouts. *storage.DB satisfies it.
type HistoryStore interface {
	QueryCompletedWorkouts(ctx context.Context, q storage.HistoryQuery) ([]models.CompletedWorkout, error)
	GetCompletedWorkout(ctx context.Context, id, userID uuid.UUID) (*models.CompletedWorkout, error)
}

var _ HistoryStore = (*storage.DB)(nil)

// Options toggles optional endpoints.
type Options struct {
	APIKey      string
	MetricsPath string // empty disables /metrics
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	sessions *live.Service
	history  HistoryStore
	log      *slog.Logger
	opts     Options
	whois    WhoIser
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(sessions *live.Service, history HistoryStore, opts Options, log *slog.Logger) *Server {
	s := &Server{
		sessions: sessions,
		history:  history,
		log:      log,
		opts:     opts,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale enables tailnet identity lookups for /api/v1/me.
func (s *Server) SetTailscale(w WhoIser) {
	s.whois = w
}

// MountMCP serves the MCP streamable HTTP handler under /mcp.
func (s *Server) MountMCP(h http.Handler) {
	s.router.With(APIKeyAuth(s.opts.APIKey)).Handle("/mcp", h)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.opts.MetricsPath != "" {
		s.router.Handle(s.opts.MetricsPath, promhttp.Handler())
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(Identity(s.tailnetUser))

		r.Get("/me", s.handleMe)
		r.Get("/history", s.handleHistory)
		r.Get("/history/{id}", s.handleGetHistory)

		r.Get("/sessions", s.handleActiveSessions)
		r.Get("/sessions/{sid}", s.handleGetSession)
		r.Get("/sessions/{sid}/participants", s.handleParticipants)
		r.Get("/sessions/{sid}/participants/{uid}/entries/{eid}", s.handleParticipantSlots)

		// Writes (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.opts.APIKey))

			r.Post("/planned-workouts/{id}/start", s.handleStart)
			r.Post("/planned-workouts/{id}/join", s.handleJoin)

			r.Post("/sessions/{sid}/sets", s.handleSet)
			r.Put("/sessions/{sid}/draft", s.handleDraft)
			r.Post("/sessions/{sid}/skip-to", s.handleSkipTo)
			r.Post("/sessions/{sid}/rest/skip", s.handleSkipRest)
			r.Post("/sessions/{sid}/finish", s.handleFinish)
			r.Delete("/sessions/{sid}", s.handleAbandon)

			r.Put("/sessions/{sid}/participants/{uid}/sets", s.handleCaptureParticipant)
			r.Post("/sessions/{sid}/participants/{uid}/sets/adjust", s.handleAdjustParticipant)
			r.Post("/sessions/{sid}/reconcile", s.handleReconcile)
		})
	})
}
