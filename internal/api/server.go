// Package api is the HTTP surface: request validation, auth, and JSON
// responses over the store and the analysis pipeline.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/haven/internal/analysis"
	"github.com/MikeSquared-Agency/haven/internal/auth"
	"github.com/MikeSquared-Agency/haven/internal/metrics"
	"github.com/MikeSquared-Agency/haven/internal/progress"
	"github.com/MikeSquared-Agency/haven/internal/store"
	"github.com/MikeSquared-Agency/haven/internal/toughtongue"
)

// Store is the persistence the handlers read and write directly.
type Store interface {
	Ping(ctx context.Context) error

	GetSession(ctx context.Context, userID uuid.UUID, sessionID string) (*store.Session, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]store.Session, error)

	UpsertMood(ctx context.Context, in store.MoodInput) (*store.MoodEntry, error)
	ListMoodsSince(ctx context.Context, userID uuid.UUID, since string, ascending bool) ([]store.MoodEntry, error)
	ListAllMoodLabels(ctx context.Context, userID uuid.UUID) ([]string, error)

	CreateJournal(ctx context.Context, userID uuid.UUID, content string, linkedSessionID *uuid.UUID) (*store.JournalEntry, error)
	GetJournal(ctx context.Context, userID, id uuid.UUID) (*store.JournalEntry, error)
	ListJournals(ctx context.Context, userID uuid.UUID) ([]store.JournalEntry, error)

	ListExercises(ctx context.Context) ([]store.Exercise, error)
	GetExercise(ctx context.Context, id uuid.UUID) (*store.Exercise, error)
	LogExercise(ctx context.Context, userID, exerciseID uuid.UUID) (*store.ExerciseLog, error)

	CreateProgressInsight(ctx context.Context, userID uuid.UUID, source, summary string, tags []string) (*store.ProgressInsight, error)

	GetProfile(ctx context.Context, userID uuid.UUID) (*store.Profile, error)
	UpdatePreferences(ctx context.Context, userID uuid.UUID, p store.Preferences) error
	UpsertPhone(ctx context.Context, userID uuid.UUID, phone, displayName string) error
	GetSettings(ctx context.Context, userID uuid.UUID) (*store.Settings, error)
	UpdateSettings(ctx context.Context, st store.Settings) error
	CountAll(ctx context.Context, userID uuid.UUID) (store.ActivityTotals, error)

	ListFeedback(ctx context.Context, userID uuid.UUID) ([]store.Feedback, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, sessionID string, userID uuid.UUID, transcript string) (*analysis.Result, error)
	AnalyzeFromSource(ctx context.Context, sessionID string, userID uuid.UUID) (*analysis.Result, error)
}

// SessionSource reads raw session data from the recording service.
type SessionSource interface {
	FetchBundle(ctx context.Context, sessionID string) (*toughtongue.Bundle, error)
}

type Progress interface {
	Summary(ctx context.Context, userID uuid.UUID, now time.Time) (*progress.Summary, error)
	Badges(ctx context.Context, userID uuid.UUID, now time.Time) (*progress.BadgeReport, error)
}

type FeedbackSubmitter interface {
	Submit(ctx context.Context, userID uuid.UUID, kind, message string) (*store.Feedback, error)
}

type Publisher interface {
	Publish(subject string, data any) error
}

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Connectivity reports whether the event bus is reachable.
type Connectivity interface {
	Connected() bool
}

type Options struct {
	Port               int
	CORSOrigins        []string
	AnalyzeRequireAuth bool
}

// Deps are the collaborators behind the routes. Source, Events, Bus,
// Limiter and Metrics may be left nil.
type Deps struct {
	Store    Store
	Analyzer Analyzer
	Source   SessionSource
	Progress Progress
	Feedback FeedbackSubmitter
	Events   Publisher
	Bus      Connectivity
	Limiter  Limiter
	Verifier *auth.Verifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

type Server struct {
	router     *chi.Mux
	port       int
	httpServer *http.Server

	Deps
	requireAuthForAnalyze bool
	now                   func() time.Time
}

func NewServer(opts Options, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware)
	}
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(CORS(opts.CORSOrigins))

	s := &Server{
		router:                router,
		port:                  opts.Port,
		Deps:                  deps,
		requireAuthForAnalyze: opts.AnalyzeRequireAuth,
		now:                   time.Now,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/haven/status", s.status)
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler())
	}

	// The analysis endpoint trusts the user_id in the body. A token, when
	// sent, must name the same user.
	router.Group(func(r chi.Router) {
		if s.requireAuthForAnalyze {
			r.Use(deps.Verifier.Required)
		} else {
			r.Use(deps.Verifier.Optional)
		}
		r.Post("/api/analyze-session", s.analyzeSession)
	})

	router.Post("/api/update-phone", s.updatePhone)

	router.Route("/api", func(r chi.Router) {
		r.Use(deps.Verifier.Required)

		r.Post("/toughtongue", s.toughTongue)

		r.Get("/sessions", s.listSessions)
		r.Get("/sessions/{sessionID}", s.getSession)
		r.Post("/sessions/{sessionID}/analyze", s.analyzeStoredSession)

		r.Get("/mood", s.listMoods)
		r.Post("/mood", s.recordMood)
		r.Get("/mood/stats", s.moodStats)

		r.Get("/progress/summary", s.progressSummary)
		r.Get("/progress/badges", s.progressBadges)
		r.Post("/progress/insight", s.progressInsight)

		r.Get("/journal", s.listJournals)
		r.Post("/journal", s.createJournal)
		r.Get("/journal/{id}", s.getJournal)

		r.Get("/exercises", s.listExercises)
		r.Get("/exercises/{id}", s.getExercise)
		r.Post("/exercises/{id}/complete", s.completeExercise)

		r.Get("/profile", s.getProfile)
		r.Put("/profile", s.updateProfile)
		r.Get("/settings", s.getSettings)
		r.Put("/settings", s.updateSettings)

		r.Get("/feedback", s.listFeedback)
		r.Post("/feedback", s.submitFeedback)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Analysis waits on the model, so writes get a long deadline.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
	s.Logger.Info("API server starting", "addr", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// status reports dependency reachability. It answers 503 when the database
// is down; a missing event bus only degrades it.
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]string{
		"service":  "haven",
		"database": "ok",
		"events":   "disabled",
	}
	code := http.StatusOK
	if err := s.Store.Ping(ctx); err != nil {
		s.Logger.Warn("database ping failed", "error", err)
		body["database"] = "unreachable"
		code = http.StatusServiceUnavailable
	}
	if s.Bus != nil {
		if s.Bus.Connected() {
			body["events"] = "connected"
		} else {
			body["events"] = "disconnected"
		}
	}
	JSON(w, code, body)
}
