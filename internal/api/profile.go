package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/haven/internal/mood"
	"github.com/MikeSquared-Agency/haven/internal/store"
)

type profileStats struct {
	Sessions           int     `json:"sessions"`
	JournalEntries     int     `json:"journal_entries"`
	ExercisesCompleted int     `json:"exercises_completed"`
	AvgMood            *string `json:"avg_mood"`
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	profile, err := s.Store.GetProfile(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		JSON(w, http.StatusOK, map[string]any{"profile": nil, "stats": nil})
		return
	}
	if err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}

	var (
		totals store.ActivityTotals
		labels []string
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		totals, err = s.Store.CountAll(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		labels, err = s.Store.ListAllMoodLabels(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"profile": profile,
		"stats": profileStats{
			Sessions:           totals.Sessions,
			JournalEntries:     totals.JournalEntries,
			ExercisesCompleted: totals.ExercisesCompleted,
			AvgMood:            mood.ProfileAverage(labels),
		},
	})
}

type preferencesRequest struct {
	PreferredTone         *string `json:"preferred_tone"`
	PreferredAgent        *string `json:"preferred_agent"`
	AllowAgentSuggestions *bool   `json:"allow_agent_suggestions"`
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req preferencesRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err, "Invalid preferences")
		return
	}
	if err := s.Store.UpdatePreferences(r.Context(), userID, store.Preferences{
		PreferredTone:         req.PreferredTone,
		PreferredAgent:        req.PreferredAgent,
		AllowAgentSuggestions: req.AllowAgentSuggestions,
	}); err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// getSettings returns null for a settings or profile row that does not
// exist yet.
func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var (
		settings *store.Settings
		profile  *store.Profile
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		settings, err = s.Store.GetSettings(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	g.Go(func() (err error) {
		profile, err = s.Store.GetProfile(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"settings": settings, "profile": profile})
}

type settingsRequest struct {
	NotifyMoodReminder    bool `json:"notify_mood_reminder"`
	NotifyProgressSummary bool `json:"notify_progress_summary"`
	NotifyJournalNudge    bool `json:"notify_journal_nudge"`
	NotifyExerciseStreak  bool `json:"notify_exercise_streak"`
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req settingsRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err, "Invalid settings")
		return
	}
	if err := s.Store.UpdateSettings(r.Context(), store.Settings{
		UserID:                userID,
		NotifyMoodReminder:    req.NotifyMoodReminder,
		NotifyProgressSummary: req.NotifyProgressSummary,
		NotifyJournalNudge:    req.NotifyJournalNudge,
		NotifyExerciseStreak:  req.NotifyExerciseStreak,
	}); err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

type updatePhoneRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	Phone       string `json:"phone" validate:"required"`
	DisplayName string `json:"display_name"`
}

// updatePhone is called during sign-up before a token exists, so it trusts
// the user_id in the body.
func (s *Server) updatePhone(w http.ResponseWriter, r *http.Request) {
	var req updatePhoneRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err, "Missing user_id or phone")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		Error(w, http.StatusBadRequest, "Invalid user_id")
		return
	}
	if err := s.Store.UpsertPhone(r.Context(), userID, req.Phone, req.DisplayName); err != nil {
		s.Logger.Error("upsert phone failed", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
