package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/haven/internal/hermes"
	"github.com/MikeSquared-Agency/haven/internal/mood"
	"github.com/MikeSquared-Agency/haven/internal/progress"
	"github.com/MikeSquared-Agency/haven/internal/store"
)

type moodRequest struct {
	Mood            string     `json:"mood" validate:"required"`
	Note            *string    `json:"note"`
	LinkedSessionID *uuid.UUID `json:"linked_session_id"`
	LinkedJournalID *uuid.UUID `json:"linked_journal_id"`
}

// moodWindowStart is the first calendar day of the trailing window.
func (s *Server) moodWindowStart() string {
	return s.now().Add(-progress.Window).UTC().Format(store.DateLayout)
}

func (s *Server) listMoods(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	entries, err := s.Store.ListMoodsSince(r.Context(), userID, s.moodWindowStart(), false)
	if err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusOK, emptyIfNil(entries))
}

// recordMood upserts today's entry. Repeat calls on the same day replace it.
func (s *Server) recordMood(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req moodRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err, "Mood is required")
		return
	}

	today := s.now().UTC().Format(store.DateLayout)
	if _, err := s.Store.UpsertMood(r.Context(), store.MoodInput{
		UserID:          userID,
		Date:            today,
		Mood:            req.Mood,
		Note:            req.Note,
		LinkedSessionID: req.LinkedSessionID,
		LinkedJournalID: req.LinkedJournalID,
	}); err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}

	if s.Events != nil {
		if err := s.Events.Publish(hermes.SubjectMoodRecorded, hermes.MoodRecorded{
			UserID: userID.String(),
			Date:   today,
			Mood:   req.Mood,
		}); err != nil {
			s.Logger.Warn("failed to publish mood recorded", "user_id", userID, "error", err)
		}
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) moodStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	rows, err := s.Store.ListMoodsSince(r.Context(), userID, s.moodWindowStart(), true)
	if err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}

	entries := make([]mood.Entry, len(rows))
	for i, row := range rows {
		entries[i] = mood.Entry{Date: row.Date, Mood: row.Mood}
	}
	JSON(w, http.StatusOK, mood.ComputeStats(entries, mood.Emoji, s.now()))
}
