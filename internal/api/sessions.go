package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/haven/internal/analysis"
	"github.com/MikeSquared-Agency/haven/internal/auth"
	"github.com/MikeSquared-Agency/haven/internal/extractor"
	"github.com/MikeSquared-Agency/haven/internal/store"
	"github.com/MikeSquared-Agency/haven/internal/toughtongue"
)

const msgMissingAnalyzeInput = "Missing transcript_content, session_id, or user_id"

type analyzeRequest struct {
	TranscriptContent string `json:"transcript_content" validate:"required"`
	SessionID         string `json:"session_id" validate:"required"`
	UserID            string `json:"user_id" validate:"required"`
}

func (s *Server) analyzeSession(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err, msgMissingAnalyzeInput)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		Error(w, http.StatusBadRequest, "Invalid user_id")
		return
	}
	if caller, ok := auth.UserID(r.Context()); ok && caller != userID {
		Error(w, http.StatusForbidden, "Forbidden")
		return
	}
	if !s.allow(w, r, userID) {
		return
	}

	res, err := s.Analyzer.Analyze(r.Context(), req.SessionID, userID, req.TranscriptContent)
	if err != nil {
		s.analysisError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"success": true, "analysis": res.Insight})
}

// analyzeStoredSession pulls the transcript from the recording service and
// analyzes it for the caller.
func (s *Server) analyzeStoredSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if !s.allow(w, r, userID) {
		return
	}

	res, err := s.Analyzer.AnalyzeFromSource(r.Context(), chi.URLParam(r, "sessionID"), userID)
	if err != nil {
		var status *toughtongue.StatusError
		switch {
		case errors.Is(err, toughtongue.ErrNoTranscript):
			Error(w, http.StatusUnprocessableEntity, "Session has no transcript")
		case errors.As(err, &status):
			Error(w, http.StatusBadGateway, err.Error())
		default:
			s.analysisError(w, err)
		}
		return
	}
	JSON(w, http.StatusOK, map[string]any{"success": true, "analysis": res.Insight})
}

// analysisError mirrors the analysis endpoint's error contract: upstream and
// storage messages are passed through verbatim.
func (s *Server) analysisError(w http.ResponseWriter, err error) {
	var invalid *extractor.InvalidOutputError
	switch {
	case errors.Is(err, analysis.ErrMissingInput):
		Error(w, http.StatusBadRequest, msgMissingAnalyzeInput)
	case errors.As(err, &invalid):
		JSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Failed to parse model response",
			"raw":   invalid.Raw,
		})
	default:
		Error(w, http.StatusInternalServerError, err.Error())
	}
}

// allow applies the analysis rate limit. Limiter errors fail open.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, userID uuid.UUID) bool {
	if s.Limiter == nil {
		return true
	}
	ok, err := s.Limiter.Allow(r.Context(), userID.String())
	if err != nil {
		s.Logger.Warn("rate limiter unavailable", "error", err)
	}
	if !ok {
		w.Header().Set("Retry-After", "60")
		Error(w, http.StatusTooManyRequests, "Too Many Requests")
		return false
	}
	return true
}

type toughTongueRequest struct {
	LatestSessionID string `json:"latestSessionId" validate:"required"`
}

func (s *Server) toughTongue(w http.ResponseWriter, r *http.Request) {
	var req toughTongueRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err, "Latest session ID is required")
		return
	}
	if s.Source == nil {
		s.fail(w, r, "Failed to analyze session", errors.New("no session source configured"))
		return
	}

	bundle, err := s.Source.FetchBundle(r.Context(), req.LatestSessionID)
	if err != nil {
		s.fail(w, r, "Failed to analyze session", err)
		return
	}
	JSON(w, http.StatusOK, bundle)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	sessions, err := s.Store.ListSessions(r.Context(), userID)
	if err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusOK, emptyIfNil(sessions))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	sess, err := s.Store.GetSession(r.Context(), userID, chi.URLParam(r, "sessionID"))
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusOK, sess)
}
