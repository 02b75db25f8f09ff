package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/haven/internal/progress"
)

func (s *Server) progressSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	summary, err := s.Progress.Summary(r.Context(), userID, s.now())
	if err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusOK, summary)
}

func (s *Server) progressBadges(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	report, err := s.Progress.Badges(r.Context(), userID, s.now())
	if err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusOK, report)
}

type insightRequest struct {
	Source  string          `json:"source" validate:"required"`
	Content json.RawMessage `json:"content"`
}

func (s *Server) progressInsight(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req insightRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err, "Source is required")
		return
	}

	insight, err := progress.GenerateInsight(req.Source, req.Content)
	if errors.Is(err, progress.ErrUnknownSource) {
		Error(w, http.StatusBadRequest, "Unknown insight source")
		return
	}
	if err != nil {
		Error(w, http.StatusBadRequest, "Invalid insight content")
		return
	}

	if _, err := s.Store.CreateProgressInsight(r.Context(), userID, req.Source, insight.Summary, insight.Tags); err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"success": true, "insight": insight})
}
