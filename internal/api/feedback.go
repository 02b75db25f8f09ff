package api

import (
	"net/http"
)

type feedbackRequest struct {
	Type    string `json:"type" validate:"required"`
	Message string `json:"message" validate:"required"`
}

func (s *Server) submitFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req feedbackRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err, "Type and message are required")
		return
	}
	if _, err := s.Feedback.Submit(r.Context(), userID, req.Type, req.Message); err != nil {
		s.fail(w, r, "Failed to submit feedback", err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) listFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	items, err := s.Store.ListFeedback(r.Context(), userID)
	if err != nil {
		s.fail(w, r, "Failed to fetch feedback", err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"feedback": emptyIfNil(items)})
}
