package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/haven/internal/store"
)

type journalRequest struct {
	Content         string     `json:"content" validate:"required"`
	LinkedSessionID *uuid.UUID `json:"linked_session_id"`
}

func (s *Server) listJournals(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	entries, err := s.Store.ListJournals(r.Context(), userID)
	if err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusOK, emptyIfNil(entries))
}

func (s *Server) createJournal(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req journalRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err, "Content is required")
		return
	}
	entry, err := s.Store.CreateJournal(r.Context(), userID, req.Content, req.LinkedSessionID)
	if err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusCreated, entry)
}

func (s *Server) getJournal(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(r, "id")
	if !ok {
		Error(w, http.StatusBadRequest, "Invalid journal id")
		return
	}
	entry, err := s.Store.GetJournal(r.Context(), userID, id)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "Journal entry not found")
		return
	}
	if err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusOK, entry)
}
