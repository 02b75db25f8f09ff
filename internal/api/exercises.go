package api

import (
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/haven/internal/store"
)

func (s *Server) listExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.Store.ListExercises(r.Context())
	if err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusOK, emptyIfNil(exercises))
}

func (s *Server) getExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		Error(w, http.StatusBadRequest, "Invalid exercise id")
		return
	}
	ex, err := s.Store.GetExercise(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "Exercise not found")
		return
	}
	if err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusOK, ex)
}

func (s *Server) completeExercise(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(r, "id")
	if !ok {
		Error(w, http.StatusBadRequest, "Invalid exercise id")
		return
	}
	if _, err := s.Store.GetExercise(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "Exercise not found")
			return
		}
		s.fail(w, r, msgInternal, err)
		return
	}
	entry, err := s.Store.LogExercise(r.Context(), userID, id)
	if err != nil {
		s.fail(w, r, msgInternal, err)
		return
	}
	JSON(w, http.StatusCreated, entry)
}
