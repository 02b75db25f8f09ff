package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/haven/internal/auth"
)

const maxBodyBytes = 1 << 20

const (
	msgInternal     = "Internal Server Error"
	msgUnauthorized = "Unauthorized"
)

var validate = validator.New()

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

var errBadBody = errors.New("invalid JSON body")

// decode reads a JSON body into dst and validates its struct tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return errBadBody
	}
	return validate.Struct(dst)
}

// badRequest maps a decode failure to its 400 message.
func badRequest(w http.ResponseWriter, err error, invalid string) {
	if errors.Is(err, errBadBody) {
		Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	Error(w, http.StatusBadRequest, invalid)
}

// userID returns the authenticated caller. Routes behind Verifier.Required
// always have one.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		Error(w, http.StatusUnauthorized, msgUnauthorized)
	}
	return id, ok
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// fail logs the cause and answers 500 with public, which never carries it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, public string, err error) {
	s.Logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	Error(w, http.StatusInternalServerError, public)
}

// emptyIfNil keeps list endpoints encoding [] rather than null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
