package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListDirectories returns a summary of every synced directory.
func (s *Server) handleListDirectories(w http.ResponseWriter, r *http.Request) {
	dirs, err := s.store.ListDirectories(r.Context())
	if err != nil {
		s.logger.Error("listing directories failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "listing directories failed")
		return
	}

	params := parsePaginationParams(r)
	s.writeJSON(w, http.StatusOK, paginateSlice(dirs, params))
}

// handleListUsers returns synced users, optionally filtered by
// ?directory_id=.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	directoryID := r.URL.Query().Get("directory_id")

	users, err := s.store.ListUsers(r.Context(), directoryID)
	if err != nil {
		s.logger.Error("listing users failed", "directory", directoryID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "listing users failed")
		return
	}

	params := parsePaginationParams(r)
	s.writeJSON(w, http.StatusOK, paginateSlice(users, params))
}

// handleGetUser returns one synced user with its custom attributes.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	directoryID := chi.URLParam(r, "directoryID")
	userID := chi.URLParam(r, "userID")

	user, err := s.store.GetUser(r.Context(), directoryID, userID)
	if err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("getting user failed", "directory", directoryID, "user", userID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "getting user failed")
		return
	}

	s.writeJSON(w, http.StatusOK, user)
}
