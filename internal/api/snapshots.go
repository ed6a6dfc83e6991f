package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListSnapshots returns metadata for all stored snapshots.
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	infos, err := s.snaps.List()
	if err != nil {
		s.logger.Error("listing snapshots failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "listing snapshots failed")
		return
	}
	s.writeJSON(w, http.StatusOK, infos)
}

// handleSaveSnapshot exports the current store into a named snapshot.
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	info, err := s.snaps.Save(r.Context(), name, s.store)
	if err != nil {
		s.logger.Error("saving snapshot failed", "name", name, "err", err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, info)
}

// handleRestoreSnapshot replaces the store's contents with a snapshot.
func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	count, err := s.snaps.Restore(r.Context(), name, s.store)
	if err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		s.logger.Error("restoring snapshot failed", "name", name, "err", err)
		s.writeError(w, http.StatusInternalServerError, "restoring snapshot failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"restored_users": count})
}

// handleDeleteSnapshot removes a named snapshot.
func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.snaps.Delete(name); err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		s.logger.Error("deleting snapshot failed", "name", name, "err", err)
		s.writeError(w, http.StatusInternalServerError, "deleting snapshot failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
