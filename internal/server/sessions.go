package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"sessions":  s.sessions.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, ok := s.sessions.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.sessions.Clear(id) {
		s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "session cleared"})
		return
	}
	s.writeError(w, http.StatusNotFound, "session not found")
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n < limit {
			limit = n
		}
	}

	history, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to fetch interaction history")
		s.writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":        len(history),
		"interactions": history,
	})
}
