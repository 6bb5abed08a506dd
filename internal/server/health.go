package server

import (
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Seconds(),
	})
}

// handleHealthFull adds the database check and session stats. Returns
// 503 when a database is configured but unreachable.
func (s *Server) handleHealthFull(w http.ResponseWriter, r *http.Request) {
	status := "OK"
	code := http.StatusOK

	database := map[string]any{"configured": s.database != nil}
	if s.database != nil {
		if err := s.database.HealthCheck(); err != nil {
			s.log.Error().Err(err).Msg("database health check failed")
			database["connected"] = false
			status = "ERROR"
			code = http.StatusServiceUnavailable
		} else {
			database["connected"] = true
		}
	}

	s.writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Seconds(),
		"database":  database,
		"sessions":  s.sessions.Stats(),
	})
}
