package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"casino-webhook-backend/internal/catalog"
	"casino-webhook-backend/internal/config"
	"casino-webhook-backend/internal/conversation"
	"casino-webhook-backend/internal/db"
	"casino-webhook-backend/internal/store"
	"casino-webhook-backend/internal/types"
)

type Server struct {
	router       *chi.Mux
	orchestrator *conversation.Orchestrator
	sessions     *store.Memory
	history      catalog.HistorySink
	database     *db.DB // nil when running on the file catalog
	cfg          config.Config
	log          zerolog.Logger
	startedAt    time.Time
}

func NewServer(
	cfg config.Config,
	orchestrator *conversation.Orchestrator,
	sessions *store.Memory,
	history catalog.HistorySink,
	database *db.DB,
	logger zerolog.Logger,
) *Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.AllowedOrigin},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders: []string{"X-Session-Id"},
		MaxAge:         300,
	}))

	s := &Server{
		router:       r,
		orchestrator: orchestrator,
		sessions:     sessions,
		history:      history,
		database:     database,
		cfg:          cfg,
		log:          logger.With().Str("component", "server").Logger(),
		startedAt:    time.Now(),
	}
	r.Use(s.requestLogger)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/health/full", s.handleHealthFull)
	// Dialogflow fulfillment
	s.router.Post("/api/webhook/dialogflow", s.handleWebhook)
	s.router.Post("/api/webhook/dialogflow/test", s.handleWebhookTest)
	// Session inspection
	s.router.Get("/api/sessions/stats", s.handleSessionStats)
	s.router.Get("/api/sessions/{id}", s.handleGetSession)
	s.router.Delete("/api/sessions/{id}", s.handleClearSession)
	// Interaction history
	s.router.Get("/api/history", s.handleHistory)
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}
