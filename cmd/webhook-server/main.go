package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"casino-webhook-backend/internal/catalog"
	"casino-webhook-backend/internal/config"
	"casino-webhook-backend/internal/conversation"
	"casino-webhook-backend/internal/db"
	"casino-webhook-backend/internal/server"
	"casino-webhook-backend/internal/smalltalk"
	"casino-webhook-backend/internal/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg := config.Load()

	var (
		intents   catalog.IntentCatalog
		vocab     catalog.EntityVocabulary
		responses catalog.ResponseCatalog
		history   catalog.HistorySink
		database  *db.DB
	)

	if cfg.DatabaseURL != "" {
		var err error
		database, err = db.New(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize database")
		}
		defer database.Close()
		logger.Info().Msg("database connection established")

		if err := database.RunMigrations(cfg.MigrationsDir); err != nil {
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}

		pg := catalog.NewPostgres(database, logger)
		intents, vocab, responses, history = pg, pg, pg, pg
	} else {
		logger.Warn().Str("file", cfg.CatalogFile).Msg("DB_URL not provided, using file-based catalog")
		file, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load catalog file")
		}
		intents, vocab, responses = file, file, file
		history = store.NewHistory(cfg.HistoryLimit)
	}

	sessions := store.NewMemory(cfg.SessionTimeout, logger)
	stopSweeper := sessions.StartSweeper(cfg.SessionSweepInterval)
	defer stopSweeper()

	orchestrator := conversation.NewOrchestrator(intents, vocab, responses, history, sessions, logger).
		WithDefaultLanguage(cfg.DefaultLanguage)
	if cfg.OpenAIAPIKey != "" {
		responder, err := smalltalk.Load(cfg.SmalltalkPromptFile, openai.NewClient(cfg.OpenAIAPIKey), cfg.Model)
		if err != nil {
			logger.Warn().Err(err).Msg("small-talk fallback disabled: prompt spec could not be loaded")
		} else {
			orchestrator.WithFallbackResponder(responder)
			logger.Info().Str("model", cfg.Model).Msg("small-talk fallback enabled")
		}
	}

	srv := server.NewServer(cfg, orchestrator, sessions, history, database, logger)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("webhook server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
