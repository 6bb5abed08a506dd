package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	AllowedOrigin   string
	DefaultLanguage string
	// Database
	DatabaseURL   string
	MigrationsDir string
	// File-based catalog used when DB_URL is not set
	CatalogFile string
	// Sessions
	SessionTimeout       time.Duration
	SessionSweepInterval time.Duration
	// Interaction history
	HistoryLimit int
	// Optional LLM small-talk fallback
	OpenAIAPIKey        string
	Model               string
	SmalltalkPromptFile string
}

func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:                 getEnvDefault("PORT", "8080"),
		AllowedOrigin:        getEnvDefault("ALLOWED_ORIGIN", "*"),
		DefaultLanguage:      getEnvDefault("DEFAULT_LANGUAGE", "es"),
		DatabaseURL:          os.Getenv("DB_URL"),
		MigrationsDir:        getEnvDefault("MIGRATIONS_DIR", "./migrations"),
		CatalogFile:          getEnvDefault("CATALOG_FILE", "./catalog.yaml"),
		SessionTimeout:       getEnvMillisDefault("SESSION_TIMEOUT_MS", 5*time.Minute),
		SessionSweepInterval: getEnvMillisDefault("SESSION_SWEEP_INTERVAL_MS", time.Minute),
		HistoryLimit:         getEnvIntDefault("HISTORY_LIMIT", 100),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		Model:                getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		SmalltalkPromptFile:  getEnvDefault("SMALLTALK_PROMPT_FILE", "./prompts/smalltalk.yaml"),
	}
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getEnvMillisDefault(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}
