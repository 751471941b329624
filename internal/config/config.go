package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the service
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	// Kafka brokers for event publishing; empty means events are logged only
	KafkaBrokers []string

	// Adaptive engine overrides
	QuestionBudget int

	// Session expiry sweep
	SessionMaxIdle time.Duration
	SweepInterval  time.Duration
	SweepLimit     int
}

// LoadConfig reads configuration from the environment, loading a local .env
// file first when one is present.
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments inject environment variables directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		KafkaBrokers:   parseBrokers(getEnv("KAFKA_BROKERS", "")),
		QuestionBudget: getEnvInt("QUESTION_BUDGET", 10),
		SessionMaxIdle: getEnvDuration("SESSION_MAX_IDLE", 30*time.Minute),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
		SweepLimit:     getEnvInt("SWEEP_LIMIT", 100),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.QuestionBudget <= 0 {
		return nil, fmt.Errorf("QUESTION_BUDGET must be positive, got %d", cfg.QuestionBudget)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
