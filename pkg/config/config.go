// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string
	UserID   string

	// Database
	DatabaseURL string
	SQLitePath  string

	// Redis
	RedisURL      string
	ScoreCacheTTL time.Duration

	// RabbitMQ
	RabbitMQURL string

	// Engine
	MinSlotMinutes     int
	DayStartHour       int
	DayEndHour         int
	FitTolerance       float64
	FallbackConfidence float64

	// Advisory scorers
	ScorerBaseURL     string
	ScorerTimeout     time.Duration
	ScorerParallelism int

	// Calendar
	CalendarProvider string // "caldav", "rest", or "" for none
	CalDAVURL        string
	CalDAVUsername   string
	CalDAVPassword   string
	CalendarAPIURL   string
	CalendarToken    string
	CalendarTimeout  time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		UserID:   getEnv("ANCHORA_USER_ID", "00000000-0000-0000-0000-000000000001"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("ANCHORA_SQLITE_PATH", ""),

		RedisURL:      getEnv("REDIS_URL", ""),
		ScoreCacheTTL: getDurationEnv("ANCHORA_SCORE_CACHE_TTL", 15*time.Minute),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		MinSlotMinutes:     getIntEnv("ANCHORA_MIN_SLOT_MINUTES", 15),
		DayStartHour:       getIntEnv("ANCHORA_DAY_START_HOUR", 6),
		DayEndHour:         getIntEnv("ANCHORA_DAY_END_HOUR", 22),
		FitTolerance:       getFloatEnv("ANCHORA_FIT_TOLERANCE", 0.20),
		FallbackConfidence: getFloatEnv("ANCHORA_FALLBACK_CONFIDENCE", 0.3),

		ScorerBaseURL:     getEnv("ANCHORA_SCORER_URL", ""),
		ScorerTimeout:     getDurationEnv("ANCHORA_SCORER_TIMEOUT", 5*time.Second),
		ScorerParallelism: getIntEnv("ANCHORA_SCORER_PARALLELISM", 8),

		CalendarProvider: getEnv("ANCHORA_CALENDAR_PROVIDER", ""),
		CalDAVURL:        getEnv("ANCHORA_CALDAV_URL", ""),
		CalDAVUsername:   getEnv("ANCHORA_CALDAV_USERNAME", ""),
		CalDAVPassword:   getEnv("ANCHORA_CALDAV_PASSWORD", ""),
		CalendarAPIURL:   getEnv("ANCHORA_CALENDAR_API_URL", ""),
		CalendarToken:    getEnv("ANCHORA_CALENDAR_TOKEN", ""),
		CalendarTimeout:  getDurationEnv("ANCHORA_CALENDAR_TIMEOUT", 10*time.Second),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
