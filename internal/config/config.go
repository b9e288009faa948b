package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env            string
	HTTPPort       string
	MetricsPort    string
	LogLevel       string
	DBDriver       string
	DatabaseURL    string
	DBMaxOpenConns int
	RedisAddr      string
	EventsBackend  string
	EventsKey      string
	SummaryMonth   time.Time
}

// DefaultSummaryMonth is the calendar month used by the financial summary
// when SUMMARY_MONTH is not set.
var DefaultSummaryMonth = time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

// Load returns application config populated from environment variables with sensible defaults.
// SQL_CONNECTION_STRING has no default: the database gateway reports its absence.
func Load() App {
	return App{
		Env:            getEnv("APP_ENV", "dev"),
		HTTPPort:       getEnv("HTTP_PORT", "5000"),
		MetricsPort:    getEnv("METRICS_PORT", "9102"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DBDriver:       getEnv("DB_DRIVER", "pgx"),
		DatabaseURL:    os.Getenv("SQL_CONNECTION_STRING"),
		DBMaxOpenConns: intEnv("DB_MAX_OPEN_CONNS", 0),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		EventsBackend:  strings.ToLower(getEnv("EVENTS_BACKEND", "none")),
		EventsKey:      getEnv("EVENTS_KEY", "tutoring:records"),
		SummaryMonth:   monthEnv("SUMMARY_MONTH", DefaultSummaryMonth),
	}
}

// Production reports whether the app runs with production settings.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		slog.Warn("invalid int, using fallback", "key", key, "value", val, "fallback", fallback)
	}
	return fallback
}

// monthEnv parses a YYYY-MM value into the first day of that month (UTC).
func monthEnv(key string, fallback time.Time) time.Time {
	if val := os.Getenv(key); val != "" {
		m, err := time.ParseInLocation("2006-01", val, time.UTC)
		if err != nil {
			slog.Warn("invalid month, using fallback", "key", key, "value", val, "fallback", fallback.Format("2006-01"))
			return fallback
		}
		return m
	}
	return fallback
}
