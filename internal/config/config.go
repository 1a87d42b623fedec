// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the API server.
type Config struct {
	Port        string
	LogLevel    string
	DatabaseURL string
	RedisURL    string

	// BearerToken gates every non-public route.
	BearerToken string

	// FileSigningKey signs download URLs for uploaded photos.
	FileSigningKey string
	// PublicBaseURL prefixes signed download URLs, e.g. "https://api.example.com".
	PublicBaseURL  string
	MaxUploadBytes int64

	CORSOrigins        []string
	RateLimitPerMinute int

	GeminiAPIKey string
	GeminiModel  string
	// GeminiRPS throttles outbound generation calls.
	GeminiRPS float64

	PlacesAPIKey   string
	PlacesLanguage string

	// Location is used to work out which weekday a trip day falls on.
	Location *time.Location
}

// Load reads an optional .env file, then the environment, and returns a
// Config. The error lists every required variable that is missing.
func Load() (Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "*")),
		GeminiAPIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:    getEnv("GEMINI_MODEL", "models/gemini-2.0-flash"),
		PlacesAPIKey:   strings.TrimSpace(os.Getenv("PLACES_API_KEY")),
		PlacesLanguage: getEnv("PLACES_LANGUAGE", "zh-TW"),
	}

	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	cfg.DatabaseURL = required("DATABASE_URL")
	cfg.RedisURL = required("REDIS_URL")
	cfg.BearerToken = required("BEARER_TOKEN")
	cfg.FileSigningKey = required("FILE_SIGNING_KEY")

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.MaxUploadBytes, err = getInt64("MAX_UPLOAD_BYTES", 10<<20); err != nil {
		return Config{}, err
	}
	limit, err := getInt64("RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitPerMinute = int(limit)

	if cfg.GeminiRPS, err = strconv.ParseFloat(getEnv("GEMINI_RPS", "2"), 64); err != nil {
		return Config{}, fmt.Errorf("GEMINI_RPS must be a number: %w", err)
	}

	tz := getEnv("TIMEZONE", "Asia/Taipei")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return Config{}, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
