package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wondermap/wondermap-api/internal/genai"
	"github.com/wondermap/wondermap-api/internal/places"
	"github.com/wondermap/wondermap-api/internal/travel"
)

// Deps are the collaborators shared by all handlers. Hours may be nil when
// no places API key is configured.
type Deps struct {
	Users   UserStore
	Posts   PostStore
	Trips   TripStore
	Feed    FeedCache
	Hours   HoursLookup
	Advisor StopAdvisor
	Text    TextGenerator
	Files   FileStore
}

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	users   UserStore
	posts   PostStore
	trips   TripStore
	feed    FeedCache
	hours   HoursLookup
	advisor StopAdvisor
	text    TextGenerator
	files   FileStore
	log     *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(d Deps, log *slog.Logger) *Handlers {
	return &Handlers{
		users:   d.Users,
		posts:   d.Posts,
		trips:   d.Trips,
		feed:    d.Feed,
		hours:   d.Hours,
		advisor: d.Advisor,
		text:    d.Text,
		files:   d.Files,
		log:     log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps domain errors onto HTTP statuses. Anything unrecognised is
// logged and reported as a 500 without details.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, travel.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, travel.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody("permission denied"))
	case errors.Is(err, travel.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(msg+": not found"))
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large"))
	case errors.Is(err, genai.ErrNotConfigured), errors.Is(err, places.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
	default:
		h.log.ErrorContext(r.Context(), msg, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
	}
}

// decodeJSON reads the request body into dst. Malformed bodies become
// validation errors.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("invalid request body: %v: %w", err, travel.ErrValidation)
	}
	return nil
}

// requireEmail returns the trimmed caller email or a validation error.
func requireEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("email is required: %w", travel.ErrValidation)
	}
	return email, nil
}

// queryEmail reads the caller email from the query string.
func queryEmail(r *http.Request) (string, error) {
	return requireEmail(r.URL.Query().Get("email"))
}

// queryLimit reads ?limit= clamped to 1..upper, or def when absent or invalid.
func queryLimit(r *http.Request, def, upper int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, upper)
}

// HealthCheck handles GET /api/v1/health.
// Pings DB and Redis; returns 200 if both ok, 503 otherwise.
type dbPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc returns an http.HandlerFunc that checks db and redis connectivity.
func HealthHandlerFunc(db dbPinger, redis redisPinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		dbStatus := "ok"
		redisStatus := "ok"

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", "err", err)
			dbStatus = "error"
			status = http.StatusServiceUnavailable
		}

		if err := redis.Ping(ctx); err != nil {
			log.Error("health check: redis ping failed", "err", err)
			redisStatus = "error"
			status = http.StatusServiceUnavailable
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		writeJSON(w, status, map[string]string{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}
