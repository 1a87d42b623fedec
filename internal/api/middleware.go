package api

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/wondermap/wondermap-api/internal/metrics"
)

// BearerAuth returns middleware that validates the Authorization: Bearer <token> header.
// Uses crypto/subtle.ConstantTimeCompare to prevent timing attacks.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			provided := strings.TrimPrefix(auth, "Bearer ")

			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 || !strings.HasPrefix(auth, "Bearer ") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SlogLogger logs one structured line per request. Wire it after
// middleware.RequestID so the request id is available.
func SlogLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// Metrics records request counts and durations labelled by the matched chi
// route pattern, so path parameters do not explode label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, route, strconv.Itoa(status)}
		metrics.HTTPRequests.WithLabelValues(labels...).Inc()
		metrics.HTTPDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}

// NewCORSHandler applies CORS headers for allowedOrigins ("*" allows any).
// An empty list denies every cross-origin request.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}
	if len(allowedOrigins) == 0 {
		// rs/cors treats an empty origin list as "allow all".
		opts.AllowOriginFunc = func(string) bool { return false }
	}
	c := cors.New(opts)
	return func(next http.Handler) http.Handler {
		return c.Handler(next)
	}
}

// MaxBodySize rejects requests whose declared length exceeds limit with 413
// and caps the bytes a handler can read from the rest.
func MaxBodySize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large"))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
